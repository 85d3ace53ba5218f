// Package auth stores authentication sessions for age-gated and
// subscriber-only series. Sessions live in the OS keyring when one is
// available, otherwise in files under the user's home directory.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "webtoon-dl"
	fallbackDir    = ".webtoon-dl/sessions"

	// Keyring entries aren't enumerable, so a manifest entry under this
	// key tracks the stored session names.
	manifestKey = "_manifest"
)

// SessionData is one stored authentication session.
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie is a captured browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// sessionStore abstracts where serialized sessions live.
type sessionStore interface {
	write(name string, data []byte) error
	read(name string) ([]byte, error)
	remove(name string) error
	list() ([]string, error)
}

var (
	storeOnce   sync.Once
	activeStore sessionStore
)

// store picks the backend once per process: the keyring when a probe
// write succeeds, files otherwise. Codespaces and CI never have a
// usable keyring, so the probe is skipped there.
func store() sessionStore {
	storeOnce.Do(func() {
		if os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			activeStore = fileStore{}
			return
		}
		const probe = "_keyring_probe_"
		if err := keyring.Set(keyringService, probe, "ok"); err != nil {
			activeStore = fileStore{}
			return
		}
		keyring.Delete(keyringService, probe)
		activeStore = keyringStore{}
	})
	return activeStore
}

// keyringStore keeps sessions in the OS keyring, encrypted at rest.
type keyringStore struct{}

func (keyringStore) write(name string, data []byte) error {
	if err := keyring.Set(keyringService, name, string(data)); err != nil {
		return fmt.Errorf("keyring write: %w", err)
	}
	return manifestUpdate(name, true)
}

func (keyringStore) read(name string) ([]byte, error) {
	data, err := keyring.Get(keyringService, name)
	if err != nil {
		return nil, fmt.Errorf("keyring read: %w", err)
	}
	return []byte(data), nil
}

func (keyringStore) remove(name string) error {
	if err := keyring.Delete(keyringService, name); err != nil {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return manifestUpdate(name, false)
}

func (keyringStore) list() ([]string, error) {
	raw, err := keyring.Get(keyringService, manifestKey)
	if err != nil {
		// No manifest means no sessions saved yet
		return []string{}, nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("corrupt session manifest: %w", err)
	}
	return names, nil
}

func manifestUpdate(name string, add bool) error {
	names, _ := keyringStore{}.list()

	kept := names[:0]
	present := false
	for _, n := range names {
		if n == name {
			present = true
			if !add {
				continue
			}
		}
		kept = append(kept, n)
	}
	if add && !present {
		kept = append(kept, name)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return keyring.Set(keyringService, manifestKey, string(data))
}

// fileStore keeps sessions as 0600 JSON files under ~/.webtoon-dl/sessions.
type fileStore struct{}

func (fileStore) dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, fallbackDir)
	return dir, os.MkdirAll(dir, 0700)
}

func (fs fileStore) path(name string) (string, error) {
	dir, err := fs.dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func (fs fileStore) write(name string, data []byte) error {
	path, err := fs.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (fs fileStore) read(name string) ([]byte, error) {
	path, err := fs.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (fs fileStore) remove(name string) error {
	path, err := fs.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (fs fileStore) list() ([]string, error) {
	dir, err := fs.dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}

// SaveSessionWithManifest stores a session under its name.
func SaveSessionWithManifest(session *SessionData) error {
	if session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := store().write(session.Name, data); err != nil {
		return fmt.Errorf("failed to save session %q: %w", session.Name, err)
	}
	return nil
}

// LoadSession retrieves a stored session. Expired sessions load as an
// error so callers can prompt for a fresh login instead of sending
// stale cookies.
func LoadSession(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	data, err := store().read(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", name, err)
	}

	var session SessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session %q: %w", name, err)
	}

	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session %q expired on %s", name, session.ExpiresAt.Format(time.RFC1123))
	}

	return &session, nil
}

// DeleteSessionWithManifest removes a stored session.
func DeleteSessionWithManifest(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if err := store().remove(name); err != nil {
		return fmt.Errorf("failed to delete session %q: %w", name, err)
	}
	return nil
}

// ListSessions returns the names of all stored sessions.
func ListSessions() ([]string, error) {
	return store().list()
}
