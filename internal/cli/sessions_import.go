// internal/cli/sessions_import.go
package cli

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/toonworks/webtoon-dl/internal/auth"
)

var (
	importURL     string
	importCookies string
)

// sessionsImportCmd represents the sessions import command
var sessionsImportCmd = &cobra.Command{
	Use:   "import <session-name>",
	Short: "Import a cookie header from your browser to create a session",
	Long: `Create an authenticated session from a cookie header pasted out of your
browser's developer tools.

This is the fallback for headless environments (Codespaces, CI) where
the interactive login browser cannot open.

Steps:
1. Open the site in your regular browser and login
2. Open DevTools (F12), Network tab, reload the page
3. Copy the Cookie request header of any page request
4. Pass it via --cookies or paste it when prompted`,
	Example: `  # Paste the cookie header when prompted
  webtoon-dl sessions import my-login --url=https://www.webtoons.com

  # Pass the cookie header directly
  webtoon-dl sessions import my-login --url=https://www.webtoons.com --cookies="NEO_SES=abc; NEO_CHK=def"`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	sessionsImportCmd.Flags().StringVar(&importURL, "url", "", "Website URL for this session (required)")
	sessionsImportCmd.Flags().StringVar(&importCookies, "cookies", "", "Cookie header string (prompted for if empty)")
	sessionsImportCmd.MarkFlagRequired("url")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	sessionName := args[0]

	header := importCookies
	if header == "" {
		fmt.Print("Paste the Cookie header and press Enter:\n> ")
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		if scanner.Scan() {
			header = scanner.Text()
		}
	}

	cookies := parseCookieHeader(header, importURL)
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies parsed from input")
	}

	session := &auth.SessionData{
		Name:      sessionName,
		URL:       importURL,
		Cookies:   cookies,
		Headers:   make(map[string]string),
		CreatedAt: time.Now(),
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\nSession '%s' created with %d cookies.\n", sessionName, len(cookies))
	fmt.Printf("\nUse with:\n")
	fmt.Printf("  webtoon-dl download <series-url> --session=%s\n\n", sessionName)

	return nil
}

// parseCookieHeader splits a "name=value; name2=value2" cookie header
// into session cookies scoped to the session URL's host.
func parseCookieHeader(header, sessionURL string) []auth.Cookie {
	domain := ""
	if u, err := url.Parse(sessionURL); err == nil {
		domain = u.Hostname()
	}

	var cookies []auth.Cookie
	for _, pair := range strings.Split(header, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		cookies = append(cookies, auth.Cookie{
			Name:   strings.TrimSpace(parts[0]),
			Value:  strings.TrimSpace(parts[1]),
			Domain: domain,
			Path:   "/",
		})
	}
	return cookies
}
