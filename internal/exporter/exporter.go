// Package exporter persists the textual artifacts of a download run:
// chapter titles, creator notes, and the series summary. Text files are
// written incrementally as chapters arrive; the accumulated data can be
// flushed to a single info.json at the end of the run.
package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/toonworks/webtoon-dl/pkg/models"
)

// Format selects which outputs the exporter produces.
type Format string

const (
	// FormatText writes one plain-text file per artifact.
	FormatText Format = "text"
	// FormatJSON accumulates everything into a single info.json.
	FormatJSON Format = "json"
	// FormatAll writes both.
	FormatAll Format = "all"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatAll:
		return Format(s), nil
	}
	return "", fmt.Errorf("invalid export format: %q (must be text, json, or all)", s)
}

// ChapterRecord is the exported text attached to one chapter.
// Field order matches the sorted key order of the JSON document.
type ChapterRecord struct {
	Notes string `json:"notes"`
	Title string `json:"title"`
}

// exportData accumulates everything destined for info.json. Chapter
// numbers are serialized as string keys; encoding/json orders object
// keys lexicographically, which is the documented layout.
type exportData struct {
	Chapters map[int]ChapterRecord `json:"chapters"`
	Summary  string                `json:"summary"`
}

// writeMode controls how the write primitive opens the target file.
type writeMode int

const (
	// modeOverwrite truncates the target before writing.
	modeOverwrite writeMode = iota
	// modeAppend appends to the target.
	modeAppend
	// modeReplace stages the payload in a temp file and renames it over
	// the target, so readers never observe a partial document.
	modeReplace
)

// TextExporter accumulates chapter and series text and writes it out
// according to the configured format. The zero value is not usable;
// construct with New.
//
// A single mutex guards the aggregate: calls from multiple goroutines
// are individually atomic, but relative ordering between concurrent
// callers is theirs to arrange.
type TextExporter struct {
	mu        sync.Mutex
	dest      string
	writeText bool
	writeJSON bool
	data      exportData
}

// New creates a TextExporter writing to dest. An empty dest means the
// current directory. The destination does not need to exist yet; the
// directory chain is created on first write.
func New(format Format, dest string) (*TextExporter, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if dest == "" {
		dest = "."
	}
	return &TextExporter{
		dest:      dest,
		writeText: format == FormatText || format == FormatAll,
		writeJSON: format == FormatJSON || format == FormatAll,
		data: exportData{
			Chapters: make(map[int]ChapterRecord),
		},
	}, nil
}

// AddSeriesText records the series summary and, when text output is
// enabled, writes it to summary.txt under dir (or the default
// destination when dir is empty). An empty summary is a no-op. The
// summary is recorded in the aggregate regardless of format so that a
// json-only export still carries it.
func (e *TextExporter) AddSeriesText(summary, dir string) error {
	if summary == "" {
		return nil
	}

	e.mu.Lock()
	e.data.Summary = summary
	e.mu.Unlock()

	if !e.writeText {
		return nil
	}
	return e.write(filepath.Join(e.resolveDir(dir), "summary.txt"), summary, modeOverwrite, "\n")
}

// AddChapterDetails records the chapter's title and notes under its
// number, replacing any earlier record for the same number. When text
// output is enabled it also writes <number>_title.txt and, for
// non-empty notes, <number>_notes.txt, with the number zero-padded to
// padding digits. Padding values below 1 leave the number unpadded.
func (e *TextExporter) AddChapterDetails(chapter models.ChapterInfo, notes string, padding int, dir string) error {
	e.mu.Lock()
	e.data.Chapters[chapter.Number] = ChapterRecord{Title: chapter.Title, Notes: notes}
	e.mu.Unlock()

	if !e.writeText {
		return nil
	}

	if padding < 0 {
		padding = 0
	}
	prefix := fmt.Sprintf("%0*d", padding, chapter.Number)
	target := e.resolveDir(dir)

	if err := e.write(filepath.Join(target, prefix+"_title.txt"), chapter.Title, modeOverwrite, "\n"); err != nil {
		return err
	}
	if notes == "" {
		return nil
	}
	return e.write(filepath.Join(target, prefix+"_notes.txt"), notes, modeOverwrite, "\n")
}

// WriteData serializes the aggregate to info.json under dir (or the
// default destination) when JSON output is enabled. Keys are sorted,
// the indent is four spaces, and no trailing newline is appended. The
// file is staged and renamed into place, so an interrupted run leaves
// either the previous document or the new one, never a torn file.
// Calling it again with an unchanged aggregate rewrites identical bytes.
func (e *TextExporter) WriteData(dir string) error {
	if !e.writeJSON {
		return nil
	}

	e.mu.Lock()
	payload, err := json.MarshalIndent(e.data, "", "    ")
	e.mu.Unlock()
	if err != nil {
		return err
	}

	return e.write(filepath.Join(e.resolveDir(dir), "info.json"), string(payload), modeReplace, "")
}

// resolveDir applies the per-call directory override.
func (e *TextExporter) resolveDir(dir string) string {
	if dir == "" {
		return e.dest
	}
	return dir
}

// write is the single point that touches the filesystem. It ensures the
// parent directory chain exists, then writes payload plus terminator to
// target using the given mode. Filesystem errors surface to the caller
// unchanged; there is no retry and no cleanup of partial text writes.
func (e *TextExporter) write(target, payload string, mode writeMode, terminator string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	log.Debug().Str("file", target).Int("bytes", len(payload)+len(terminator)).Msg("Writing export file")

	if mode == modeReplace {
		tmp, err := os.CreateTemp(filepath.Dir(target), ".export-*")
		if err != nil {
			return err
		}
		if _, err := tmp.WriteString(payload + terminator); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())
			return err
		}
		if err := os.Chmod(tmp.Name(), 0644); err != nil {
			os.Remove(tmp.Name())
			return err
		}
		if err := os.Rename(tmp.Name(), target); err != nil {
			os.Remove(tmp.Name())
			return err
		}
		return nil
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if mode == modeAppend {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(target, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(payload + terminator); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
