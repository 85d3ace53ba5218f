package exporter

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/toonworks/webtoon-dl/pkg/models"
)

func chapter(num int, title string) models.ChapterInfo {
	return models.ChapterInfo{Number: num, EpisodeNo: num, Title: title}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"text", "json", "all"} {
		t.Run(valid, func(t *testing.T) {
			f, err := ParseFormat(valid)
			if err != nil {
				t.Fatalf("ParseFormat(%q) returned error: %v", valid, err)
			}
			if string(f) != valid {
				t.Errorf("ParseFormat(%q) = %q", valid, f)
			}
		})
	}

	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(\"yaml\") should fail")
	}
	if _, err := New(Format("csv"), ""); err == nil {
		t.Error("New with unknown format should fail")
	}
}

func TestAddSeriesText_FileGatedByFormat(t *testing.T) {
	cases := []struct {
		format   Format
		wantFile bool
	}{
		{FormatText, true},
		{FormatAll, true},
		{FormatJSON, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			dir := t.TempDir()
			exp, err := New(tc.format, dir)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			if err := exp.AddSeriesText("An orphaned summary.", ""); err != nil {
				t.Fatalf("AddSeriesText failed: %v", err)
			}

			_, statErr := os.Stat(filepath.Join(dir, "summary.txt"))
			if tc.wantFile && statErr != nil {
				t.Errorf("summary.txt missing: %v", statErr)
			}
			if !tc.wantFile && statErr == nil {
				t.Error("summary.txt written despite text output being disabled")
			}

			// The aggregate carries the summary for every format.
			if exp.data.Summary != "An orphaned summary." {
				t.Errorf("aggregate summary = %q, want the supplied text", exp.data.Summary)
			}
		})
	}
}

func TestAddSeriesText_EmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatAll, dir)

	if err := exp.AddSeriesText("", ""); err != nil {
		t.Fatalf("AddSeriesText(\"\") returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "summary.txt")); err == nil {
		t.Error("empty summary should not produce summary.txt")
	}
	if exp.data.Summary != "" {
		t.Errorf("aggregate summary = %q, want empty", exp.data.Summary)
	}
}

func TestAddSeriesText_OverwritesFile(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatText, dir)

	if err := exp.AddSeriesText("first version", ""); err != nil {
		t.Fatalf("AddSeriesText failed: %v", err)
	}
	if err := exp.AddSeriesText("second version", ""); err != nil {
		t.Fatalf("AddSeriesText failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	if err != nil {
		t.Fatalf("read summary.txt: %v", err)
	}
	if string(data) != "second version\n" {
		t.Errorf("summary.txt = %q, want %q", string(data), "second version\n")
	}
}

func TestAddChapterDetails_Padding(t *testing.T) {
	cases := []struct {
		name    string
		padding int
		number  int
		prefix  string
	}{
		{"width three", 3, 7, "007"},
		{"width zero", 0, 7, "7"},
		{"negative clamps to zero", -4, 7, "7"},
		{"wider number than width", 2, 123, "123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			exp, _ := New(FormatText, dir)

			if err := exp.AddChapterDetails(chapter(tc.number, "t"), "", tc.padding, ""); err != nil {
				t.Fatalf("AddChapterDetails failed: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, tc.prefix+"_title.txt")); err != nil {
				t.Errorf("expected %s_title.txt: %v", tc.prefix, err)
			}
		})
	}
}

func TestAddChapterDetails_EmptyNotesSkipsNotesFile(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatText, dir)

	if err := exp.AddChapterDetails(chapter(4, "Chapter Four"), "", 2, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "04_title.txt")); err != nil {
		t.Errorf("title file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "04_notes.txt")); err == nil {
		t.Error("notes file written for empty notes")
	}

	rec, ok := exp.data.Chapters[4]
	if !ok {
		t.Fatal("chapter 4 missing from aggregate")
	}
	if rec.Notes != "" || rec.Title != "Chapter Four" {
		t.Errorf("aggregate record = %+v", rec)
	}
}

func TestAddChapterDetails_DisabledWriterStillRecords(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatJSON, dir)

	if err := exp.AddChapterDetails(chapter(9, "Nine"), "a note", 3, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		t.Errorf("unexpected file for json-only format: %s", e.Name())
	}

	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	var parsed struct {
		Chapters map[string]ChapterRecord `json:"chapters"`
		Summary  string                   `json:"summary"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal info.json: %v", err)
	}
	rec, ok := parsed.Chapters["9"]
	if !ok {
		t.Fatalf("chapter 9 missing from info.json: %s", raw)
	}
	if rec.Title != "Nine" || rec.Notes != "a note" {
		t.Errorf("chapter 9 record = %+v", rec)
	}
}

func TestAddChapterDetails_OverwriteReplacesRecordAndFiles(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatAll, dir)

	if err := exp.AddChapterDetails(chapter(5, "Five"), "a", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}
	if err := exp.AddChapterDetails(chapter(5, "Five Revised"), "b", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}

	notes, err := os.ReadFile(filepath.Join(dir, "5_notes.txt"))
	if err != nil {
		t.Fatalf("read 5_notes.txt: %v", err)
	}
	if string(notes) != "b\n" {
		t.Errorf("5_notes.txt = %q, want %q", string(notes), "b\n")
	}

	if got := exp.data.Chapters[5]; got.Notes != "b" || got.Title != "Five Revised" {
		t.Errorf("aggregate record = %+v, want the second write", got)
	}
	if len(exp.data.Chapters) != 1 {
		t.Errorf("aggregate has %d records, want 1", len(exp.data.Chapters))
	}
}

func TestWriteData_Layout(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatJSON, dir)

	if err := exp.AddSeriesText("The summary.", ""); err != nil {
		t.Fatalf("AddSeriesText failed: %v", err)
	}
	if err := exp.AddChapterDetails(chapter(2, "Two"), "", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}
	if err := exp.AddChapterDetails(chapter(1, "One"), "intro", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}
	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	want := `{
    "chapters": {
        "1": {
            "notes": "intro",
            "title": "One"
        },
        "2": {
            "notes": "",
            "title": "Two"
        }
    },
    "summary": "The summary."
}`
	if string(raw) != want {
		t.Errorf("info.json layout mismatch:\ngot:\n%s\nwant:\n%s", raw, want)
	}
}

func TestWriteData_KeysSortLexicographically(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatJSON, dir)

	for _, n := range []int{2, 10, 1} {
		if err := exp.AddChapterDetails(chapter(n, "ch"), "", 0, ""); err != nil {
			t.Fatalf("AddChapterDetails failed: %v", err)
		}
	}
	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	// String keys order as "1" < "10" < "2".
	idx1 := bytes.Index(raw, []byte(`"1"`))
	idx10 := bytes.Index(raw, []byte(`"10"`))
	idx2 := bytes.Index(raw, []byte(`"2"`))
	if idx1 < 0 || idx10 < 0 || idx2 < 0 {
		t.Fatalf("missing chapter keys in info.json:\n%s", raw)
	}
	if !(idx1 < idx10 && idx10 < idx2) {
		t.Errorf("key order wrong: positions 1=%d 10=%d 2=%d in\n%s", idx1, idx10, idx2, raw)
	}
}

func TestWriteData_Idempotent(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatAll, dir)

	if err := exp.AddChapterDetails(chapter(1, "One"), "n", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}

	if err := exp.WriteData(""); err != nil {
		t.Fatalf("first WriteData failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	if err := exp.WriteData(""); err != nil {
		t.Fatalf("second WriteData failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("WriteData not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
	if len(first) == 0 || first[len(first)-1] == '\n' {
		t.Errorf("info.json should not end with a newline: %q", string(first))
	}
}

func TestWriteData_DisabledForTextFormat(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatText, dir)

	if err := exp.AddChapterDetails(chapter(1, "One"), "", 0, ""); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}
	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "info.json")); err == nil {
		t.Error("info.json written despite json output being disabled")
	}
}

func TestWriteData_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatJSON, dir)

	added := map[int]ChapterRecord{
		3:  {Title: "Three", Notes: "iii"},
		1:  {Title: "One", Notes: ""},
		12: {Title: "Twelve", Notes: "xii"},
	}
	for n, rec := range added {
		if err := exp.AddChapterDetails(chapter(n, rec.Title), rec.Notes, 0, ""); err != nil {
			t.Fatalf("AddChapterDetails failed: %v", err)
		}
	}
	if err := exp.AddSeriesText("round trip", ""); err != nil {
		t.Fatalf("AddSeriesText failed: %v", err)
	}
	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}
	var parsed exportData
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal info.json: %v", err)
	}

	if parsed.Summary != "round trip" {
		t.Errorf("summary = %q, want %q", parsed.Summary, "round trip")
	}
	if len(parsed.Chapters) != len(added) {
		t.Fatalf("parsed %d chapters, want %d", len(parsed.Chapters), len(added))
	}
	for n, want := range added {
		if got := parsed.Chapters[n]; got != want {
			t.Errorf("chapter %d = %+v, want %+v", n, got, want)
		}
	}
}

func TestWriteData_EmptyAggregate(t *testing.T) {
	dir := t.TempDir()
	exp, _ := New(FormatJSON, dir)

	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "info.json"))
	if err != nil {
		t.Fatalf("read info.json: %v", err)
	}

	want := "{\n    \"chapters\": {},\n    \"summary\": \"\"\n}"
	if string(raw) != want {
		t.Errorf("empty aggregate serialization = %q, want %q", string(raw), want)
	}
}

func TestDirectoryOverrideAndCreation(t *testing.T) {
	base := t.TempDir()
	exp, _ := New(FormatAll, filepath.Join(base, "default"))

	override := filepath.Join(base, "nested", "deeper")
	if err := exp.AddChapterDetails(chapter(1, "One"), "note", 2, override); err != nil {
		t.Fatalf("AddChapterDetails failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(override, "01_title.txt")); err != nil {
		t.Errorf("override dir title file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "default", "01_title.txt")); err == nil {
		t.Error("title file written to default dir despite override")
	}

	// Default destination chain is created on demand too.
	if err := exp.WriteData(""); err != nil {
		t.Fatalf("WriteData failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "default", "info.json")); err != nil {
		t.Errorf("info.json missing from default destination: %v", err)
	}
}

func TestNewDefaultsToCurrentDirectory(t *testing.T) {
	exp, err := New(FormatJSON, "")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if exp.dest != "." {
		t.Errorf("default dest = %q, want %q", exp.dest, ".")
	}
}
