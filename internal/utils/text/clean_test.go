package text

import (
	"strings"
	"testing"
)

func TestCleanHTMLStripsScriptsAndAttributes(t *testing.T) {
	in := `<div class="note" data-x="1"><script>alert(1)</script><p style="color:red">Thanks for reading!</p></div>`
	out, err := CleanHTML(in)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}
	if strings.Contains(out, "script") || strings.Contains(out, "alert") {
		t.Errorf("script survived cleanup: %s", out)
	}
	if strings.Contains(out, "style=") || strings.Contains(out, "class=") {
		t.Errorf("attributes survived cleanup: %s", out)
	}
	if !strings.Contains(out, "Thanks for reading!") {
		t.Errorf("text content lost: %s", out)
	}
}

func TestCleanHTMLKeepsLinkHref(t *testing.T) {
	out, err := CleanHTML(`<a href="https://example.com" onclick="x()">next</a>`)
	if err != nil {
		t.Fatalf("CleanHTML failed: %v", err)
	}
	if !strings.Contains(out, `href="https://example.com"`) {
		t.Errorf("href dropped: %s", out)
	}
	if strings.Contains(out, "onclick") {
		t.Errorf("onclick kept: %s", out)
	}
}

func TestToPlainText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t ", ""},
		{"paragraph", "<p>See you next week!</p>", "See you next week!"},
		{"emphasis", "<p>A <strong>big</strong> thank you</p>", "A **big** thank you"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToPlainText(tc.in)
			if err != nil {
				t.Fatalf("ToPlainText failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("ToPlainText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
