package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://www.webtoons.com/en/fantasy/some-series/list?title_no=123",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	base := "https://www.webtoons.com/en/fantasy/some-series/list?title_no=123"

	cases := []struct {
		href string
		want string
	}{
		{"/en/fantasy/some-series/ep-1/viewer?title_no=123&episode_no=1",
			"https://www.webtoons.com/en/fantasy/some-series/ep-1/viewer?title_no=123&episode_no=1"},
		{"https://cdn.example.com/img/001.jpg", "https://cdn.example.com/img/001.jpg"},
		{"list?title_no=123&page=2", "https://www.webtoons.com/en/fantasy/some-series/list?title_no=123&page=2"},
	}
	for _, tc := range cases {
		if got := ResolveURL(base, tc.href); got != tc.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tc.href, got, tc.want)
		}
	}
}
