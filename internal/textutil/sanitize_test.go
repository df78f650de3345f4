package textutil

import "testing"

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"8407":             "8407",
		"  Show-12  ":      "show-12",
		"../../etc/passwd": "etc_passwd",
		"a b/c":            "a_b_c",
		"Émile":            "mile",
		"":                 "unknown",
		"///":              "unknown",
		"rating_key":       "rating_key",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
