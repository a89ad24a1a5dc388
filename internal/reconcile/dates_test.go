package reconcile

import (
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"45389":                "07/04/2024",
		"45389.0":              "07/04/2024",
		"07/04/2024":           "07/04/2024",
		"7/4/2024":             "07/04/2024",
		"07-04-2024":           "07/04/2024",
		"2024-04-07":           "07/04/2024",
		"07-Apr-2024":          "07/04/2024",
		" 7 Apr 2024 ":         "07/04/2024",
		"2024-04-07T10:00:00Z": "07/04/2024",
		"12345":                "12345",
		"NaN":                  "NaN",
		"Inf":                  "Inf",
		"-Inf":                 "-Inf",
		"20240405":             "20240405",
		"not a date":           "not a date",
		"":                     "",
	}
	for in, want := range cases {
		if got := NormalizeDate(in); got != want {
			t.Fatalf("NormalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("45389")
	if !ok || got.Month() != 4 || got.Day() != 7 {
		t.Fatalf("unexpected parse: %v %v", got, ok)
	}
	if _, ok := ParseDate("garbage"); ok {
		t.Fatalf("expected garbage to fail")
	}
}
