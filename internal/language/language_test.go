package language

import "testing"

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatal("expected error for empty tag")
	}
	if _, err := Parse("!!"); err == nil {
		t.Fatal("expected error for invalid tag")
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"ja":      "Japanese",
		"zh-Hans": "Simplified Chinese",
		"en":      "English",
	}
	for tag, want := range cases {
		if got := DisplayName(tag); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestDisplayNameFallsBackToInput(t *testing.T) {
	if got := DisplayName("???"); got != "???" {
		t.Fatalf("expected raw fallback, got %q", got)
	}
}
