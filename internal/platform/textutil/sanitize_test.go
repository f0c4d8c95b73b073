package textutil

import (
	"reflect"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"":                                    "",
		"  plain text  ":                      "plain text",
		"<script>alert(1)</script>Logo draft": "Logo draft",
		"<b>bold</b> & more":                  "bold & more",
		"Café":                          "Café",
	}
	for input, want := range cases {
		if got := Sanitize(input); got != want {
			t.Fatalf("Sanitize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeOptional(t *testing.T) {
	if SanitizeOptional(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	blank := "  <i></i> "
	if SanitizeOptional(&blank) != nil {
		t.Fatalf("expected nil when nothing remains")
	}
	reason := " <p>Not a fit</p> "
	got := SanitizeOptional(&reason)
	if got == nil || *got != "Not a fit" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestSanitizeList(t *testing.T) {
	got := SanitizeList([]string{" a ", "", "<b></b>", "b"})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("unexpected list %v", got)
	}
	if SanitizeList([]string{" "}) != nil {
		t.Fatalf("expected nil when all entries are empty")
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Premium "); got != "premium" {
		t.Fatalf("unexpected key %q", got)
	}
}
