package util

import (
	"strings"
	"testing"
)

func TestSlugComponent(t *testing.T) {
	cases := map[string]string{
		"Acme Corp.":        "Acme_Corp_",
		"Sr. Go Engineer":   "Sr__Go_Engineer",
		"Zoë":               "Zo_",
		"already_sanitized": "already_sanitized",
		"":                  "",
	}
	for in, want := range cases {
		if got := SlugComponent(in); got != want {
			t.Fatalf("SlugComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugComponentIsIdempotent(t *testing.T) {
	inputs := []string{"Jane Doe", "R&D / Platform", "C++ dev", "ünïcødé", "__"}
	for _, in := range inputs {
		once := SlugComponent(in)
		if twice := SlugComponent(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"../etc/passwd":        "__etc_passwd",
		"a/b.docx":             "a_b.docx",
		"Ada Lovelace CV.pdf":  "Ada_Lovelace_CV.pdf",
		".hidden":              "hidden",
		"cv..final.docx":       "cv_final.docx",
		`C:\Users\ada\cv.docx`: "C__Users_ada_cv.docx",
	}
	for in, want := range cases {
		got, err := SanitizeFileName(in)
		if err != nil {
			t.Fatalf("SanitizeFileName(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFileNameRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "..", "/"} {
		if _, err := SanitizeFileName(in); err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestSanitizeFileNameKeepsExtensionWhenTruncating(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("a", 300) + ".docx")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if len(got) != maxFileNameLen || !strings.HasSuffix(got, ".docx") {
		t.Fatalf("unexpected truncation %q (%d)", got, len(got))
	}
}
