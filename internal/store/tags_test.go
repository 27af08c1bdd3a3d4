package store

import (
	"errors"
	"testing"
)

func TestNormalizeTagInput(t *testing.T) {
	cases := map[string]string{
		"bug":         "bug",
		"  #feature ": "feature",
		"🔖 ui":        "ui",
		"@home":       "home",
		"two words":   "two_words",
		"follow-up":   "follow_up",
		"":            "",
	}
	for in, want := range cases {
		got, err := NormalizeTagInput(in)
		if err != nil {
			t.Fatalf("normalize(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("normalize(%q): expected %q, got %q", in, want, got)
		}
	}
	for _, bad := range []string{"a.b", "ok!", "ünï"} {
		if _, err := NormalizeTagInput(bad); !errors.Is(err, ErrInvalid) {
			t.Errorf("expected ErrInvalid for %q, got %v", bad, err)
		}
	}
}

func TestScanDocumentTagsSkipsCodeFences(t *testing.T) {
	input := "- [ ] Keep 🔖 one\n```go\n- [ ] x 🔖 two\n```\n~~~\n🔖 three\n~~~\nAfter 🔖 four\n"
	tags := scanDocumentTags(input)
	want := []string{"one", "four"}
	if len(tags) != len(want) {
		t.Fatalf("expected %d tags, got %d: %#v", len(want), len(tags), tags)
	}
	for i, tag := range tags {
		if tag != want[i] {
			t.Fatalf("expected tag %q at index %d, got %q", want[i], i, tag)
		}
	}
}

func TestMergeTagsKeepsDefaultsFirst(t *testing.T) {
	got := mergeTags([]string{"feature", "bug"}, []string{"zeta", "bug", "alpha", "zeta"})
	want := []string{"feature", "bug", "alpha", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
