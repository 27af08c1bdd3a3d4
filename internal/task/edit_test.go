package task

import (
	"errors"
	"strings"
	"testing"
)

func TestInsertTaskCreatesSection(t *testing.T) {
	doc := "---\ntype: Project\n---\n\nNotes about the kitchen."
	line := Encode(Record{Text: "Buy milk"})
	got := InsertTask(doc, line)
	if !strings.HasSuffix(got, "\n## Tasks\n- [ ] Buy milk") {
		t.Fatalf("unexpected document:\n%s", got)
	}
	if !strings.HasPrefix(got, doc+"\n") {
		t.Fatalf("expected original content preserved:\n%s", got)
	}
}

func TestInsertTaskPrependsWithinSection(t *testing.T) {
	doc := "# Home\n## Tasks\n- [ ] first\n- [x] second\n\nTrailing prose\n"
	got := InsertTask(doc, "- [ ] newest")
	want := "# Home\n## Tasks\n- [ ] newest\n- [ ] first\n- [x] second\n\nTrailing prose\n"
	if got != want {
		t.Fatalf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestInsertTaskLineReportsPosition(t *testing.T) {
	doc, n := InsertTaskLine("# Home\n## Tasks\n- [ ] first", "- [ ] second")
	if n != 3 {
		t.Fatalf("expected line 3, got %d", n)
	}
	if strings.Split(doc, "\n")[n-1] != "- [ ] second" {
		t.Fatalf("line %d is not the new task in %q", n, doc)
	}

	doc, n = InsertTaskLine("intro", "- [ ] only")
	if n != 4 || !strings.HasSuffix(doc, "\n- [ ] only") {
		t.Fatalf("expected appended task at line 4, got %d in %q", n, doc)
	}
}

func TestToggleTask(t *testing.T) {
	doc := "## Tasks\n- [ ] Buy milk 📅 2024-01-01\n"
	r, _ := Decode("- [ ] Buy milk 📅 2024-01-01")
	got, err := ToggleTask(doc, r)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got != "## Tasks\n- [x] Buy milk 📅 2024-01-01\n" {
		t.Fatalf("unexpected document %q", got)
	}
	r2, _ := Decode("- [x] Buy milk 📅 2024-01-01")
	back, err := ToggleTask(got, r2)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if back != doc {
		t.Fatalf("expected original document after double toggle, got %q", back)
	}
}

func TestDeleteAmbiguousLeavesDocument(t *testing.T) {
	doc := "## Tasks\n- [ ] Call Bob\n- [ ] Call Bob\n"
	r, _ := Decode("- [ ] Call Bob")
	got, err := DeleteTask(doc, r)
	if !errors.Is(err, ErrAmbiguousOrMissingLine) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	var lm *LineMatchError
	if !errors.As(err, &lm) || lm.Matches != 2 {
		t.Fatalf("expected 2 matches in error, got %v", err)
	}
	if got != doc {
		t.Fatalf("expected document unchanged, got %q", got)
	}
}

func TestDeleteUsesLineHintForDuplicates(t *testing.T) {
	doc := "## Tasks\n- [ ] Call Bob\n- [ ] Call Bob\n"
	r, _ := Decode("- [ ] Call Bob")
	r.Line = 3
	got, err := DeleteTask(doc, r)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got != "## Tasks\n- [ ] Call Bob\n" {
		t.Fatalf("unexpected document %q", got)
	}
}

func TestStaleLineHintFallsBackToUniqueMatch(t *testing.T) {
	doc := "intro\n## Tasks\n- [ ] Only once\n"
	r, _ := Decode("- [ ] Only once")
	r.Line = 1
	got, err := ReplaceTask(doc, r, "- [ ] Renamed")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got != "intro\n## Tasks\n- [ ] Renamed\n" {
		t.Fatalf("unexpected document %q", got)
	}
}

func TestMissingLine(t *testing.T) {
	doc := "## Tasks\n- [ ] Something else\n"
	r, _ := Decode("- [ ] Gone")
	if _, err := ToggleTask(doc, r); !errors.Is(err, ErrAmbiguousOrMissingLine) {
		t.Fatalf("expected missing line error, got %v", err)
	}
	if _, err := DeleteTask(doc, Record{}); !errors.Is(err, ErrAmbiguousOrMissingLine) {
		t.Fatalf("expected error for empty source line, got %v", err)
	}
}

func TestReplacePreservesSurroundingContent(t *testing.T) {
	doc := "---\nscratchpad: \"keep \\\"me\\\"\"\n---\n## Tasks\n- [ ] a\n- [ ] b\n- [ ] c"
	r, _ := Decode("- [ ] b")
	got, err := ReplaceTask(doc, r, Encode(Record{Text: "b", Due: "2024-02-02"}))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want := "---\nscratchpad: \"keep \\\"me\\\"\"\n---\n## Tasks\n- [ ] a\n- [ ] b 📅 2024-02-02\n- [ ] c"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEditsKeepCRLFLineEndings(t *testing.T) {
	doc := "# Home\r\n## Tasks\r\n- [ ] first\r\n- [ ] second\r\n"

	got := InsertTask(doc, "- [ ] newest")
	want := "# Home\r\n## Tasks\r\n- [ ] newest\r\n- [ ] first\r\n- [ ] second\r\n"
	if got != want {
		t.Fatalf("insert: expected %q, got %q", want, got)
	}

	r := Record{SourceLine: "- [ ] first\r", Line: 3}
	got, err := ReplaceTask(doc, r, "- [x] first (High)")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	want = "# Home\r\n## Tasks\r\n- [x] first (High)\r\n- [ ] second\r\n"
	if got != want {
		t.Fatalf("replace: expected %q, got %q", want, got)
	}

	got = InsertTask("intro\r\n", "- [ ] only")
	want = "intro\r\n\r\n\r\n## Tasks\r\n- [ ] only"
	if got != want {
		t.Fatalf("new section: expected %q, got %q", want, got)
	}
	if strings.Contains(strings.ReplaceAll(got, "\r\n", ""), "\n") {
		t.Fatalf("mixed line endings in %q", got)
	}
}
