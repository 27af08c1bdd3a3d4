package frontmatter

import (
	"strings"
	"testing"
)

func TestParseProject(t *testing.T) {
	doc := "---\ntype: Project\nstatus: active\nscratchpad: \"call \\\"Ana\\\"\"\n---\n\n## Tasks\n"
	meta, ok, err := Parse(doc)
	if err != nil || !ok {
		t.Fatalf("parse: ok=%t err=%v", ok, err)
	}
	if meta.Type != "Project" {
		t.Fatalf("expected Project, got %q", meta.Type)
	}
	if meta.Scratchpad != `call "Ana"` {
		t.Fatalf("unexpected scratchpad %q", meta.Scratchpad)
	}
	if !IsProject(doc) {
		t.Fatalf("expected project")
	}
}

func TestIsProjectRejects(t *testing.T) {
	cases := []string{
		"# no frontmatter\n",
		"---\ntype: Area\n---\n",
		"---\ntype: project\n---\n",
		"---\ntype: Project\n",
		"---\ntype: [broken\n---\n",
	}
	for _, doc := range cases {
		if IsProject(doc) {
			t.Errorf("did not expect project for %q", doc)
		}
	}
}

func TestSetScratchpadCreatesFrontmatter(t *testing.T) {
	got := SetScratchpad("# Garden\n", "hello")
	want := "---\ntype: Project\nscratchpad: \"hello\"\n---\n\n# Garden\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetScratchpadReplacesValue(t *testing.T) {
	doc := "---\ntype: Project\nscratchpad: \"old\"\nowner: me\n---\nbody\n"
	got := SetScratchpad(doc, "new")
	want := "---\ntype: Project\nscratchpad: \"new\"\nowner: me\n---\nbody\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetScratchpadAppendsKey(t *testing.T) {
	doc := "---\ntype: Project\n---\n## Tasks\n- [ ] a"
	got := SetScratchpad(doc, "x")
	want := "---\ntype: Project\nscratchpad: \"x\"\n---\n## Tasks\n- [ ] a"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSetScratchpadDropsBlockScalar(t *testing.T) {
	doc := "---\ntype: Project\nscratchpad: |\n  line one\n  line two\ntags: [a]\n---\n"
	got := SetScratchpad(doc, "flat")
	want := "---\ntype: Project\nscratchpad: \"flat\"\ntags: [a]\n---\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestScratchpadRoundTrip(t *testing.T) {
	values := []string{
		"",
		"plain",
		`with "quotes"`,
		"multi\nline\n\nnote",
		`back\slash and \n literal`,
		"tab\there",
		"unicode 📅 🔖 ok",
	}
	doc := "---\ntype: Project\n---\n\n## Tasks\n- [ ] keep me\n"
	for _, v := range values {
		updated := SetScratchpad(doc, v)
		got, err := Scratchpad(updated)
		if err != nil {
			t.Fatalf("scratchpad(%q): %v", v, err)
		}
		if got != v {
			t.Errorf("expected %q, got %q", v, got)
		}
		if !strings.HasSuffix(updated, "\n## Tasks\n- [ ] keep me\n") {
			t.Errorf("body changed for %q: %q", v, updated)
		}
		if !IsProject(updated) {
			t.Errorf("expected project after update for %q", v)
		}
	}
}

func TestSplitHandlesCRLF(t *testing.T) {
	block, body, ok := Split("---\r\ntype: Project\r\n---\r\nbody")
	if !ok {
		t.Fatalf("expected frontmatter")
	}
	if len(block) != 1 || body != "body" {
		t.Fatalf("unexpected split %#v %q", block, body)
	}
}
