// Package frontmatter reads and edits the YAML block at the top of a note.
//
// Grammar handled here:
//
//	doc      = block body | body
//	block    = "---" NL { line NL } "---" [NL]
//	line     = key ":" value
//
// Values are decoded with yaml.v3. Edits are line based so keys this package
// does not know about are written back untouched.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	delimiter     = "---"
	ScratchpadKey = "scratchpad"
	ProjectType   = "Project"
)

// Meta holds the frontmatter keys the task manager cares about.
type Meta struct {
	Type       string `yaml:"type"`
	Scratchpad string `yaml:"scratchpad"`
}

// Split separates the frontmatter lines from the rest of doc. ok is false
// when doc does not start with a complete block.
func Split(doc string) (block []string, body string, ok bool) {
	lines := strings.Split(doc, "\n")
	if len(lines) < 2 || trimCR(lines[0]) != delimiter {
		return nil, doc, false
	}
	for i := 1; i < len(lines); i++ {
		if trimCR(lines[i]) == delimiter {
			return lines[1:i], strings.Join(lines[i+1:], "\n"), true
		}
	}
	return nil, doc, false
}

// Parse decodes the frontmatter of doc. A document without frontmatter
// yields an empty Meta and ok == false.
func Parse(doc string) (Meta, bool, error) {
	block, _, ok := Split(doc)
	if !ok {
		return Meta{}, false, nil
	}
	var meta Meta
	src := strings.Join(block, "\n")
	if strings.TrimSpace(src) == "" {
		return meta, true, nil
	}
	if err := yaml.Unmarshal([]byte(src), &meta); err != nil {
		return Meta{}, true, fmt.Errorf("frontmatter: %w", err)
	}
	return meta, true, nil
}

// IsProject reports whether doc declares type: Project.
func IsProject(doc string) bool {
	meta, ok, err := Parse(doc)
	if !ok || err != nil {
		return false
	}
	return meta.Type == ProjectType
}

// Scratchpad returns the decoded scratchpad value of doc.
func Scratchpad(doc string) (string, error) {
	meta, _, err := Parse(doc)
	if err != nil {
		return "", err
	}
	return meta.Scratchpad, nil
}

// SetScratchpad stores value under the scratchpad key. A document without
// frontmatter gets a new block declaring it a project.
func SetScratchpad(doc, value string) string {
	entry := ScratchpadKey + ": " + Quote(value)
	block, body, ok := Split(doc)
	if !ok {
		return delimiter + "\ntype: " + ProjectType + "\n" + entry + "\n" + delimiter + "\n\n" + doc
	}

	out := make([]string, 0, len(block)+1)
	replaced := false
	for i := 0; i < len(block); i++ {
		line := block[i]
		if !isKeyLine(line, ScratchpadKey) {
			out = append(out, line)
			continue
		}
		if !replaced {
			out = append(out, entry)
			replaced = true
		}
		// drop continuation lines of a hand-written multi-line value
		for i+1 < len(block) && isContinuation(block[i+1]) {
			i++
		}
	}
	if !replaced {
		out = append(out, entry)
	}
	return delimiter + "\n" + joinBlock(out) + delimiter + "\n" + body
}

// Quote renders s as a double-quoted YAML scalar on a single line.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func joinBlock(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func isKeyLine(line, key string) bool {
	return strings.HasPrefix(line, key+":")
}

func isContinuation(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}
