package task

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousOrMissingLine is returned when the line a record came from
// cannot be identified in the current document text.
var ErrAmbiguousOrMissingLine = errors.New("ambiguous or missing task line")

// LineMatchError reports how many lines matched a record's source line.
// It satisfies errors.Is(err, ErrAmbiguousOrMissingLine).
type LineMatchError struct {
	Line    string
	Matches int
}

func (e *LineMatchError) Error() string {
	if e == nil {
		return ErrAmbiguousOrMissingLine.Error()
	}
	if e.Matches == 0 {
		return fmt.Sprintf("task line not found: %q", e.Line)
	}
	return fmt.Sprintf("task line matches %d lines: %q", e.Matches, e.Line)
}

func (e *LineMatchError) Is(target error) bool {
	return target == ErrAmbiguousOrMissingLine
}

// InsertTask places line directly under the Tasks heading, ahead of existing
// tasks. Without a heading it appends a blank line, the heading and line.
func InsertTask(doc, line string) string {
	out, _ := InsertTaskLine(doc, line)
	return out
}

// InsertTaskLine is InsertTask that also reports the 1-based line number the
// task landed on. New lines follow the document's line endings.
func InsertTaskLine(doc, line string) (string, int) {
	lines := strings.Split(doc, "\n")
	idx := sectionIndex(lines)
	if idx < 0 {
		if strings.Contains(doc, "\r\n") {
			last := len(lines) - 1
			lines[last] = withCR(lines[last], true)
			lines = append(lines, "\r", SectionHeading+"\r", line)
		} else {
			lines = append(lines, "", SectionHeading, line)
		}
		return strings.Join(lines, "\n"), len(lines)
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:idx+1]...)
	out = append(out, withCR(line, strings.HasSuffix(lines[idx], "\r")))
	out = append(out, lines[idx+1:]...)
	return strings.Join(out, "\n"), idx + 2
}

// ToggleTask flips the checkbox of the line r was decoded from.
func ToggleTask(doc string, r Record) (string, error) {
	lines := strings.Split(doc, "\n")
	idx, err := locate(lines, r)
	if err != nil {
		return doc, err
	}
	lines[idx] = toggleMarker(lines[idx])
	return strings.Join(lines, "\n"), nil
}

// ReplaceTask swaps the line r was decoded from for line, keeping its
// position.
func ReplaceTask(doc string, r Record, line string) (string, error) {
	lines := strings.Split(doc, "\n")
	idx, err := locate(lines, r)
	if err != nil {
		return doc, err
	}
	lines[idx] = withCR(line, strings.HasSuffix(lines[idx], "\r"))
	return strings.Join(lines, "\n"), nil
}

// DeleteTask removes the line r was decoded from.
func DeleteTask(doc string, r Record) (string, error) {
	lines := strings.Split(doc, "\n")
	idx, err := locate(lines, r)
	if err != nil {
		return doc, err
	}
	lines = append(lines[:idx], lines[idx+1:]...)
	return strings.Join(lines, "\n"), nil
}

// Locate returns the 1-based line number of r's source line in doc, under the
// same rules the edit functions use.
func Locate(doc string, r Record) (int, error) {
	idx, err := locate(strings.Split(doc, "\n"), r)
	if err != nil {
		return 0, err
	}
	return idx + 1, nil
}

// locate finds the index of r's source line. A line number hint that still
// points at the exact source line wins, which keeps duplicate lines
// addressable. Otherwise the source line must occur exactly once.
func locate(lines []string, r Record) (int, error) {
	if r.SourceLine == "" {
		return -1, &LineMatchError{}
	}
	if r.Line > 0 && r.Line <= len(lines) && lines[r.Line-1] == r.SourceLine {
		return r.Line - 1, nil
	}
	idx, matches := -1, 0
	for i, line := range lines {
		if line == r.SourceLine {
			if idx < 0 {
				idx = i
			}
			matches++
		}
	}
	if matches != 1 {
		return -1, &LineMatchError{Line: r.SourceLine, Matches: matches}
	}
	return idx, nil
}

// withCR adds a trailing carriage return to line when cr is set.
func withCR(line string, cr bool) string {
	if cr && !strings.HasSuffix(line, "\r") {
		return line + "\r"
	}
	return line
}

func toggleMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "- [ ]"):
		return "- [x]" + line[len("- [ ]"):]
	case strings.HasPrefix(line, "- [x]"):
		return "- [ ]" + line[len("- [x]"):]
	default:
		return line
	}
}
