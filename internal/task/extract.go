package task

import (
	"iter"
	"regexp"
	"strings"
)

// SectionHeading marks the start of the task region in a project note.
const SectionHeading = "## Tasks"

var headingRe = regexp.MustCompile(`^#{1,6}(\s|$)`)

// ExtractOptions controls where the task section ends.
type ExtractOptions struct {
	// CloseAtHeading ends the section at the next markdown heading. When false
	// the section runs to the end of the document.
	CloseAtHeading bool
}

// Extract yields the raw task lines of the Tasks section in document order.
// The section runs to the end of the document.
func Extract(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range ExtractLines(text, ExtractOptions{}) {
			if !yield(line) {
				return
			}
		}
	}
}

// ExtractLines yields (line number, line) for every task line in the Tasks
// section. Line numbers are 1-based. A document without the heading yields
// nothing. The sequence is pure and can be ranged over repeatedly.
func ExtractLines(text string, opts ExtractOptions) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		inSection := false
		n := 0
		rest := text
		for more := true; more; {
			var line string
			line, rest, more = strings.Cut(rest, "\n")
			n++
			if !inSection {
				inSection = isSectionHeading(line)
				continue
			}
			if opts.CloseAtHeading && headingRe.MatchString(strings.TrimSpace(line)) {
				return
			}
			if !IsTaskLine(line) {
				continue
			}
			if !yield(n, line) {
				return
			}
		}
	}
}

// Records decodes the Tasks section of a document. Each record carries the
// document name and its line number.
func Records(document, text string, opts ExtractOptions) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for n, line := range ExtractLines(text, opts) {
			r, ok := Decode(line)
			if !ok {
				continue
			}
			r.Document = document
			r.Line = n
			if !yield(r) {
				return
			}
		}
	}
}

// HasSection reports whether text contains the Tasks heading.
func HasSection(text string) bool {
	return sectionIndex(strings.Split(text, "\n")) >= 0
}

func isSectionHeading(line string) bool {
	return strings.TrimSpace(line) == SectionHeading
}

func sectionIndex(lines []string) int {
	for i, line := range lines {
		if isSectionHeading(line) {
			return i
		}
	}
	return -1
}
