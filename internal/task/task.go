// Package task implements the markdown task-line format used inside project
// notes: decoding and encoding single lines, locating the Tasks section,
// classifying records into tabs and editing document text in place.
package task

import (
	"fmt"
	"strconv"
	"strings"
)

type Priority int

const (
	PriorityNone Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// String returns the label used on the wire, or "" for PriorityNone.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return ""
	}
}

// ParsePriority accepts user input ("high", "H", "Medium", ...). Empty input
// and "none" map to PriorityNone.
func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-":
		return PriorityNone, true
	case "high", "h":
		return PriorityHigh, true
	case "medium", "med", "m":
		return PriorityMedium, true
	case "low", "l":
		return PriorityLow, true
	default:
		return PriorityNone, false
	}
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, ok := ParsePriority(string(b))
	if !ok {
		return fmt.Errorf("unknown priority %q", string(b))
	}
	*p = v
	return nil
}

func priorityFromLabel(label string) Priority {
	switch label {
	case "High":
		return PriorityHigh
	case "Medium":
		return PriorityMedium
	case "Low":
		return PriorityLow
	default:
		return PriorityNone
	}
}

// Record is one decoded task line.
//
// SourceLine, Document, Path and Line identify where the record was read from.
// Document is the note name, which several notes may share; Path is the
// store's unique location for it. They are not rewritten when the other
// fields are edited.
type Record struct {
	Done       bool     `json:"done"`
	Text       string   `json:"text"`
	Due        string   `json:"due,omitempty"`
	Priority   Priority `json:"priority,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	SourceLine string   `json:"source_line"`
	Document   string   `json:"document,omitempty"`
	Path       string   `json:"path,omitempty"`
	Line       int      `json:"line,omitempty"`
}

// HasDue reports whether the record is planned.
func (r Record) HasDue() bool {
	return r.Due != ""
}

// Ref renders the record location as "<document>:<line>".
func (r Record) Ref() string {
	if r.Document == "" || r.Line <= 0 {
		return ""
	}
	return r.Document + ":" + strconv.Itoa(r.Line)
}

// Equal compares the task content of two records. Location fields are
// ignored and tags compare as sets.
func (r Record) Equal(o Record) bool {
	if r.Done != o.Done || r.Text != o.Text || r.Due != o.Due || r.Priority != o.Priority {
		return false
	}
	a := NormalizeTags(r.Tags)
	b := NormalizeTags(o.Tags)
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, t := range a {
		seen[t] = true
	}
	for _, t := range b {
		if !seen[t] {
			return false
		}
	}
	return true
}

// HasTag reports whether tag is in the record's tag set.
func (r Record) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// NormalizeTags drops empty entries and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
