package store

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

// NormalizeTagInput cleans a user supplied tag: leading #, @ and 🔖 are
// dropped and inner whitespace or hyphens become underscores. The result must
// be a single word.
func NormalizeTagInput(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, task.TagGlyph)
	tag = strings.TrimLeft(strings.TrimSpace(tag), "#@")
	tag = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return '_'
		}
		return r
	}, strings.TrimSpace(tag))
	if tag == "" {
		return "", nil
	}
	if !task.IsValidTag(tag) {
		return "", fmt.Errorf("%w: tag %q must be letters, digits or underscores", ErrInvalid, tag)
	}
	return tag, nil
}

// normalizeTagInputs cleans every tag and de-duplicates the result.
func normalizeTagInputs(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag, err := NormalizeTagInput(raw)
		if err != nil {
			return nil, err
		}
		if tag != "" {
			out = append(out, tag)
		}
	}
	return task.NormalizeTags(out), nil
}

// scanDocumentTags collects tag tokens from text, ignoring fenced code blocks.
func scanDocumentTags(text string) []string {
	var tags []string
	s := strings.ReplaceAll(text, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	inFence := false
	fence := ""
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			if !inFence {
				inFence = true
				fence = trimmed[:3]
			} else if fence == "" || strings.HasPrefix(trimmed, fence) {
				inFence = false
				fence = ""
			}
			continue
		}
		if inFence {
			continue
		}
		tags = append(tags, task.ScanTags(line)...)
	}
	return tags
}

// mergeTags returns defaults in their given order followed by the remaining
// tags sorted, without duplicates.
func mergeTags(defaults []string, found []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(defaults)+len(found))
	for _, t := range defaults {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	var rest []string
	for _, t := range found {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		rest = append(rest, t)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
