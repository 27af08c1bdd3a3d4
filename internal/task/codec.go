package task

import (
	"regexp"
	"strings"
)

// Wire-format glyphs. They are part of the stored format and must not change.
const (
	DueGlyph = "📅"
	TagGlyph = "🔖"
)

var (
	taskLineRe   = regexp.MustCompile(`^- \[( |x)\]`)
	taskPrefixRe = regexp.MustCompile(`^- \[( |x)\]\s?`)
	dueRe        = regexp.MustCompile(DueGlyph + ` (\d{4}-\d{2}-\d{2})`)
	priorityRe   = regexp.MustCompile(`\((High|Medium|Low)\)`)
	tagRe        = regexp.MustCompile(TagGlyph + `\s*(\w+)`)
	tagWordRe    = regexp.MustCompile(`^\w+$`)
	dateRe       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsTaskLine reports whether line starts with an open or completed checkbox.
func IsTaskLine(line string) bool {
	return taskLineRe.MatchString(line)
}

// IsValidTag reports whether tag can be stored as a tag token.
func IsValidTag(tag string) bool {
	return tagWordRe.MatchString(tag)
}

// IsValidDue reports whether due has the YYYY-MM-DD digit shape. Calendar
// correctness is not checked.
func IsValidDue(due string) bool {
	return dateRe.MatchString(due)
}

// Encode renders r as a task line:
//
//	- [ ] text 📅 2024-01-01 (High) 🔖 bug 🔖 ui
func Encode(r Record) string {
	marker := "- [ ]"
	if r.Done {
		marker = "- [x]"
	}
	fields := []string{marker}
	if text := strings.TrimSpace(r.Text); text != "" {
		fields = append(fields, text)
	}
	if r.Due != "" {
		fields = append(fields, DueGlyph+" "+r.Due)
	}
	if label := r.Priority.String(); label != "" {
		fields = append(fields, "("+label+")")
	}
	for _, tag := range NormalizeTags(r.Tags) {
		fields = append(fields, TagGlyph+" "+tag)
	}
	return strings.Join(fields, " ")
}

// Decode parses a task line. It returns false when line is not a task line.
//
// When a line carries several due dates or priorities the first occurrence
// wins; the others stay in Text. Every tag token is collected.
func Decode(line string) (Record, bool) {
	m := taskPrefixRe.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}
	r := Record{
		Done:       m[1] == "x",
		SourceLine: line,
	}
	rest := line[len(m[0]):]

	if loc := dueRe.FindStringSubmatchIndex(rest); loc != nil {
		r.Due = rest[loc[2]:loc[3]]
		rest = rest[:loc[0]] + rest[loc[1]:]
	}
	if loc := priorityRe.FindStringSubmatchIndex(rest); loc != nil {
		r.Priority = priorityFromLabel(rest[loc[2]:loc[3]])
		rest = rest[:loc[0]] + rest[loc[1]:]
	}
	var tags []string
	for _, tm := range tagRe.FindAllStringSubmatch(rest, -1) {
		tags = append(tags, tm[1])
	}
	r.Tags = NormalizeTags(tags)
	rest = tagRe.ReplaceAllString(rest, "")

	r.Text = strings.TrimSpace(rest)
	return r, true
}

// ScanTags returns every tag token in text, de-duplicated.
func ScanTags(text string) []string {
	var tags []string
	for _, tm := range tagRe.FindAllStringSubmatch(text, -1) {
		tags = append(tags, tm[1])
	}
	return NormalizeTags(tags)
}
