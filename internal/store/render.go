package store

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

// RenderOptions controls RenderTab.
type RenderOptions struct {
	GroupBy    string // none|project
	ShowTotals bool
	Format     string // ""|telegram
	// Style decorates one rendered task line, e.g. with terminal colors.
	Style func(r task.Record, line string) string
}

// RenderTab renders records as the listing of tab on the given day.
func RenderTab(records []task.Record, tab task.Tab, today string, opts RenderOptions) string {
	groupBy := normalizeGroupBy(opts.GroupBy)
	if isTelegramFormat(opts.Format) {
		return renderTelegramTab(records, tab, today, groupBy, opts.ShowTotals)
	}
	title := tabTitle(tab, today)
	if len(records) == 0 {
		return fmt.Sprintf("%s - no tasks", title)
	}
	if tab == task.TabTodo || tab == task.TabOverdue {
		records = append([]task.Record(nil), records...)
		sortByDue(records)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s - %d %s\n\n", title, len(records), plural(len(records), "task", "tasks")))
	writeTaskSection(&b, records, groupBy, opts.ShowTotals, tab != task.TabToday, opts.Style)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// RenderCounts renders tab counts on one line, e.g. "all 4 · today 1 · ...".
func RenderCounts(c task.Counts, active task.Tab) string {
	parts := make([]string, 0, len(task.Tabs))
	for _, tab := range task.Tabs {
		label := fmt.Sprintf("%s %d", tab, c.Get(tab))
		if tab == active {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " · ")
}

func tabTitle(tab task.Tab, today string) string {
	switch tab {
	case task.TabToday:
		return fmt.Sprintf("Today (%s)", today)
	case task.TabTodo:
		return "To do"
	case task.TabOverdue:
		return fmt.Sprintf("Overdue (before %s)", today)
	case task.TabUnplanned:
		return "Unplanned"
	default:
		return "All tasks"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func writeTaskSection(b *strings.Builder, records []task.Record, groupBy string, showTotals bool, includeDue bool, style func(task.Record, string) string) {
	if groupBy == "" {
		for _, r := range records {
			b.WriteString(formatTaskLine(r, "", includeDue, style))
		}
		b.WriteString("\n")
		return
	}
	keys, grouped := groupTasks(records, groupBy)
	for _, key := range keys {
		header := key
		if showTotals {
			header = fmt.Sprintf("%s (%d)", header, len(grouped[key]))
		}
		b.WriteString(header + "\n")
		for _, r := range grouped[key] {
			b.WriteString(formatTaskLine(r, groupBy, includeDue, style))
		}
		b.WriteString("\n")
	}
}

func normalizeGroupBy(groupBy string) string {
	groupBy = strings.TrimSpace(strings.ToLower(groupBy))
	switch groupBy {
	case "project":
		return groupBy
	default:
		return ""
	}
}

// groupTasks groups by document, keeping first-seen document order.
func groupTasks(records []task.Record, groupBy string) ([]string, map[string][]task.Record) {
	grouped := map[string][]task.Record{}
	var keys []string
	for _, r := range records {
		key := ""
		if groupBy == "project" {
			key = r.Document
		}
		if _, ok := grouped[key]; !ok {
			keys = append(keys, key)
		}
		grouped[key] = append(grouped[key], r)
	}
	return keys, grouped
}

func formatTaskLine(r task.Record, groupBy string, includeDue bool, style func(task.Record, string) string) string {
	box := "[ ]"
	if r.Done {
		box = "[x]"
	}
	var b strings.Builder
	b.WriteString(box + " ")
	b.WriteString(priorityLabel(r.Priority))
	b.WriteString(taskTitle(r.Text))
	b.WriteString(formatDueSuffix(r.Due, includeDue))
	for _, tag := range r.Tags {
		b.WriteString(" #" + tag)
	}
	line := b.String()
	if style != nil {
		line = style(r, line)
	}
	ref := r.Ref()
	if groupBy == "project" && r.Line > 0 {
		ref = fmt.Sprintf(":%d", r.Line)
	}
	if ref != "" {
		line += "  (" + ref + ")"
	}
	return "  " + line + "\n"
}

func taskTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func formatDueSuffix(due string, includeDue bool) string {
	if !includeDue {
		return ""
	}
	due = strings.TrimSpace(due)
	if due == "" {
		return ""
	}
	return fmt.Sprintf(" (due %s)", due)
}

func priorityLabel(p task.Priority) string {
	label := p.String()
	if label == "" {
		return ""
	}
	return "[" + label[:1] + "] "
}

func parseDueDate(due string) (time.Time, bool) {
	due = strings.TrimSpace(due)
	if due == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(task.DateLayout, due)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// sortByDue orders planned tasks by date ahead of unplanned ones, keeping
// document order among equals.
func sortByDue(records []task.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := records[i].Due, records[j].Due
		if di == dj {
			return false
		}
		if di == "" {
			return false
		}
		if dj == "" {
			return true
		}
		return di < dj
	})
}
