package store

import (
	"fmt"
	"strings"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

const telegramMaxChars = 3800

func isTelegramFormat(format string) bool {
	return strings.ToLower(strings.TrimSpace(format)) == "telegram"
}

func trimTelegramOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= telegramMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	suffixRunes := []rune(suffix)
	limit := telegramMaxChars - len(suffixRunes)
	if limit < 1 {
		return string(runes[:telegramMaxChars])
	}
	return string(runes[:limit]) + suffix
}

func telegramPriorityEmoji(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return "🔴"
	case task.PriorityMedium:
		return "🟠"
	case task.PriorityLow:
		return "🟡"
	default:
		return ""
	}
}

func telegramTabEmoji(tab task.Tab) string {
	switch tab {
	case task.TabToday:
		return "📅"
	case task.TabTodo:
		return "📝"
	case task.TabOverdue:
		return "⚠️"
	case task.TabUnplanned:
		return "📥"
	default:
		return "📋"
	}
}

func cleanTaskTitle(title string) string {
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

// formatDueShort drops the year when it matches today's.
func formatDueShort(due, today string) string {
	due = strings.TrimSpace(due)
	if due == "" {
		return ""
	}
	if t, ok := parseDueDate(due); ok {
		if strings.HasPrefix(today, t.Format("2006")) {
			return t.Format("Jan 02")
		}
		return t.Format("Jan 02 2006")
	}
	return due
}

func telegramTaskLine(r task.Record, context string, includeDue bool, today string) string {
	var b strings.Builder
	b.WriteString("• ")
	if r.Done {
		b.WriteString("✅ ")
	}
	if pri := telegramPriorityEmoji(r.Priority); pri != "" {
		b.WriteString(pri)
		b.WriteString(" ")
	}
	b.WriteString(cleanTaskTitle(r.Text))
	context = strings.TrimSpace(context)
	if context != "" {
		b.WriteString(" — ")
		b.WriteString(context)
	}
	if includeDue {
		if due := formatDueShort(r.Due, today); due != "" {
			b.WriteString(" (due ")
			b.WriteString(due)
			b.WriteString(")")
		}
	}
	b.WriteString("\n")
	return b.String()
}

func telegramGroupHeader(key string, count int, showTotals bool) string {
	label := strings.TrimSpace(key)
	if label == "" {
		label = "(no project)"
	}
	label = "📁 " + label
	if showTotals {
		return fmt.Sprintf("%s (%d)", label, count)
	}
	return label
}

func writeTelegramSection(b *strings.Builder, records []task.Record, groupBy string, showTotals bool, includeDue bool, today string) bool {
	if len(records) == 0 {
		return false
	}
	if groupBy == "" {
		for _, r := range records {
			b.WriteString(telegramTaskLine(r, r.Document, includeDue, today))
		}
		b.WriteString("\n")
		return true
	}
	keys, grouped := groupTasks(records, groupBy)
	for _, key := range keys {
		b.WriteString(telegramGroupHeader(key, len(grouped[key]), showTotals))
		b.WriteString("\n")
		for _, r := range grouped[key] {
			b.WriteString(telegramTaskLine(r, "", includeDue, today))
		}
	}
	b.WriteString("\n")
	return true
}

func renderTelegramTab(records []task.Record, tab task.Tab, today string, groupBy string, showTotals bool) string {
	var b strings.Builder
	header := fmt.Sprintf("%s %s", telegramTabEmoji(tab), tabTitle(tab, today))
	if len(records) > 0 {
		header = fmt.Sprintf("%s (%d)", header, len(records))
	}
	b.WriteString(header)
	b.WriteString("\n\n")

	if !writeTelegramSection(&b, records, groupBy, showTotals, tab != task.TabToday, today) {
		b.WriteString("No tasks.\n")
	}
	return trimTelegramOutput(b.String())
}
