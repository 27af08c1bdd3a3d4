package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
)

// styleTaskLine colors a rendered listing line by priority; done tasks are
// struck through.
func styleTaskLine(r task.Record, line string) string {
	if r.Done {
		return doneStyle.Render(line)
	}
	if s, ok := priorityStyles[r.Priority]; ok {
		return s.Render(line)
	}
	return line
}
