// Package render draws maintenance plans and notifications for the terminal.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gartstein/arctecfox/internal/arctecfox/models"
	"github.com/gartstein/arctecfox/internal/arctecfox/notify"
)

// EmptyPlan is shown when there are no tasks.
const EmptyPlan = "No plan generated yet."

var (
	primary = lipgloss.Color("#2563eb")
	muted   = lipgloss.Color("#6b7280")

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(primary).
			Bold(true).
			MarginBottom(1)

	taskStyle = lipgloss.NewStyle().
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	toastStyles = map[notify.Severity]lipgloss.Style{
		notify.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#0ea5e9")),
		notify.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a")).Bold(true),
		notify.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626")).Bold(true),
		notify.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706")).Bold(true),
	}
)

// Plan renders the task list as one card.
func Plan(tasks []models.MaintenanceTask) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Maintenance Plan Results"))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString(mutedStyle.Render(EmptyPlan))
		return cardStyle.Render(b.String())
	}

	for i, task := range tasks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Task(task))
	}
	return cardStyle.Render(b.String())
}

// Task renders a single maintenance task.
func Task(task models.MaintenanceTask) string {
	lines := []string{
		taskStyle.Render(task.TaskName),
		field("Interval", task.MaintenanceInterval),
		field("Reason", task.Reason),
		labelStyle.Render("Instructions:"),
	}
	for _, step := range task.Instructions {
		lines = append(lines, "  • "+step)
	}
	lines = append(lines,
		field("Engineering Rationale", task.EngineeringRationale),
		field("Safety", task.SafetyPrecautions),
		field("Failures Prevented", task.CommonFailuresPrevented),
		field("Usage Insights", task.UsageInsights),
		field("Scheduled Dates", strings.Join(task.ScheduledDates, ", ")),
	)
	return strings.Join(lines, "\n")
}

// Toast renders one notification line.
func Toast(msg notify.Message) string {
	style, ok := toastStyles[msg.Severity]
	if !ok {
		style = toastStyles[notify.Info]
	}
	return style.Render("[" + string(msg.Severity) + "] " + msg.Text)
}

func field(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}
