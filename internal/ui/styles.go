package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/internal/task"
)

var (
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	colorError  = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF6B6B"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#4338CA", Dark: "#C7D2FE"}
	colorBorder = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true)
)

var priorityColors = map[task.Priority]lipgloss.AdaptiveColor{
	task.PriorityLow:    {Light: "#0369A1", Dark: "#BAE6FD"},
	task.PriorityMedium: {Light: "#B45309", Dark: "#FDE68A"},
	task.PriorityHigh:   {Light: "#BE123C", Dark: "#FECDD3"},
}

var statusColors = map[task.Status]lipgloss.AdaptiveColor{
	task.StatusTodo:       {Light: "#334155", Dark: "#F1F5F9"},
	task.StatusInProgress: {Light: "#4338CA", Dark: "#C7D2FE"},
	task.StatusCompleted:  {Light: "#047857", Dark: "#A7F3D0"},
}

func priorityBadge(p task.Priority) string {
	return badgeStyle.Foreground(priorityColors[p]).Render(string(p))
}

func statusBadge(s task.Status) string {
	return badgeStyle.Foreground(statusColors[s]).Render(statusLabel(s))
}

func statusLabel(s task.Status) string {
	if s == task.StatusInProgress {
		return "in progress"
	}
	return string(s)
}

// renderMarkdown renders a task description for the terminal, falling back
// to the raw text when glamour fails.
func renderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width-4),
		glamour.WithEmoji(),
	)
	if err != nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
