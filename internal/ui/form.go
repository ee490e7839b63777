package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/task"
)

type formField int

const (
	fieldTitle formField = iota
	fieldDescription
	fieldPriority
	fieldStatus
	fieldCount
)

func (f formField) label() string {
	switch f {
	case fieldTitle:
		return "Title"
	case fieldDescription:
		return "Description"
	case fieldPriority:
		return "Priority"
	case fieldStatus:
		return "Status"
	}
	return ""
}

// formState backs the create and edit form. editID is zero when creating.
type formState struct {
	editID      int
	title       textinput.Model
	description textinput.Model
	priority    task.Priority
	status      task.Status
	focus       formField
	err         string
}

func newForm(t *task.Task, width int) *formState {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 256
	description := textinput.New()
	description.Placeholder = "Optional description (markdown)"
	description.CharLimit = 2048

	f := &formState{
		title:       title,
		description: description,
		priority:    task.DefaultPriority,
		status:      task.DefaultStatus,
	}
	if t != nil {
		f.editID = t.ID
		f.title.SetValue(t.Title)
		f.description.SetValue(t.Description)
		f.priority = t.Priority
		f.status = t.Status
	}
	f.setWidth(width)
	f.focusField(fieldTitle)
	return f
}

func (f *formState) editing() bool { return f.editID != 0 }

func (f *formState) setWidth(width int) {
	w := max(width-20, 20)
	f.title.Width = w
	f.description.Width = w
}

func (f *formState) focusField(field formField) {
	f.focus = field
	f.title.Blur()
	f.description.Blur()
	switch field {
	case fieldTitle:
		f.title.Focus()
	case fieldDescription:
		f.description.Focus()
	}
}

func (f *formState) move(delta int) {
	next := (int(f.focus) + delta + int(fieldCount)) % int(fieldCount)
	f.focusField(formField(next))
}

func (f *formState) onLastField() bool { return f.focus == fieldCount-1 }

// cycleChoice steps the priority or status under focus.
func (f *formState) cycleChoice(delta int) bool {
	switch f.focus {
	case fieldPriority:
		f.priority = cycle(task.Priorities(), f.priority, delta)
		return true
	case fieldStatus:
		f.status = cycle(task.Statuses(), f.status, delta)
		return true
	}
	return false
}

func (f *formState) updateInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case fieldTitle:
		f.title, cmd = f.title.Update(msg)
	case fieldDescription:
		f.description, cmd = f.description.Update(msg)
	}
	return cmd
}

func (f *formState) createInput() (task.CreateInput, error) {
	in := task.CreateInput{
		Title:       f.title.Value(),
		Description: strings.TrimSpace(f.description.Value()),
		Priority:    f.priority,
		Status:      f.status,
	}.Normalize()
	return in, in.Validate()
}

// updateTaskInput sends every field, so the form applies the same rules as
// creation.
func (f *formState) updateTaskInput() (task.UpdateInput, error) {
	full, err := f.createInput()
	if err != nil {
		return task.UpdateInput{}, err
	}
	title, description := full.Title, full.Description
	priority, status := full.Priority, full.Status
	in := task.UpdateInput{
		ID:          f.editID,
		Title:       &title,
		Description: &description,
		Priority:    &priority,
		Status:      &status,
	}
	return in, in.Validate()
}

func (f *formState) view() string {
	var b strings.Builder
	heading := "New task"
	if f.editing() {
		heading = fmt.Sprintf("Edit task #%d", f.editID)
	}
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n\n")

	for field := fieldTitle; field < fieldCount; field++ {
		prefix := "  "
		if field == f.focus {
			prefix = "> "
		}
		var value string
		switch field {
		case fieldTitle:
			value = f.title.View()
		case fieldDescription:
			value = f.description.View()
		case fieldPriority:
			value = "‹ " + priorityBadge(f.priority) + " ›"
		case fieldStatus:
			value = "‹ " + statusBadge(f.status) + " ›"
		}
		b.WriteString(fmt.Sprintf("%s%-12s %s\n", prefix, field.label(), value))
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/shift+tab move • ←/→ change choice • enter next/save • esc cancel"))
	return b.String()
}

func cycle[T comparable](values []T, cur T, delta int) T {
	if len(values) == 0 {
		return cur
	}
	i := slices.Index(values, cur)
	if i < 0 {
		i = 0
		if delta > 0 {
			return values[0]
		}
	}
	n := len(values)
	return values[((i+delta)%n+n)%n]
}
