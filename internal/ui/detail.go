package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/task"
	"taskdeck/internal/taskcache"
)

type detailFetchedMsg struct {
	id    int
	tasks []task.Task
	err   error
}

// detailState follows one task id through the shared cache. The cache
// observer writes into it, so it is always held by pointer. The list may
// publish a filtered collection, so a publish without the task leaves the
// last known copy in place; only the unfiltered detail fetch decides that
// the task is gone.
type detailState struct {
	id      int
	task    task.Task
	found   bool
	loading bool
	err     error

	unsubscribe func()
}

func openDetail(cache *taskcache.Cache, id int) *detailState {
	d := &detailState{id: id, loading: true}
	d.unsubscribe = cache.Subscribe(func([]task.Task) {
		if t, ok := cache.Find(d.id); ok {
			d.task, d.found = t, true
		}
	})
	return d
}

// settle applies the result of an unfiltered fetch.
func (d *detailState) settle(tasks []task.Task) {
	i := slices.IndexFunc(tasks, func(t task.Task) bool { return t.ID == d.id })
	if i < 0 {
		d.task, d.found = task.Task{}, false
		return
	}
	d.task, d.found = tasks[i], true
}

func (d *detailState) close() {
	if d != nil && d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}

// fetchDetail loads the whole collection, unfiltered, for the detail view.
func fetchDetail(repo task.Repository, id int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := repo.FetchAll(ctx, task.Filters{})
		return detailFetchedMsg{id: id, tasks: tasks, err: err}
	}
}

func (d *detailState) view(width int) string {
	var b strings.Builder
	switch {
	case d.found:
		t := d.task
		b.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)))
		b.WriteString("\n\n")
		b.WriteString(priorityBadge(t.Priority) + " " + statusBadge(t.Status))
		b.WriteString("\n\n")
		if desc := renderMarkdown(t.Description, width); desc != "" {
			b.WriteString(desc)
		} else {
			b.WriteString(mutedStyle.Render("No description."))
		}
	case d.loading:
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Loading task #%d…", d.id)))
	case d.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Could not load task #%d: %v", d.id, d.err)))
	default:
		b.WriteString(errorStyle.Render("Task not found"))
	}
	return panelStyle.Render(b.String())
}
