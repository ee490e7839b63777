package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/api"
	"taskdeck/internal/config"
	"taskdeck/internal/query"
	"taskdeck/internal/task"
	"taskdeck/internal/taskcache"
)

type mode int

const (
	modeList mode = iota
	modeForm
	modeDetail
)

// Watcher is implemented by repositories that push change notifications.
type Watcher interface {
	Watch(ctx context.Context) (<-chan api.ChangeEvent, error)
}

type changeMsg api.ChangeEvent

type watchClosedMsg struct{}

type Options struct {
	ConfigPath  string
	FirstLaunch bool
	Events      <-chan api.ChangeEvent
	Logger      *slog.Logger
}

type Model struct {
	repo  task.Repository
	cache *taskcache.Cache
	ctrl  *query.Controller
	cfg   config.Config
	log   *slog.Logger

	mode       mode
	cursor     int
	width      int
	status     string
	spinner    spinner.Model
	pager      paginator.Model
	form       *formState
	detail     *detailState
	pendingDel *task.Task
	events     <-chan api.ChangeEvent
}

func NewModel(repo task.Repository, cfg config.Config, opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cache := taskcache.New()
	ctrl := query.NewController(repo, cache,
		query.WithLogger(log),
		query.WithPageSize(cfg.PageSize),
		query.WithFetchTimeout(cfg.FetchTimeout()),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	pg := paginator.New()
	pg.Type = paginator.Dots
	pg.ActiveDot = titleStyle.Render("•")
	pg.InactiveDot = mutedStyle.Render("•")

	status := fmt.Sprintf("Press '%s' to add, '%s' for details, '%s' to delete.", cfg.Keys.Add, cfg.Keys.Detail, cfg.Keys.Delete)
	if opts.FirstLaunch && opts.ConfigPath != "" {
		status = "Created default config at " + opts.ConfigPath
	}

	return Model{
		repo:    repo,
		cache:   cache,
		ctrl:    ctrl,
		cfg:     cfg,
		log:     log,
		mode:    modeList,
		status:  status,
		spinner: sp,
		pager:   pg,
		events:  opts.Events,
	}
}

func Run(repo task.Repository, cfg config.Config, opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if w, ok := repo.(Watcher); ok && cfg.Watch && opts.Events == nil {
		events, err := w.Watch(ctx)
		if err != nil {
			slog.Warn("change feed unavailable", "error", err)
		} else {
			opts.Events = events
		}
	}

	program := tea.NewProgram(NewModel(repo, cfg, opts), tea.WithAltScreen())
	final, err := program.Run()
	if m, ok := final.(Model); ok {
		m.Close()
	}
	return err
}

// Close releases the cache subscriptions held by the model.
func (m Model) Close() {
	m.detail.close()
	m.ctrl.Close()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.ctrl.Load(), m.spinner.Tick, waitForChange(m.events))
}

func waitForChange(events <-chan api.ChangeEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return watchClosedMsg{}
		}
		return changeMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case query.FetchedMsg:
		cmd := m.ctrl.Handle(msg)
		m.syncPage()
		return m, cmd
	case query.MutatedMsg:
		return m.handleMutated(msg)
	case detailFetchedMsg:
		return m.handleDetailFetched(msg), nil
	case changeMsg:
		m.log.Debug("tasks changed remotely", "op", msg.Op, "task_id", msg.TaskID)
		cmds := []tea.Cmd{m.ctrl.Refresh(), waitForChange(m.events)}
		if m.detail != nil {
			cmds = append(cmds, fetchDetail(m.repo, m.detail.id, m.cfg.FetchTimeout()))
		}
		m.syncPage()
		return m, tea.Batch(cmds...)
	case watchClosedMsg:
		m.events = nil
		m.status = "Change feed disconnected"
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if m.form != nil {
			m.form.setWidth(msg.Width)
		}
		return m, nil
	case tea.KeyMsg:
		if m.pendingDel != nil {
			return m.updateDeleteConfirm(msg.String())
		}
		switch m.mode {
		case modeForm:
			return m.updateFormMode(msg)
		case modeDetail:
			return m.updateDetailMode(msg.String())
		default:
			return m.updateListMode(msg.String())
		}
	}
	return m, nil
}

func (m Model) handleMutated(msg query.MutatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.status = fmt.Sprintf("%s failed: %v", msg.Op, msg.Err)
		return m, m.ctrl.Handle(msg)
	}
	switch msg.Op {
	case query.OpCreate:
		m.status = "Task created"
	case query.OpUpdate:
		m.status = fmt.Sprintf("Task #%d updated", msg.ID)
	case query.OpDelete:
		m.status = fmt.Sprintf("Task #%d deleted", msg.ID)
		if m.form != nil && m.form.editID == msg.ID {
			m.form = nil
			m.mode = modeList
		}
	}

	cmds := []tea.Cmd{m.ctrl.Handle(msg)}
	if m.detail != nil && m.detail.id == msg.ID {
		cmds = append(cmds, fetchDetail(m.repo, m.detail.id, m.cfg.FetchTimeout()))
	}
	m.syncPage()
	return m, tea.Batch(cmds...)
}

func (m Model) handleDetailFetched(msg detailFetchedMsg) Model {
	if m.detail == nil || m.detail.id != msg.id {
		return m
	}
	m.detail.loading = false
	m.detail.err = msg.err
	if msg.err != nil {
		m.log.Warn("fetch task detail failed", "task_id", msg.id, "error", msg.err)
		return m
	}
	m.detail.settle(msg.tasks)
	m.cache.Publish(msg.tasks)
	m.syncPage()
	return m
}

// syncPage keeps the cursor and pagination dots in step with the
// controller after any projection.
func (m *Model) syncPage() {
	m.cursor = clampCursor(m.cursor, len(m.ctrl.Page().Items))
	m.pager.PerPage = 1
	m.pager.SetTotalPages(m.ctrl.TotalPages())
	m.pager.Page = m.ctrl.Query().Page - 1
}

func (m Model) selected() (task.Task, bool) {
	items := m.ctrl.Page().Items
	if len(items) == 0 {
		return task.Task{}, false
	}
	return items[clampCursor(m.cursor, len(items))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	q := m.ctrl.Query()
	var cmd tea.Cmd

	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.ctrl.Page().Items))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.ctrl.Page().Items))
	case k.NextPage, "right":
		if q.Page < m.ctrl.TotalPages() {
			cmd = m.ctrl.SetPage(q.Page + 1)
			m.cursor = 0
		}
	case k.PrevPage, "left":
		if q.Page > 1 {
			cmd = m.ctrl.SetPage(q.Page - 1)
			m.cursor = 0
		}
	case k.PageSize:
		cmd = m.ctrl.SetPageSize(cycle(m.cfg.PageSizeOptions, q.PageSize, 1))
		m.cursor = 0
	case k.FilterStatus:
		f := q.Filters
		f.Status = cycle(append([]task.Status{""}, task.Statuses()...), f.Status, 1)
		cmd = m.ctrl.SetFilters(f)
		m.cursor = 0
	case k.FilterPriority:
		f := q.Filters
		f.Priority = cycle(append([]task.Priority{""}, task.Priorities()...), f.Priority, 1)
		cmd = m.ctrl.SetFilters(f)
		m.cursor = 0
	case k.ClearFilters:
		cmd = m.ctrl.SetFilters(task.Filters{})
		m.cursor = 0
	case k.Refresh:
		cmd = m.ctrl.Refresh()
		m.status = "Refreshing…"
	case k.Add:
		m.form = newForm(nil, m.width)
		m.mode = modeForm
		m.status = "New task"
	case k.Edit:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		m.form = newForm(&t, m.width)
		m.mode = modeForm
		m.status = fmt.Sprintf("Editing task #%d", t.ID)
	case k.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Detail:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks"
			return m, nil
		}
		return m.openDetail(t.ID)
	}
	m.syncPage()
	return m, cmd
}

func (m Model) openDetail(id int) (tea.Model, tea.Cmd) {
	m.detail.close()
	m.detail = openDetail(m.cache, id)
	m.mode = modeDetail
	return m, fetchDetail(m.repo, id, m.cfg.FetchTimeout())
}

func (m Model) closeDetail() Model {
	m.detail.close()
	m.detail = nil
	m.mode = modeList
	return m
}

func (m Model) updateDetailMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case k.Cancel, k.Quit, "esc", "backspace":
		return m.closeDetail(), nil
	case k.Edit:
		if m.detail == nil || !m.detail.found {
			return m, nil
		}
		t := m.detail.task
		m = m.closeDetail()
		m.form = newForm(&t, m.width)
		m.mode = modeForm
		m.status = fmt.Sprintf("Editing task #%d", t.ID)
	case k.Delete:
		if m.detail == nil || !m.detail.found {
			return m, nil
		}
		t := m.detail.task
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.Refresh:
		if m.detail != nil {
			m.detail.loading = true
			return m, fetchDetail(m.repo, m.detail.id, m.cfg.FetchTimeout())
		}
	}
	return m, nil
}

func (m Model) updateFormMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	if f == nil {
		m.mode = modeList
		return m, nil
	}
	switch key := msg.String(); key {
	case "ctrl+c":
		return m, tea.Quit
	case m.cfg.Keys.Cancel, "esc":
		m.form = nil
		m.mode = modeList
		m.status = "Cancelled"
		return m, nil
	case "tab", "down":
		f.move(1)
		return m, nil
	case "shift+tab", "up":
		f.move(-1)
		return m, nil
	case "left", "right", " ":
		delta := 1
		if key == "left" {
			delta = -1
		}
		if f.cycleChoice(delta) {
			return m, nil
		}
	case m.cfg.Keys.Confirm, "enter":
		if !f.onLastField() {
			f.move(1)
			return m, nil
		}
		return m.submitForm()
	}
	return m, f.updateInput(msg)
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	var cmd tea.Cmd
	if f.editing() {
		in, err := f.updateTaskInput()
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		cmd = m.ctrl.UpdateTask(in)
	} else {
		in, err := f.createInput()
		if err != nil {
			f.err = err.Error()
			return m, nil
		}
		cmd = m.ctrl.CreateTask(in)
	}
	m.form = nil
	m.mode = modeList
	m.status = "Saving…"
	return m, cmd
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		id := m.pendingDel.ID
		m.pendingDel = nil
		m.status = "Deleting…"
		if m.mode == modeDetail {
			m = m.closeDetail()
		}
		return m, m.ctrl.DeleteTask(id)
	case "n", "N", "esc", m.cfg.Keys.Cancel:
		m.pendingDel = nil
		m.status = "Delete cancelled"
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tasks"))
	b.WriteString(" ")
	b.WriteString(mutedStyle.Render("filter: " + m.ctrl.Query().Filters.String()))
	if m.ctrl.Loading() {
		b.WriteString(" ")
		b.WriteString(m.spinner.View())
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		if m.form != nil {
			b.WriteString(m.form.view())
		}
	case modeDetail:
		if m.detail != nil {
			b.WriteString(m.detail.view(m.width))
		}
	default:
		b.WriteString(m.renderTaskList())
		b.WriteString("\n")
		b.WriteString(m.renderFooter())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys, m.mode)))
	return b.String()
}

func (m Model) renderTaskList() string {
	page := m.ctrl.Page()
	if len(page.Items) == 0 {
		if m.ctrl.Loading() {
			return mutedStyle.Render("Loading tasks…")
		}
		if !m.ctrl.Query().Filters.IsZero() {
			return fmt.Sprintf("No tasks match the current filters. Press '%s' to clear them.", m.cfg.Keys.ClearFilters)
		}
		return fmt.Sprintf("No tasks yet. Press '%s' to add one.", m.cfg.Keys.Add)
	}

	var b strings.Builder
	for i, t := range page.Items {
		cursor := " "
		title := t.Title
		if i == m.cursor {
			cursor = ">"
			title = selectedStyle.Render(title)
		}
		b.WriteString(fmt.Sprintf("%s #%-4d %s %s %s\n", cursor, t.ID, priorityBadge(t.Priority), statusBadge(t.Status), title))
	}
	return b.String()
}

func (m Model) renderFooter() string {
	q := m.ctrl.Query()
	start, end := m.ctrl.Window()
	total := m.ctrl.Page().Total
	pages := m.ctrl.TotalPages()

	prev, next := "‹ prev", "next ›"
	if q.Page <= 1 {
		prev = mutedStyle.Render(prev)
	}
	if q.Page >= pages {
		next = mutedStyle.Render(next)
	}

	info := fmt.Sprintf("Showing %d–%d of %d · Page %d / %d · Rows %d", start, end, total, q.Page, pages, q.PageSize)
	return fmt.Sprintf("%s  %s  %s\n%s", prev, m.pager.View(), next, mutedStyle.Render(info))
}

func renderHelp(k config.Keymap, md mode) string {
	switch md {
	case modeForm:
		return fmt.Sprintf("%s save • %s cancel", k.Confirm, k.Cancel)
	case modeDetail:
		return fmt.Sprintf("%s edit • %s delete • %s refresh • %s back", k.Edit, k.Delete, k.Refresh, k.Cancel)
	}
	return fmt.Sprintf("%s/%s move • %s/%s page • %s rows • %s status • %s priority • %s clear • %s add • %s edit • %s detail • %s delete • %s quit",
		k.Up, k.Down, k.PrevPage, k.NextPage, k.PageSize, k.FilterStatus, k.FilterPriority, k.ClearFilters, k.Add, k.Edit, k.Detail, k.Delete, k.Quit)
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
