// Package query turns filter, page and page-size changes into a rendered page
// of tasks. The Controller owns the current Query and runs one fetch per
// distinct Query; only the newest fetch may reach the shared cache.
//
// Controller state is owned by the goroutine that calls its methods (the
// bubbletea Update loop). Repository calls run inside the returned tea.Cmd
// and come back as FetchedMsg or MutatedMsg, which must be passed to Handle.
package query

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"taskdeck/internal/task"
	"taskdeck/internal/taskcache"
)

const DefaultFetchTimeout = 10 * time.Second

// FetchedMsg is the settlement of a fetch started for the Query tagged Seq.
type FetchedMsg struct {
	Seq   uint64
	Tasks []task.Task
	Err   error
}

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// MutatedMsg reports the outcome of a create, update or delete.
type MutatedMsg struct {
	Op  Op
	ID  int
	Err error
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.query.PageSize = n
		}
	}
}

type Controller struct {
	repo    task.Repository
	cache   *taskcache.Cache
	log     *slog.Logger
	timeout time.Duration

	query   task.Query
	seq     uint64
	loading bool
	page    task.Page

	unsubscribe func()
}

// NewController subscribes to cache so that every publish, from this
// controller or any other consumer, re-projects the current Query.
func NewController(repo task.Repository, cache *taskcache.Cache, opts ...Option) *Controller {
	c := &Controller{
		repo:    repo,
		cache:   cache,
		log:     slog.Default(),
		timeout: DefaultFetchTimeout,
		query:   task.DefaultQuery(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = cache.Subscribe(c.project)
	return c
}

func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) Query() task.Query { return c.query }

func (c *Controller) Page() task.Page { return c.page }

func (c *Controller) Loading() bool { return c.loading }

func (c *Controller) TotalPages() int {
	return TotalPages(c.page.Total, c.query.PageSize)
}

// Window is the 1-based range of the current page within the filtered total.
// While a fetch is pending the stored page may still exceed the last page.
func (c *Controller) Window() (int, int) {
	page := min(c.query.Page, c.TotalPages())
	return Window(page, c.query.PageSize, c.page.Total)
}

// Load fetches for the current Query even if it has not changed.
func (c *Controller) Load() tea.Cmd {
	return c.enqueue(c.query)
}

// Refresh re-runs the active Query, as after a mutation.
func (c *Controller) Refresh() tea.Cmd {
	return c.enqueue(c.query)
}

// SetFilters replaces the filters and returns to the first page.
func (c *Controller) SetFilters(f task.Filters) tea.Cmd {
	q := c.query
	q.Filters = f
	q.Page = 1
	return c.change(q)
}

func (c *Controller) SetPage(page int) tea.Cmd {
	q := c.query
	q.Page = max(page, 1)
	return c.change(q)
}

// SetPageSize changes the page size and returns to the first page. Sizes
// below one are ignored.
func (c *Controller) SetPageSize(size int) tea.Cmd {
	if size <= 0 {
		return nil
	}
	q := c.query
	q.PageSize = size
	q.Page = 1
	return c.change(q)
}

// SetQuery replaces the whole Query at once. A page below one becomes one
// and a page size below one keeps the current size.
func (c *Controller) SetQuery(q task.Query) tea.Cmd {
	q.Page = max(q.Page, 1)
	if q.PageSize <= 0 {
		q.PageSize = c.query.PageSize
	}
	return c.change(q)
}

func (c *Controller) change(q task.Query) tea.Cmd {
	if q == c.query {
		return nil
	}
	return c.enqueue(q)
}

func (c *Controller) enqueue(q task.Query) tea.Cmd {
	c.seq++
	seq := c.seq
	c.query = q
	c.loading = true
	c.project(c.cache.Read())

	repo, timeout, filters := c.repo, c.timeout, q.Filters
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := repo.FetchAll(ctx, filters)
		return FetchedMsg{Seq: seq, Tasks: tasks, Err: err}
	}
}

// Handle applies a fetch or mutation settlement and returns any follow-up
// command. Other messages are ignored.
func (c *Controller) Handle(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case FetchedMsg:
		c.settle(msg)
	case MutatedMsg:
		if msg.Err != nil {
			return nil
		}
		return c.Refresh()
	}
	return nil
}

func (c *Controller) settle(msg FetchedMsg) {
	if msg.Seq == 0 || msg.Seq != c.seq {
		return
	}
	c.loading = false
	if msg.Err != nil {
		c.log.Warn("fetch tasks failed", "filters", c.query.Filters.String(), "error", msg.Err)
		c.cache.Publish(nil)
		return
	}
	c.cache.Publish(msg.Tasks)
}

// project renders the current Query against tasks. The clamped page is
// stored only while no fetch is pending: until then the cache holds data for
// an older Query and the requested page must survive.
func (c *Controller) project(tasks []task.Task) {
	page, effective := Project(tasks, c.query)
	if !c.loading && effective != c.query.Page {
		c.query.Page = effective
	}
	c.page = page
}

func (c *Controller) CreateTask(in task.CreateInput) tea.Cmd {
	return c.mutate(OpCreate, 0, func(ctx context.Context) error {
		return c.repo.Create(ctx, in)
	})
}

func (c *Controller) UpdateTask(in task.UpdateInput) tea.Cmd {
	return c.mutate(OpUpdate, in.ID, func(ctx context.Context) error {
		return c.repo.Update(ctx, in)
	})
}

func (c *Controller) DeleteTask(id int) tea.Cmd {
	return c.mutate(OpDelete, id, func(ctx context.Context) error {
		return c.repo.Delete(ctx, id)
	})
}

func (c *Controller) mutate(op Op, id int, run func(context.Context) error) tea.Cmd {
	timeout := c.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return MutatedMsg{Op: op, ID: id, Err: run(ctx)}
	}
}
