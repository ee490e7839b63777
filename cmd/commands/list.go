package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"taskdeck/internal/logger"
	"taskdeck/internal/query"
	"taskdeck/internal/task"
	"taskdeck/internal/taskcache"
)

// NewListCommand returns the list subcommand, which prints one page of tasks
// through the same query pipeline the TUI uses.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print one page of tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only tasks with this status (todo, inprogress, completed)",
			},
			&cli.StringFlag{
				Name:  "priority",
				Usage: "Only tasks with this priority (low, medium, high)",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page number, clamped to the available pages",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Rows per page (defaults to page_size from the config)",
			},
		},
		Action: runList,
	}
}

func runList(_ context.Context, cmd *cli.Command) error {
	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.Setup(cfg.LogLevel, os.Stderr, logger.FormatText)

	var filters task.Filters
	if v := cmd.String("status"); v != "" {
		if filters.Status, err = task.ParseStatus(v); err != nil {
			return err
		}
	}
	if v := cmd.String("priority"); v != "" {
		if filters.Priority, err = task.ParsePriority(v); err != nil {
			return err
		}
	}
	pageSize := cfg.PageSize
	if cmd.IsSet("page-size") {
		pageSize = int(cmd.Int("page-size"))
	}

	repo, release, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer release()

	ctrl := query.NewController(repo, taskcache.New(),
		query.WithLogger(log),
		query.WithPageSize(pageSize),
		query.WithFetchTimeout(cfg.FetchTimeout()),
	)
	defer ctrl.Close()

	fetch := ctrl.SetQuery(task.Query{Filters: filters, Page: int(cmd.Int("page")), PageSize: pageSize})
	if fetch == nil {
		fetch = ctrl.Load()
	}
	settle(ctrl, fetch)

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	return printPage(out, ctrl)
}

// settle runs a controller command synchronously, standing in for the
// bubbletea loop.
func settle(ctrl *query.Controller, cmd tea.Cmd) {
	for cmd != nil {
		cmd = ctrl.Handle(cmd())
	}
}

func printPage(out io.Writer, ctrl *query.Controller) error {
	page := ctrl.Page()
	q := ctrl.Query()
	if page.Total == 0 {
		fmt.Fprintf(out, "No tasks found (filter: %s).\n", q.Filters)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tSTATUS\tTITLE")
	for _, t := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Priority, t.Status, t.Title)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	start, end := ctrl.Window()
	fmt.Fprintf(out, "\nShowing %d–%d of %d · Page %d / %d · filter: %s\n",
		start, end, page.Total, q.Page, ctrl.TotalPages(), q.Filters)
	return nil
}
