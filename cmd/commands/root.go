package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"taskdeck/internal/client"
	"taskdeck/internal/config"
	"taskdeck/internal/storage"
	"taskdeck/internal/task"
)

// NewRootCommand returns the top-level CLI command. Without a subcommand it
// starts the TUI.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "taskdeck",
		Usage: "Browse and manage tasks from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ResolveConfigPath(),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Task API base URL",
				Sources: cli.EnvVars("TASKDECK_API_URL"),
			},
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "Repository backend: remote or local",
				Sources: cli.EnvVars("TASKDECK_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn or error",
				Sources: cli.EnvVars("TASKDECK_LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewTUICommand(),
			NewListCommand(),
			NewServeCommand(),
		},
		Action: runTUI,
	}
}

// loadConfig reads the config file and applies the global flag overrides.
// firstLaunch reports whether the file was created by this call.
func loadConfig(cmd *cli.Command) (cfg config.Config, path string, firstLaunch bool, err error) {
	path = cmd.String("config")
	if _, statErr := os.Stat(path); statErr != nil {
		firstLaunch = errors.Is(statErr, os.ErrNotExist)
	}
	cfg, err = config.LoadOrCreate(path)
	if err != nil {
		return cfg, path, firstLaunch, fmt.Errorf("load config: %w", err)
	}

	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("backend") {
		cfg.Backend = config.Backend(cmd.String("backend"))
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	return cfg, path, firstLaunch, cfg.Validate()
}

// openRepository returns the repository selected by cfg.Backend and a
// function releasing it.
func openRepository(cfg config.Config) (task.Repository, func(), error) {
	switch cfg.Backend {
	case config.BackendLocal:
		store, err := storage.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		c, err := client.New(cfg.APIURL)
		if err != nil {
			return nil, nil, fmt.Errorf("api client: %w", err)
		}
		return c, func() {}, nil
	}
}
