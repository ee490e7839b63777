package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"taskdeck/internal/logger"
	"taskdeck/internal/ui"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive task list",
		Action: runTUI,
	}
}

func runTUI(_ context.Context, cmd *cli.Command) error {
	cfg, path, firstLaunch, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI; logs go to a file.
	logFile, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log := logger.Setup(cfg.LogLevel, logFile, logger.FormatText)

	repo, release, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer release()

	log.Info("starting tui", "backend", cfg.Backend, "config", path)
	return ui.Run(repo, cfg, ui.Options{
		ConfigPath:  path,
		FirstLaunch: firstLaunch,
		Logger:      log,
	})
}
