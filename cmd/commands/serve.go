package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"taskdeck/internal/logger"
	"taskdeck/internal/server"
	"taskdeck/internal/storage"
)

// NewServeCommand returns the serve subcommand.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the task API backed by a local sqlite database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (defaults to listen from the config)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "sqlite database path (defaults to db_path from the config)",
			},
		},
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("listen") {
		cfg.Listen = cmd.String("listen")
	}
	if cmd.IsSet("db") {
		cfg.DBPath = cmd.String("db")
	}
	log := logger.Setup(cfg.LogLevel, os.Stdout, logger.FormatJSON)

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()
	log.Info("database ready", "path", cfg.DBPath)

	return server.New(store, log).ListenAndServe(ctx, cfg.Listen)
}
