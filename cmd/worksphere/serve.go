package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tgienger/worksphere/internal/db"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task API backed by SQLite",
		Long: `Run the task API.

Examples:
  worksphere serve --addr :8080
  worksphere serve --db ./worksphere.db --seed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().Bool("seed", false, "load demo data into an empty database")
	cmd.Flags().String("autolock", "", "cron schedule for locking completed tasks")

	return cmd
}

func (a *app) runServe(parent context.Context) error {
	cfg := a.cfg.Server
	logger := a.logger.WithComponent("serve")

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if cfg.Seed {
		if err := database.Seed(); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
	}

	if cfg.AutolockSchedule != "" {
		locker, err := server.NewAutolocker(database, cfg.AutolockSchedule, a.logger)
		if err != nil {
			return fmt.Errorf("invalid autolock schedule: %w", err)
		}
		locker.Start()
		defer locker.Stop()
	}

	srv := server.New(database,
		server.WithLogger(a.logger),
		server.WithLanguage(i18n.Match(a.cfg.UI.Language)),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "db", cfg.DBPath, "addr", cfg.Addr)
	return srv.Run(ctx, cfg.Addr)
}

func (a *app) autolockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autolock",
		Short: "Lock every completed task now",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.New(a.cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			// the schedule is irrelevant for a single run
			locker, err := server.NewAutolocker(database, "@daily", a.logger)
			if err != nil {
				return err
			}
			n, err := locker.RunOnce()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locked %d tasks\n", n)
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite database path")
	return cmd
}
