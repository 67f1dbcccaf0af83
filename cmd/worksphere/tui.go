package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/config"
	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/logging"
	"github.com/tgienger/worksphere/internal/store"
	"github.com/tgienger/worksphere/internal/ui"
	"github.com/tgienger/worksphere/internal/ui/views"
)

var errNoUser = errors.New("no caller identity: set api.user_id or pass --user")

func (a *app) tuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit tasks in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
	cmd.Flags().String("project", "", "project id to open on start")
	return cmd
}

// client builds the API client from config
func (a *app) client(logger *logging.Logger) *api.Client {
	opts := []api.Option{
		api.WithLogger(logger),
		api.WithAcceptLanguage(a.cfg.UI.Language),
	}
	if a.cfg.API.Timeout > 0 {
		opts = append(opts, api.WithHTTPClient(&http.Client{Timeout: a.cfg.API.Timeout}))
	}
	return api.NewClient(a.cfg.API.BaseURL, opts...)
}

func (a *app) runTUI(parent context.Context) error {
	if a.cfg.API.UserID == "" {
		return errNoUser
	}

	// stderr belongs to the terminal UI
	logger := a.logger
	if a.cfg.Logging.Dir == "" {
		fileLogger, err := logging.NewLogger(filepath.Dir(config.DefaultDBPath()), a.cfg.Logging.Level)
		if err != nil {
			return err
		}
		defer fileLogger.Close()
		logger = fileLogger
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	client := a.client(logger)
	st := store.New(client,
		store.WithLogger(logger),
		store.WithLanguage(a.cfg.UI.Language),
	)

	session := &views.Session{
		Ctx:      ctx,
		Store:    st,
		Projects: client,
		CallerID: a.cfg.API.UserID,
		Printer:  i18n.NewPrinter(a.cfg.UI.Language),
	}

	model := ui.NewApp(session, a.cfg.UI.ProjectID)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
