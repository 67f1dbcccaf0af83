package views

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/message"

	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
)

// ProjectSource lists the projects a caller can open
type ProjectSource interface {
	ListProjects(ctx context.Context, callerID string) ([]models.Project, error)
}

// Session is what every view needs to talk to the store
type Session struct {
	Ctx      context.Context
	Store    *store.Store
	Projects ProjectSource
	CallerID string
	Printer  *message.Printer
}

// StateMsg carries a store snapshot to the views
type StateMsg struct {
	State store.State
}

// OpenTask asks the app to show a task's detail
type OpenTask struct {
	ID string
}

// BackToList asks the app to return to the task list
type BackToList struct{}

// SelectedProject asks the app to show a project's tasks
type SelectedProject struct {
	Project models.Project
}

// BackToProjects asks the app to return to the project picker
type BackToProjects struct{}

// run wraps a blocking store call in a command. Results arrive as StateMsg
// through the store subscription, so the command itself yields nothing.
func (s *Session) run(fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(s.Ctx)
		return nil
	}
}

func (s *Session) printer() *message.Printer {
	if s.Printer == nil {
		s.Printer = i18n.NewPrinter("vi")
	}
	return s.Printer
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
