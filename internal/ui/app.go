package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
	"github.com/tgienger/worksphere/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewProjects View = iota
	ViewTasks
	ViewDetail
)

type App struct {
	session     *views.Session
	currentView View
	projectList *views.ProjectListView
	taskList    *views.TaskListView
	detail      *views.TaskDetailView

	// startProjectID is opened directly when it names a known project
	startProjectID string

	updates     chan struct{}
	unsubscribe func()

	width  int
	height int
}

type startProjectMsg struct {
	project *models.Project
}

// NewApp creates the application. startProjectID may be empty.
func NewApp(session *views.Session, startProjectID string) *App {
	a := &App{
		session:        session,
		currentView:    ViewProjects,
		projectList:    views.NewProjectListView(session),
		detail:         views.NewTaskDetailView(session),
		startProjectID: startProjectID,
		updates:        make(chan struct{}, 1),
	}
	a.unsubscribe = session.Store.Subscribe(func(store.State) {
		// coalesce bursts; the view always reads the latest snapshot
		select {
		case a.updates <- struct{}{}:
		default:
		}
	})
	return a
}

// Close drops the store subscription
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// waitForState blocks until the store changes and reports the latest snapshot
func (a *App) waitForState() tea.Msg {
	select {
	case <-a.updates:
		return views.StateMsg{State: a.session.Store.Snapshot()}
	case <-a.session.Ctx.Done():
		return nil
	}
}

func (a *App) Init() tea.Cmd {
	if a.startProjectID != "" {
		return tea.Batch(a.waitForState, a.findStartProject)
	}
	return tea.Batch(a.waitForState, a.projectList.Init())
}

func (a *App) findStartProject() tea.Msg {
	projects, err := a.session.Projects.ListProjects(a.session.Ctx, a.session.CallerID)
	if err != nil {
		return startProjectMsg{}
	}
	for i := range projects {
		if projects[i].ID == a.startProjectID {
			return startProjectMsg{project: &projects[i]}
		}
	}
	return startProjectMsg{}
}

func (a *App) resize() tea.Cmd {
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: a.width, Height: a.height}
	}
}

func (a *App) openProject(project models.Project) tea.Cmd {
	a.currentView = ViewTasks
	a.session.Store.Reset()
	a.taskList = views.NewTaskListView(a.session, project)
	return tea.Batch(a.taskList.Init(), a.resize())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// project list and detail persist across navigation
		a.projectList.Update(msg)
		a.detail.Update(msg)
		if a.taskList != nil {
			a.taskList.Update(msg)
		}
		return a, nil

	case views.StateMsg:
		// every view keeps the latest snapshot, only the active one renders it
		if a.taskList != nil {
			a.taskList.Update(msg)
		}
		a.detail.Update(msg)
		return a, a.waitForState

	case startProjectMsg:
		if msg.project != nil {
			return a, a.openProject(*msg.project)
		}
		return a, a.projectList.Init()

	case views.SelectedProject:
		return a, a.openProject(msg.Project)

	case views.OpenTask:
		a.currentView = ViewDetail
		return a, a.detail.Open(msg.ID)

	case views.BackToList:
		if a.taskList == nil {
			a.currentView = ViewProjects
			return a, a.projectList.Init()
		}
		a.currentView = ViewTasks
		return a, a.taskList.Init()

	case views.BackToProjects:
		a.currentView = ViewProjects
		a.taskList = nil
		a.session.Store.Reset()
		return a, tea.Batch(a.projectList.Init(), a.resize())
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewProjects:
		_, cmd = a.projectList.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	case ViewDetail:
		_, cmd = a.detail.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	case ViewDetail:
		return a.detail.View()
	}
	return a.projectList.View()
}
