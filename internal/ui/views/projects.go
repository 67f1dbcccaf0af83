package views

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/ui/keys"
	"github.com/tgienger/worksphere/internal/ui/styles"
)

type projectItem struct {
	project models.Project
}

func (i projectItem) Title() string       { return i.project.Name }
func (i projectItem) Description() string { return i.project.Code }
func (i projectItem) FilterValue() string { return i.project.Name + " " + i.project.Code }

type projectDelegate struct {
	styles *styles.Styles
	width  int
}

func (d projectDelegate) Height() int                               { return 2 }
func (d projectDelegate) Spacing() int                              { return 1 }
func (d projectDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d projectDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	p, ok := item.(projectItem)
	if !ok {
		return
	}

	width := max(d.width-4, 20)
	base := d.styles.ListItem
	if index == m.Index() {
		base = d.styles.ListSelected
	}

	title := base.Width(width).Render(p.Title())
	code := base.Foreground(styles.Current.ForegroundDim).Width(width).Render(p.Description())
	fmt.Fprintf(w, "%s\n%s", title, code)
}

// ProjectListView lets the user pick the project whose tasks to open
type ProjectListView struct {
	session  *Session
	list     list.Model
	delegate *projectDelegate
	styles   *styles.Styles
	keys     keys.KeyMap
	width    int
	height   int
	loaded   bool
	err      error
}

type projectsLoadedMsg struct {
	projects []models.Project
	err      error
}

// NewProjectListView creates the project picker
func NewProjectListView(session *Session) *ProjectListView {
	s := styles.NewStyles()
	delegate := &projectDelegate{styles: s, width: styles.MaxWidth}

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Projects"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = s.Title
	l.SetShowHelp(false)

	return &ProjectListView{
		session:  session,
		list:     l,
		delegate: delegate,
		styles:   s,
		keys:     keys.DefaultKeyMap(),
	}
}

// Init loads the projects
func (v *ProjectListView) Init() tea.Cmd {
	return v.loadProjects
}

func (v *ProjectListView) loadProjects() tea.Msg {
	projects, err := v.session.Projects.ListProjects(v.session.Ctx, v.session.CallerID)
	return projectsLoadedMsg{projects: projects, err: err}
}

// Update handles messages
func (v *ProjectListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(msg.Width)
		v.delegate.width = contentWidth
		v.list.SetSize(contentWidth-4, msg.Height-6)
		return v, nil

	case projectsLoadedMsg:
		v.loaded = true
		v.err = msg.err
		items := make([]list.Item, len(msg.projects))
		for i, p := range msg.projects {
			items[i] = projectItem{project: p}
		}
		v.list.SetItems(items)
		return v, nil

	case tea.KeyMsg:
		if v.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, v.keys.Quit):
			return v, tea.Quit
		case key.Matches(msg, v.keys.Reload):
			return v, v.loadProjects
		case key.Matches(msg, v.keys.Enter):
			if item, ok := v.list.SelectedItem().(projectItem); ok {
				return v, func() tea.Msg { return SelectedProject{Project: item.project} }
			}
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// View renders the view
func (v *ProjectListView) View() string {
	s := v.styles
	if !v.loaded {
		return s.TitleMuted.Render("Loading...")
	}

	var content string
	switch {
	case v.err != nil:
		content = lipgloss.JoinVertical(lipgloss.Left,
			s.Title.Render("Projects"),
			"",
			s.ErrorLine.Render(v.err.Error()),
		)
	case len(v.list.Items()) == 0:
		content = lipgloss.JoinVertical(lipgloss.Left,
			s.Title.Render("Projects"),
			"",
			s.TitleMuted.Render("No projects."),
		)
	default:
		content = v.list.View()
	}

	help := s.Help.Render(fmt.Sprintf("%s open • %s filter • %s reload • %s quit",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("/"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("q"),
	))
	return styles.CenterView(content+"\n"+help, v.width, v.height)
}
