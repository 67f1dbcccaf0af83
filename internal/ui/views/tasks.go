package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/worksphere/internal/i18n"
	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
	"github.com/tgienger/worksphere/internal/ui/keys"
	"github.com/tgienger/worksphere/internal/ui/styles"
)

// TaskListView shows the tasks of one project in server order
type TaskListView struct {
	session *Session
	project models.Project
	state   store.State
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	cursor  int
	scrollY int
	// followID keeps the cursor on a task that is being moved
	followID string

	confirmingDelete bool
	deleteTarget     models.Task

	showHelpPopup bool
}

// NewTaskListView creates a task list for project
func NewTaskListView(session *Session, project models.Project) *TaskListView {
	return &TaskListView{
		session: session,
		project: project,
		styles:  styles.NewStyles(),
		keys:    keys.DefaultKeyMap(),
	}
}

// Init fetches the task list
func (v *TaskListView) Init() tea.Cmd {
	return v.reload()
}

func (v *TaskListView) reload() tea.Cmd {
	return v.session.run(func(ctx context.Context) {
		v.session.Store.FetchProjectTasks(ctx, v.project.ID, v.session.CallerID)
	})
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case StateMsg:
		v.state = msg.State
		if v.followID != "" {
			for i, t := range v.state.Tasks {
				if t.ID == v.followID {
					v.cursor = i
					break
				}
			}
		}
		if v.cursor >= len(v.state.Tasks) {
			v.cursor = max(0, len(v.state.Tasks)-1)
		}
		v.ensureVisible()
		return v, nil

	case tea.KeyMsg:
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.state.Tasks) {
		return models.Task{}, false
	}
	return v.state.Tasks[v.cursor], true
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToProjects{} }

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Reload):
		return v, v.reload()

	case key.Matches(msg, v.keys.MoveUp), key.Matches(msg, v.keys.MoveDown):
		task, ok := v.selected()
		if !ok {
			return v, nil
		}
		dir := models.DirectionDown
		if key.Matches(msg, v.keys.MoveUp) {
			dir = models.DirectionUp
		}
		v.followID = task.ID
		return v, v.session.run(func(ctx context.Context) {
			if v.session.Store.ReorderTask(ctx, task.ID, v.session.CallerID, dir) {
				v.session.Store.FetchProjectTasks(ctx, v.project.ID, v.session.CallerID)
			}
		})

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.followID = ""
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.state.Tasks)-1 {
			v.cursor++
			v.followID = ""
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if task, ok := v.selected(); ok {
			return v, func() tea.Msg { return OpenTask{ID: task.ID} }
		}
		return v, nil

	case key.Matches(msg, v.keys.Delete):
		if task, ok := v.selected(); ok {
			if task.Capabilities != nil && !task.Capabilities.CanDelete {
				return v, nil
			}
			v.confirmingDelete = true
			v.deleteTarget = task
		}
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Confirm):
		v.confirmingDelete = false
		id := v.deleteTarget.ID
		return v, v.session.run(func(ctx context.Context) {
			if v.session.Store.DeleteTask(ctx, id, v.session.CallerID) {
				v.session.Store.FetchProjectTasks(ctx, v.project.ID, v.session.CallerID)
			}
		})
	case key.Matches(msg, v.keys.Cancel):
		v.confirmingDelete = false
	}
	return v, nil
}

func (v *TaskListView) visibleItems() int {
	// two lines per task plus a blank one
	return max((v.height-10)/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	}
	if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

// View renders the view
func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	if line := renderError(v.styles, v.session, v.state.Error); line != "" {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	header := s.Title.Render(v.project.Name)
	if v.project.Code != "" {
		header += " " + s.TitleMuted.Render(v.project.Code)
	}
	if v.state.Loading {
		header += " " + s.TitleMuted.Render("loading…")
	}
	return header
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles
	if len(v.state.Tasks) == 0 {
		if v.state.Loading {
			return s.TitleMuted.Render("Loading...")
		}
		return s.TitleMuted.Render("No tasks.")
	}

	end := min(v.scrollY+v.visibleItems(), len(v.state.Tasks))
	var items []string
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(v.state.Tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	title := styles.Status(task.StatusCode) + " " + task.Title
	if task.IsLocked {
		title += " " + s.Locked.Render("(locked)")
	}

	var meta []string
	if task.DueDate != "" {
		meta = append(meta, "due "+task.DueDate)
	}
	if task.SubtasksCount > 0 {
		meta = append(meta, fmt.Sprintf("%d/%d subtasks", task.SubtasksDone, task.SubtasksCount))
	}
	if names := assigneeNames(task.Assignees); names != "" {
		meta = append(meta, names)
	}
	if task.TotalLoggedMinutes > 0 {
		meta = append(meta, formatMinutes(task.TotalLoggedMinutes))
	}
	metaLine := s.TitleMuted.Render(strings.Join(meta, " · "))

	style := s.ListItem
	if selected {
		style = s.ListSelected
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		style.Width(width).Render(title),
		style.Width(width).Render(metaLine),
	) + "\n"
}

func (v *TaskListView) renderHelp() string {
	s := v.styles
	if w := styles.ContentWidth(v.width); w > 0 && w < 50 {
		return s.Help.Render(s.HelpKey.Render("?") + " help")
	}
	return s.Help.Render(fmt.Sprintf("%s open • %s/%s move • %s del • %s reload • %s projects • %s quit",
		s.HelpKey.Render("↵"),
		s.HelpKey.Render("K"),
		s.HelpKey.Render("J"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("esc"),
		s.HelpKey.Render("q"),
	))
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	items := []string{
		s.HelpKey.Render("↵") + "      open task",
		s.HelpKey.Render("K/J") + "    move task up/down",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("r") + "      reload",
		s.HelpKey.Render("esc") + "    projects",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, items...)...,
	)
	centered := lipgloss.Place(styles.ContentWidth(v.width), v.height,
		lipgloss.Center, lipgloss.Center,
		s.Popup.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(v.deleteTarget.Title),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)
	centered := lipgloss.Place(styles.ContentWidth(v.width), v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

// renderError shows the store error with the reload hint, or nothing
func renderError(s *styles.Styles, session *Session, msg string) string {
	if msg == "" {
		return ""
	}
	return s.ErrorLine.Render(msg + " · " + session.printer().Sprintf(i18n.MsgConflictReloadHint))
}

func assigneeNames(assignees []models.Assignee) string {
	names := make([]string, 0, len(assignees))
	for _, a := range assignees {
		names = append(names, a.User.FullName)
	}
	return strings.Join(names, ", ")
}

func formatMinutes(total int) string {
	h, m := total/60, total%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}
