package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
	"github.com/tgienger/worksphere/internal/ui/keys"
	"github.com/tgienger/worksphere/internal/ui/styles"
)

type detailMode int

// noSubtask is the cursor position meaning the task itself
const noSubtask = -1

const (
	modeNormal detailMode = iota
	modeEditTitle
	modeAddSubtask
	modeComment
	modeLogTime
	modeConfirmDeleteSubtask
)

// NextStatus cycles TODO → IN_PROGRESS → DONE → TODO
func NextStatus(current string) string {
	switch current {
	case models.StatusTodo:
		return models.StatusInProgress
	case models.StatusInProgress:
		return models.StatusDone
	}
	return models.StatusTodo
}

// TaskDetailView shows one task with its subtasks, comments and history
type TaskDetailView struct {
	session *Session
	state   store.State
	styles  *styles.Styles
	keys    keys.KeyMap

	width  int
	height int

	taskID      string
	cursor      int
	mode        detailMode
	showHistory bool
	inputErr    string

	titleInput   textinput.Model
	subtaskInput textinput.Model
	timeInput    textinput.Model
	commentInput textarea.Model
}

// NewTaskDetailView creates the detail view
func NewTaskDetailView(session *Session) *TaskDetailView {
	titleInput := textinput.New()
	titleInput.Placeholder = "Task title"
	titleInput.CharLimit = 200

	subtaskInput := textinput.New()
	subtaskInput.Placeholder = "Subtask title"
	subtaskInput.CharLimit = 200

	timeInput := textinput.New()
	timeInput.Placeholder = "1h30m"
	timeInput.CharLimit = 10

	commentInput := textarea.New()
	commentInput.Placeholder = "Add a comment..."
	commentInput.CharLimit = 2000
	commentInput.SetWidth(50)
	commentInput.SetHeight(3)
	commentInput.ShowLineNumbers = false

	return &TaskDetailView{
		session:      session,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		titleInput:   titleInput,
		subtaskInput: subtaskInput,
		timeInput:    timeInput,
		commentInput: commentInput,
	}
}

// Open switches the view to taskID and fetches it
func (v *TaskDetailView) Open(taskID string) tea.Cmd {
	v.taskID = taskID
	v.cursor = noSubtask
	v.mode = modeNormal
	v.showHistory = false
	v.inputErr = ""
	return v.reload()
}

func (v *TaskDetailView) reload() tea.Cmd {
	id := v.taskID
	withHistory := v.showHistory
	return v.session.run(func(ctx context.Context) {
		v.session.Store.FetchTaskDetail(ctx, id, v.session.CallerID)
		if withHistory {
			v.session.Store.FetchHistory(ctx, id, v.session.CallerID)
		}
	})
}

func (v *TaskDetailView) task() *models.Task {
	if t := v.state.CurrentTask; t != nil && t.ID == v.taskID {
		return t
	}
	return nil
}

func (v *TaskDetailView) canEdit(field string) bool {
	t := v.task()
	if t == nil {
		return false
	}
	if t.Capabilities == nil {
		return !t.IsLocked
	}
	return t.Capabilities.CanUpdate && (field == "" || t.Capabilities.Allows(field))
}

func (v *TaskDetailView) selectedSubtask() (models.Subtask, bool) {
	t := v.task()
	if t == nil || v.cursor < 0 || v.cursor >= len(t.Subtasks) {
		return models.Subtask{}, false
	}
	return t.Subtasks[v.cursor], true
}

// Init implements tea.Model
func (v *TaskDetailView) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (v *TaskDetailView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.commentInput.SetWidth(clamp(styles.ContentWidth(v.width)-10, 20, 60))
		return v, nil

	case StateMsg:
		v.state = msg.State
		if t := v.task(); t != nil && v.cursor >= len(t.Subtasks) {
			v.cursor = max(noSubtask, len(t.Subtasks)-1)
		}
		return v, nil

	case tea.KeyMsg:
		switch v.mode {
		case modeEditTitle:
			return v.updateTitleInput(msg)
		case modeAddSubtask:
			return v.updateSubtaskInput(msg)
		case modeComment:
			return v.updateComment(msg)
		case modeLogTime:
			return v.updateLogTime(msg)
		case modeConfirmDeleteSubtask:
			return v.updateConfirmDelete(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *TaskDetailView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	caller := v.session.CallerID
	st := v.session.Store

	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Back):
		return v, func() tea.Msg { return BackToList{} }

	case key.Matches(msg, v.keys.Reload):
		return v, v.reload()

	case key.Matches(msg, v.keys.Status):
		t := v.task()
		if t == nil || !v.canEdit("status_code") {
			return v, nil
		}
		id, next := t.ID, NextStatus(t.StatusCode)
		return v, v.session.run(func(ctx context.Context) {
			st.UpdateTaskField(ctx, id, caller, "status_code", next)
		})

	case key.Matches(msg, v.keys.Edit):
		t := v.task()
		if t == nil || !v.canEdit("title") {
			return v, nil
		}
		v.mode = modeEditTitle
		v.titleInput.SetValue(t.Title)
		v.titleInput.CursorEnd()
		v.titleInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.MoveUp), key.Matches(msg, v.keys.MoveDown):
		sub, ok := v.selectedSubtask()
		if !ok || !v.canEdit("") {
			return v, nil
		}
		dir := models.DirectionDown
		if key.Matches(msg, v.keys.MoveUp) {
			dir = models.DirectionUp
			v.cursor = max(0, v.cursor-1)
		} else {
			v.cursor++
		}
		return v, v.session.run(func(ctx context.Context) {
			st.ReorderSubtask(ctx, sub.ID, caller, dir)
		})

	case key.Matches(msg, v.keys.Up):
		if v.cursor > noSubtask {
			v.cursor--
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if t := v.task(); t != nil && v.cursor < len(t.Subtasks)-1 {
			v.cursor++
		}
		return v, nil

	case key.Matches(msg, v.keys.Toggle):
		sub, ok := v.selectedSubtask()
		if !ok || !v.canEdit("") {
			return v, nil
		}
		return v, v.session.run(func(ctx context.Context) {
			st.ToggleSubtask(ctx, sub.ID, caller, sub.StatusCode)
		})

	case key.Matches(msg, v.keys.Delete):
		if _, ok := v.selectedSubtask(); ok && v.canEdit("") {
			v.mode = modeConfirmDeleteSubtask
		}
		return v, nil

	case key.Matches(msg, v.keys.Add):
		if !v.canEdit("") {
			return v, nil
		}
		v.mode = modeAddSubtask
		v.subtaskInput.Reset()
		v.subtaskInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Comment):
		if v.task() == nil {
			return v, nil
		}
		v.mode = modeComment
		v.commentInput.Reset()
		v.commentInput.Focus()
		return v, textarea.Blink

	case key.Matches(msg, v.keys.LogTime):
		t := v.task()
		if t == nil || (t.Capabilities != nil && !t.Capabilities.CanLogTime) {
			return v, nil
		}
		v.mode = modeLogTime
		v.inputErr = ""
		v.timeInput.Reset()
		v.timeInput.Focus()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.History):
		v.showHistory = !v.showHistory
		if !v.showHistory {
			return v, nil
		}
		id := v.taskID
		return v, v.session.run(func(ctx context.Context) {
			st.FetchHistory(ctx, id, caller)
		})
	}
	return v, nil
}

func (v *TaskDetailView) leaveInput() {
	v.mode = modeNormal
	v.inputErr = ""
	v.titleInput.Blur()
	v.subtaskInput.Blur()
	v.timeInput.Blur()
	v.commentInput.Blur()
}

func (v *TaskDetailView) updateTitleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.leaveInput()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		title := strings.TrimSpace(v.titleInput.Value())
		v.leaveInput()
		t := v.task()
		if title == "" || t == nil || title == t.Title {
			return v, nil
		}
		id, caller := t.ID, v.session.CallerID
		return v, v.session.run(func(ctx context.Context) {
			v.session.Store.UpdateTask(ctx, id, caller, map[string]any{"title": title})
		})
	}
	var cmd tea.Cmd
	v.titleInput, cmd = v.titleInput.Update(msg)
	return v, cmd
}

func (v *TaskDetailView) updateSubtaskInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.leaveInput()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		title := strings.TrimSpace(v.subtaskInput.Value())
		v.leaveInput()
		if title == "" {
			return v, nil
		}
		id, caller := v.taskID, v.session.CallerID
		return v, v.session.run(func(ctx context.Context) {
			v.session.Store.AddSubtask(ctx, id, caller, models.NewSubtask{Title: title})
		})
	}
	var cmd tea.Cmd
	v.subtaskInput, cmd = v.subtaskInput.Update(msg)
	return v, cmd
}

func (v *TaskDetailView) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.leaveInput()
		return v, nil
	case key.Matches(msg, v.keys.Submit):
		content := strings.TrimSpace(v.commentInput.Value())
		v.leaveInput()
		if content == "" {
			return v, nil
		}
		id, caller := v.taskID, v.session.CallerID
		return v, v.session.run(func(ctx context.Context) {
			v.session.Store.AddComment(ctx, id, caller, content)
		})
	}
	var cmd tea.Cmd
	v.commentInput, cmd = v.commentInput.Update(msg)
	return v, cmd
}

// ParseDuration reads "1h30m", "45m" or "2h" into a time-log payload for today
func ParseDuration(input string, today time.Time) (models.NewTimeLog, error) {
	d, err := time.ParseDuration(strings.TrimSpace(input))
	if err != nil {
		return models.NewTimeLog{}, err
	}
	if d < time.Minute {
		return models.NewTimeLog{}, fmt.Errorf("duration must be at least one minute")
	}
	total := int(d.Minutes())
	return models.NewTimeLog{
		Hours:   total / 60,
		Minutes: total % 60,
		LogDate: today.Format("2006-01-02"),
	}, nil
}

func (v *TaskDetailView) updateLogTime(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.leaveInput()
		return v, nil
	case key.Matches(msg, v.keys.Enter):
		in, err := ParseDuration(v.timeInput.Value(), time.Now())
		if err != nil {
			v.inputErr = err.Error()
			return v, nil
		}
		if sub, ok := v.selectedSubtask(); ok {
			in.SubtaskID = sub.ID
		}
		v.leaveInput()
		id, caller := v.taskID, v.session.CallerID
		return v, v.session.run(func(ctx context.Context) {
			v.session.Store.AddTimeLog(ctx, id, caller, in)
		})
	}
	var cmd tea.Cmd
	v.timeInput, cmd = v.timeInput.Update(msg)
	return v, cmd
}

func (v *TaskDetailView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Confirm):
		v.mode = modeNormal
		sub, ok := v.selectedSubtask()
		if !ok {
			return v, nil
		}
		caller := v.session.CallerID
		return v, v.session.run(func(ctx context.Context) {
			v.session.Store.DeleteSubtask(ctx, sub.ID, caller)
		})
	case key.Matches(msg, v.keys.Cancel):
		v.mode = modeNormal
	}
	return v, nil
}

// View renders the view
func (v *TaskDetailView) View() string {
	s := v.styles
	t := v.task()
	if t == nil {
		body := s.TitleMuted.Render("Loading...")
		if line := renderError(s, v.session, v.state.Error); line != "" {
			body += "\n\n" + line
		}
		return styles.CenterView(lipgloss.NewStyle().Padding(1, 2).Render(body), v.width, v.height)
	}

	textWidth := clamp(styles.ContentWidth(v.width)-10, 20, 70)

	title := s.Title.Render(t.Title)
	if t.IsLocked {
		title += " " + s.Locked.Render("(locked)")
	}
	if v.state.Loading {
		title += " " + s.TitleMuted.Render("loading…")
	}

	facts := []string{
		styles.Status(t.StatusCode),
		styles.PriorityBadge(t.PriorityCode),
		t.TypeCode,
		fmt.Sprintf("v%d", t.RowVersion),
	}
	if t.Project != nil {
		facts = append(facts, t.Project.Code)
	}

	var dates string
	if t.StartDate != "" || t.DueDate != "" {
		dates = s.TitleMuted.Render(fmt.Sprintf("%s → %s", orDash(t.StartDate), orDash(t.DueDate)))
	}

	desc := t.Description
	if desc == "" {
		desc = s.TitleMuted.Render("No description")
	}

	sections := []string{
		title,
		strings.Join(facts, "  "),
		dates,
		"",
		s.Label.Render("Assignees"),
		orNone(s, assigneeNames(t.Assignees)),
		"",
		s.Label.Render("Tags"),
		orNone(s, renderTags(t.Tags)),
		"",
		s.Label.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(desc),
		"",
		s.Label.Render(fmt.Sprintf("Subtasks · logged %s", formatMinutes(t.TotalLoggedMinutes))),
		v.renderSubtasks(),
		"",
		s.Label.Render("Comments"),
		v.renderComments(textWidth),
	}
	if v.showHistory {
		sections = append(sections, "", s.Label.Render("History"), v.renderHistory(textWidth))
	}
	if input := v.renderInput(); input != "" {
		sections = append(sections, "", input)
	}
	if line := renderError(s, v.session, v.state.Error); line != "" {
		sections = append(sections, "", line)
	}
	sections = append(sections, v.renderHelp())

	padded := lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	return styles.CenterView(padded, v.width, v.height)
}

func (v *TaskDetailView) renderSubtasks() string {
	s := v.styles
	t := v.task()
	if len(t.Subtasks) == 0 {
		return s.TitleMuted.Render("No subtasks")
	}
	lines := make([]string, 0, len(t.Subtasks))
	for i, sub := range t.Subtasks {
		line := styles.Checkbox(sub.StatusCode) + " " + sub.Title
		if sub.EndDate != "" {
			line += " " + s.TitleMuted.Render(sub.EndDate)
		}
		if sub.LoggedMinutes > 0 {
			line += " " + s.TitleMuted.Render(formatMinutes(sub.LoggedMinutes))
		}
		if i == v.cursor {
			line = s.ListSelected.Render(line)
		} else {
			line = s.ListItem.Render(line)
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskDetailView) renderComments(width int) string {
	s := v.styles
	t := v.task()
	if len(t.Comments) == 0 {
		return s.TitleMuted.Render("No comments yet")
	}
	var lines []string
	for _, c := range t.Comments {
		header := c.CreatorName
		if !c.CreatedAt.IsZero() {
			header += " · " + c.CreatedAt.Local().Format("Jan 2, 2006 3:04 PM")
		}
		lines = append(lines, lipgloss.JoinVertical(lipgloss.Left,
			s.TitleMuted.Render(header),
			lipgloss.NewStyle().Width(width).Render(c.Content),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskDetailView) renderHistory(width int) string {
	s := v.styles
	if v.state.LoadingHistory {
		return s.TitleMuted.Render("Loading...")
	}
	if len(v.state.History) == 0 {
		return s.TitleMuted.Render("No history")
	}
	var lines []string
	for _, h := range v.state.History {
		line := fmt.Sprintf("%s %s %s", h.CreatedAt.Local().Format("2006-01-02 15:04"), h.UserName, h.ActionText)
		if h.Details != "" {
			line += ": " + h.Details
		}
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *TaskDetailView) renderInput() string {
	s := v.styles
	var label, field string
	switch v.mode {
	case modeEditTitle:
		label, field = "Title", v.titleInput.View()
	case modeAddSubtask:
		label, field = "New subtask", v.subtaskInput.View()
	case modeLogTime:
		label, field = "Log time", v.timeInput.View()
	case modeComment:
		label, field = "Comment", v.commentInput.View()
	case modeConfirmDeleteSubtask:
		sub, _ := v.selectedSubtask()
		return s.Title.Foreground(styles.Current.Error).Render(fmt.Sprintf("Delete subtask %q? y/n", sub.Title))
	default:
		return ""
	}
	out := s.Label.Render(label) + "\n" + s.InputFocused.Render(field)
	if v.inputErr != "" {
		out += "\n" + s.ErrorLine.Render(v.inputErr)
	}
	return out
}

func (v *TaskDetailView) renderHelp() string {
	s := v.styles
	switch v.mode {
	case modeComment:
		return s.Help.Render(fmt.Sprintf("%s submit • %s cancel", s.HelpKey.Render("ctrl+s"), s.HelpKey.Render("esc")))
	case modeEditTitle, modeAddSubtask, modeLogTime:
		return s.Help.Render(fmt.Sprintf("%s save • %s cancel", s.HelpKey.Render("↵"), s.HelpKey.Render("esc")))
	case modeConfirmDeleteSubtask:
		return ""
	}
	return s.Help.Render(fmt.Sprintf("%s status • %s title • %s add • %s toggle • %s/%s move • %s del • %s comment • %s log • %s history • %s reload • %s back",
		s.HelpKey.Render("s"),
		s.HelpKey.Render("e"),
		s.HelpKey.Render("a"),
		s.HelpKey.Render("space"),
		s.HelpKey.Render("K"),
		s.HelpKey.Render("J"),
		s.HelpKey.Render("d"),
		s.HelpKey.Render("c"),
		s.HelpKey.Render("l"),
		s.HelpKey.Render("h"),
		s.HelpKey.Render("r"),
		s.HelpKey.Render("esc"),
	))
}

func renderTags(tags []models.Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		style := lipgloss.NewStyle()
		if tag.Color != "" {
			style = style.Foreground(lipgloss.Color(tag.Color))
		}
		parts = append(parts, style.Render(tag.Name))
	}
	return strings.Join(parts, " ")
}

func orNone(s *styles.Styles, text string) string {
	if text == "" {
		return s.TitleMuted.Render("None")
	}
	return text
}

func orDash(s string) string {
	if s == "" {
		return "–"
	}
	return s
}
