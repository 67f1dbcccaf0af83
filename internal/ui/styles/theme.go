package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/worksphere/internal/models"
)

// Theme is a color scheme. Workflow colors are keyed to task state so every
// view renders status, priority and locks the same way.
type Theme struct {
	Name string

	Background    lipgloss.Color
	Foreground    lipgloss.Color
	ForegroundDim lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Error     lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color
	Selection   lipgloss.Color

	Todo       lipgloss.Color
	InProgress lipgloss.Color
	Done       lipgloss.Color
	Locked     lipgloss.Color

	PriorityHigh   lipgloss.Color
	PriorityMedium lipgloss.Color
	PriorityLow    lipgloss.Color
}

// TokyoNight is the default color theme
var TokyoNight = Theme{
	Name: "Tokyo Night",

	Background:    lipgloss.Color("#1a1b26"),
	Foreground:    lipgloss.Color("#c0caf5"),
	ForegroundDim: lipgloss.Color("#565f89"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#bb9af7"),
	Error:     lipgloss.Color("#f7768e"),

	Border:      lipgloss.Color("#3b4261"),
	BorderFocus: lipgloss.Color("#7aa2f7"),
	Selection:   lipgloss.Color("#33467c"),

	Todo:       lipgloss.Color("#a9b1d6"),
	InProgress: lipgloss.Color("#7dcfff"),
	Done:       lipgloss.Color("#9ece6a"),
	Locked:     lipgloss.Color("#e0af68"),

	PriorityHigh:   lipgloss.Color("#f7768e"),
	PriorityMedium: lipgloss.Color("#e0af68"),
	PriorityLow:    lipgloss.Color("#565f89"),
}

// Current holds the active theme
var Current = TokyoNight

// MaxWidth caps content at a classic terminal width
const MaxWidth = 80

// ContentWidth returns min(terminalWidth, MaxWidth)
func ContentWidth(terminalWidth int) int {
	return min(terminalWidth, MaxWidth)
}

// CenterView centers content horizontally on terminals wider than MaxWidth
func CenterView(content string, terminalWidth, terminalHeight int) string {
	if terminalWidth <= MaxWidth {
		return content
	}
	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Center, lipgloss.Top, content)
}

// Styles holds the pre-computed styles for the UI
type Styles struct {
	Title      lipgloss.Style
	TitleMuted lipgloss.Style
	Label      lipgloss.Style

	ListItem     lipgloss.Style
	ListSelected lipgloss.Style

	Button        lipgloss.Style
	ButtonPrimary lipgloss.Style
	InputFocused  lipgloss.Style
	Popup         lipgloss.Style

	Help    lipgloss.Style
	HelpKey lipgloss.Style

	// ErrorLine renders State.Error above the help line
	ErrorLine lipgloss.Style
	Locked    lipgloss.Style
}

func boxed(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border)
}

// NewStyles builds styles from the current theme
func NewStyles() *Styles {
	t := Current
	fg := lipgloss.NewStyle().Foreground(t.Foreground)
	dim := lipgloss.NewStyle().Foreground(t.ForegroundDim)
	accent := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)

	return &Styles{
		Title:      accent,
		TitleMuted: dim,
		Label:      lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),

		ListItem:     fg.Padding(0, 2),
		ListSelected: accent.Background(t.Selection).Padding(0, 2),

		Button:        boxed(t.Border).Foreground(t.Foreground).Padding(0, 2),
		ButtonPrimary: accent.Foreground(t.Background).Background(t.Primary).Padding(0, 2),
		InputFocused:  boxed(t.BorderFocus).Foreground(t.Foreground).Padding(0, 1),
		Popup:         boxed(t.Border).Padding(0, 1),

		Help:    dim.Padding(1, 2),
		HelpKey: accent,

		ErrorLine: lipgloss.NewStyle().Foreground(t.Error).Bold(true).Padding(0, 2),
		Locked:    lipgloss.NewStyle().Foreground(t.Locked),
	}
}

// StatusColor maps a task or subtask status to its theme color
func StatusColor(code string) lipgloss.Color {
	switch code {
	case models.StatusInProgress:
		return Current.InProgress
	case models.StatusDone:
		return Current.Done
	}
	return Current.Todo
}

// Status renders a status code in its color
func Status(code string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(code)).Render(code)
}

// PriorityBadge renders a priority code; unknown codes use the low color
func PriorityBadge(code string) string {
	color := Current.PriorityLow
	switch code {
	case "HIGH", "URGENT":
		color = Current.PriorityHigh
	case "MEDIUM":
		color = Current.PriorityMedium
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(code)
}

// Checkbox renders a subtask status as a checkbox
func Checkbox(code string) string {
	if code == models.StatusDone {
		return lipgloss.NewStyle().Foreground(Current.Done).Render("[x]")
	}
	return "[ ]"
}
