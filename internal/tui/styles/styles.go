package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	HNOrange   = lipgloss.Color("#FF6600")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(HNOrange)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)
)

// Header and status bar
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(HNOrange).
			Bold(true).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)

	FilterBadgeStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight).
				Padding(0, 1)

	ActiveBadgeStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(HNOrange).
				Padding(0, 1)
)

// List item styles
var (
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight).
				Padding(0, 1)

	NormalItemStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Padding(0, 1)

	BookmarkMark = AccentStyle.Render("★")
	HiddenMark   = DimStyle.Render("·")
)

// Search and filter input styles
var (
	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(HNOrange).
				Bold(true)

	MatchHighlightStyle = lipgloss.NewStyle().
				Foreground(HNOrange).
				Bold(true)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().Foreground(HNOrange)

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}
