package tui

import "github.com/charmbracelet/lipgloss"

// Palette, as light/dark pairs
var (
	violet    = lipgloss.AdaptiveColor{Light: "#5B2C9F", Dark: "#B98CFF"}
	lavender  = lipgloss.AdaptiveColor{Light: "#7D4698", Dark: "#C39BD3"}
	dim       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6967A3"}
	gray      = lipgloss.AdaptiveColor{Light: "#737373", Dark: "#999999"}
	ink       = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F7F1FF"}
	selection = lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#303030"}
	amber     = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FCE566"}
	cyan      = lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5AD4E6"}
	green     = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#7BD88F"}
	red       = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FC618D"}
)

// logoShades colors the logo blocks, darkest first
var logoShades = []lipgloss.Color{"#4A1D7A", "#63318A", "#A071B5", "#C39BD3"}

// Styles holds the styles used by the result browser
type Styles struct {
	Logo       string         // Pre-rendered block gradient
	Title      lipgloss.Style
	Muted      lipgloss.Style // Version, network and counts
	Accent     lipgloss.Style // Prompt and cursor
	Text       lipgloss.Style
	Selected   lipgloss.Style
	Highlight  lipgloss.Style // Query terms and the shown count
	Snippet    lipgloss.Style
	Suggestion lipgloss.Style
	Busy       lipgloss.Style
	Failed     lipgloss.Style
	Help       lipgloss.Style
}

func newStyles() Styles {
	return Styles{
		Logo:       renderLogo(),
		Title:      lipgloss.NewStyle().Foreground(violet).Bold(true),
		Muted:      lipgloss.NewStyle().Foreground(dim),
		Accent:     lipgloss.NewStyle().Foreground(lavender).Bold(true),
		Text:       lipgloss.NewStyle().Foreground(ink),
		Selected:   lipgloss.NewStyle().Foreground(ink).Background(selection),
		Highlight:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		Snippet:    lipgloss.NewStyle().Foreground(gray).Italic(true),
		Suggestion: lipgloss.NewStyle().Foreground(cyan).Italic(true),
		Busy:       lipgloss.NewStyle().Foreground(green),
		Failed:     lipgloss.NewStyle().Foreground(red),
		Help:       lipgloss.NewStyle().Foreground(gray),
	}
}

func renderLogo() string {
	blocks := []rune("█▓▒░")
	var logo string
	for i, shade := range logoShades {
		logo += lipgloss.NewStyle().Foreground(shade).Render(string(blocks[i]))
	}
	return logo
}

// status renders the search indicator: ● busy or failed, ○ idle
func (s Styles) status(searching bool, err error) string {
	switch {
	case searching:
		return s.Busy.Render("●")
	case err != nil:
		return s.Failed.Render("●")
	default:
		return s.Muted.Render("○")
	}
}
