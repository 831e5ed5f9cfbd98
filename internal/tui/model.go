package tui

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
)

// Searcher runs one search request
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// SearchResultMsg is sent when a search finishes
type SearchResultMsg struct {
	Seq  int // Matches Model.seq of the request that produced it
	Resp *search.Response
	Err  error
}

// Options configures a new Model
type Options struct {
	Network    string
	Version    string
	Query      string         // Initial query, searched on start
	Request    search.Request // Ranking parameters applied to every search
	ShowScores bool
	OnSelect   func(hit model.SearchHit, term string) // Called when the user opens a result
}

// Model represents the TUI state
type Model struct {
	textInput   textinput.Model // Search input field
	styles      Styles          // Pre-configured styles
	searcher    Searcher
	base        search.Request // Ranking parameters from the command line
	network     string
	version     string
	onSelect    func(hit model.SearchHit, term string)
	resp        *search.Response // Last successful response
	searchErr   error            // Last search error if any
	lastQuery   string           // Query of the displayed results
	selected    *model.SearchHit // Opened hit (when user presses Enter on a result)
	seq         int              // Incremented per search, stale results are dropped
	page        int              // Zero-indexed result page
	cursor      int              // Current cursor position in hits
	width       int              // Terminal width
	height      int              // Terminal height
	quitting    bool             // Whether user is quitting
	searching   bool             // Whether a search is in progress
	showScores  bool             // Whether to show score breakdown
	showHelp    bool             // Whether to show help text
}

// New creates a new TUI model
func New(searcher Searcher, opts Options) Model {
	styles := newStyles()

	ti := textinput.New()
	ti.Placeholder = "Search " + opts.Network + " sites..."
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50
	ti.Prompt = "> "
	ti.PromptStyle = styles.Accent

	if opts.Query != "" {
		ti.SetValue(opts.Query)
	}

	return Model{
		textInput:   ti,
		styles:      styles,
		searcher:    searcher,
		base:        opts.Request,
		network:     opts.Network,
		version:     opts.Version,
		onSelect:    opts.OnSelect,
		showScores:  opts.ShowScores,
	}
}

// Init initializes the model (required by tea.Model interface)
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if strings.TrimSpace(m.textInput.Value()) != "" {
		cmds = append(cmds, func() tea.Msg { return startSearchMsg{} })
	}
	return tea.Batch(cmds...)
}

// startSearchMsg asks the model to search the current input
type startSearchMsg struct{}

// runSearch marks the model busy and returns the command performing the search
func (m *Model) runSearch(page int) tea.Cmd {
	query := strings.TrimSpace(m.textInput.Value())
	if query == "" || m.searcher == nil {
		return nil
	}

	m.seq++
	m.searching = true
	m.searchErr = nil

	seq := m.seq
	req := m.base
	req.Query = query
	req.Page = page
	searcher := m.searcher

	return func() tea.Msg {
		resp, err := searcher.Search(context.Background(), req)
		return SearchResultMsg{Seq: seq, Resp: resp, Err: err}
	}
}

func (m Model) hits() []model.SearchHit {
	if m.resp == nil {
		return nil
	}
	return m.resp.Hits
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			query := strings.TrimSpace(m.textInput.Value())
			if query != m.lastQuery || m.resp == nil {
				return m, m.runSearch(0)
			}
			hits := m.hits()
			if len(hits) > 0 && m.cursor < len(hits) {
				hit := hits[m.cursor]
				m.selected = &hit
				if m.onSelect != nil {
					m.onSelect(hit, m.lastQuery)
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "pgdown", "ctrl+f":
			if m.resp != nil && m.page+1 < m.resp.MaxPages {
				return m, m.runSearch(m.page + 1)
			}

		case "pgup", "ctrl+b":
			if m.resp != nil && m.page > 0 {
				return m, m.runSearch(m.page - 1)
			}

		case "ctrl+s":
			m.showScores = !m.showScores

		case "?":
			m.showHelp = !m.showHelp

		case "down", "ctrl+n":
			if m.cursor < len(m.hits())-1 {
				m.cursor++
			}

		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		default:
			m.textInput, cmd = m.textInput.Update(msg)
		}

	case startSearchMsg:
		return m, m.runSearch(0)

	case SearchResultMsg:
		if msg.Seq != m.seq {
			return m, nil // Superseded by a newer search
		}
		m.searching = false
		if msg.Err != nil {
			m.searchErr = msg.Err
			return m, nil
		}
		m.resp = msg.Resp
		m.lastQuery = msg.Resp.Query
		m.page = msg.Resp.DisplayPage - 1
		m.cursor = 0

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, cmd
}

// renderHit renders one result with the query highlighted and an optional snippet line
func renderHit(hit model.SearchHit, style, highlightStyle, snippetStyle, scoreStyle lipgloss.Style, query string, showScores bool) string {
	var result strings.Builder

	result.WriteString(renderQueryMatch(hit.DisplayString(), query, style, highlightStyle))

	if showScores {
		authority := "-"
		if hit.Authority != nil {
			authority = fmt.Sprintf("%.3f", *hit.Authority)
		}
		scoreText := fmt.Sprintf(" [IR:%.3f A:%s F:%.3f]", hit.IRScore, authority, hit.FinalScore)
		result.WriteString(scoreStyle.Render(scoreText))
	}

	snippet := hit.Meta
	if snippet == "" {
		snippet = hit.Anchor
	}
	if snippet != "" {
		result.WriteString("\n")
		result.WriteString(snippetStyle.Render(truncateSnippet(snippet, 80)))
	}

	return result.String()
}

// renderQueryMatch highlights the first query token inside the display string
func renderQueryMatch(displayStr, query string, style lipgloss.Style, highlightStyle lipgloss.Style) string {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return style.Render(displayStr)
	}
	matchToken := tokens[0]

	// Find substring match (case-insensitive)
	lowerDisplay := strings.ToLower(displayStr)
	lowerToken := strings.ToLower(matchToken)

	idx := strings.Index(lowerDisplay, lowerToken)
	if idx < 0 || len(lowerDisplay) != len(displayStr) {
		return style.Render(displayStr)
	}

	before := displayStr[:idx]
	matched := displayStr[idx : idx+len(matchToken)]
	after := displayStr[idx+len(matchToken):]

	return style.Render(before) + highlightStyle.Render(matched) + style.Render(after)
}

func hitLines(hit model.SearchHit) int {
	if hit.Meta != "" || hit.Anchor != "" {
		return 2
	}
	return 1
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	statusIndicator := m.styles.status(m.searching, m.searchErr)

	titleLeft := fmt.Sprintf("%s %s %s",
		m.styles.Logo,
		m.styles.Title.Render("siterank"),
		m.styles.Muted.Render(m.version))

	hits := m.hits()
	total := 0
	pageInfo := ""
	if m.resp != nil {
		total = m.resp.Total
		pageInfo = fmt.Sprintf("page %d/%d", m.resp.DisplayPage, m.resp.MaxPages)
	}
	count := formatCount(len(hits), total, m.styles.Muted, m.styles.Highlight)
	networkInfo := m.styles.Muted.Render(fmt.Sprintf("[ %s %s ]", m.network, pageInfo))
	helpIndicator := m.styles.Help.Render("[?] Help")

	leftWidth := lipgloss.Width(titleLeft)
	minWidth := leftWidth + lipgloss.Width(count) + lipgloss.Width(statusIndicator) + 4

	var titleRight string
	if m.width < minWidth+30 {
		titleRight = fmt.Sprintf("%s %s", count, statusIndicator)
	} else {
		titleRight = fmt.Sprintf("%s %s %s %s", count, networkInfo, helpIndicator, statusIndicator)
	}

	rightWidth := lipgloss.Width(titleRight)
	spacing := ""
	if m.width > leftWidth+rightWidth {
		spacing = strings.Repeat(" ", m.width-leftWidth-rightWidth)
	}

	b.WriteString(titleLeft)
	b.WriteString(spacing)
	b.WriteString(titleRight)
	b.WriteString("\n")

	if m.width > 0 {
		b.WriteString(m.styles.Help.Render(strings.Repeat("─", m.width)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n")

	usedLines := 5 // Title, separator, blank, input, blank
	if m.resp != nil && m.resp.Suggestion != "" {
		b.WriteString(m.styles.Suggestion.Render("Did you mean: " + m.resp.Suggestion + "?"))
		b.WriteString("\n")
		usedLines++
	}
	if m.searchErr != nil {
		b.WriteString(m.styles.Failed.Render("Search failed: " + m.searchErr.Error()))
		b.WriteString("\n")
		usedLines++
	}
	b.WriteString("\n")
	if m.showHelp {
		usedLines += 3
	}

	maxAvailableLines := m.height - usedLines - 2
	if maxAvailableLines < 1 {
		maxAvailableLines = 1
	}

	// Scroll so the cursor item stays visible
	start := 0
	if m.cursor > 0 && m.cursor < len(hits) {
		lineCount := hitLines(hits[m.cursor])
		itemsBeforeCursor := 0
		for i := m.cursor - 1; i >= 0; i-- {
			itemLines := hitLines(hits[i])
			if lineCount+itemLines > maxAvailableLines {
				break
			}
			lineCount += itemLines
			itemsBeforeCursor++
		}
		start = m.cursor - itemsBeforeCursor
	}

	scoreStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")) // Gray
	renderedLines := 0
	for i := start; i < len(hits); i++ {
		hit := hits[i]
		itemLines := hitLines(hit)
		if renderedLines+itemLines > maxAvailableLines {
			break
		}

		if i == m.cursor {
			b.WriteString(m.styles.Accent.Render("▌"))
		} else {
			b.WriteString(" ")
		}

		content := renderHit(hit, lipgloss.NewStyle(), m.styles.Highlight, m.styles.Snippet, scoreStyle, m.lastQuery, m.showScores)
		for lineIdx, line := range strings.Split(content, "\n") {
			var lineContent string
			if lineIdx == 0 {
				lineContent = " " + line
			} else {
				b.WriteString("\n ")
				lineContent = "     " + line
			}

			if i == m.cursor && m.width > 2 {
				b.WriteString(m.styles.Selected.Width(m.width - 2).Render(lineContent))
			} else {
				b.WriteString(m.styles.Text.Render(lineContent))
			}
		}
		b.WriteString("\n")
		renderedLines += itemLines
	}

	if m.resp != nil && len(hits) == 0 {
		b.WriteString(m.styles.Help.Render(" No results"))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Help.Render("enter: search / open • ↑/↓: navigate • pgup/pgdn: page • ctrl+s: scores • esc: quit • ?: toggle help"))
	}

	return b.String()
}

// Selected returns the opened hit, or nil if none
func (m Model) Selected() *model.SearchHit {
	return m.selected
}

// truncateSnippet truncates text at word boundary respecting UTF-8
func truncateSnippet(text string, maxRunes int) string {
	runes := []rune(text)

	// If text fits - return as is
	if len(runes) <= maxRunes {
		return text
	}

	// Cut at maxRunes
	truncated := runes[:maxRunes]

	// Find last word boundary (space, comma, period, etc.)
	lastSpace := -1
	for i := len(truncated) - 1; i >= 0; i-- {
		if unicode.IsSpace(truncated[i]) || truncated[i] == ',' || truncated[i] == '.' || truncated[i] == ';' {
			lastSpace = i
			break
		}
	}

	// Use word boundary if found in last 20% to avoid losing too much text
	if lastSpace > int(float64(maxRunes)*0.8) {
		truncated = truncated[:lastSpace]
	}

	return string(truncated) + "..."
}

// formatCount renders "shown/total sites"
func formatCount(shown, total int, countStyle lipgloss.Style, activeStyle lipgloss.Style) string {
	return countStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left,
		activeStyle.Render(formatNumber(shown)),
		"/",
		lipgloss.NewStyle().Bold(true).Inherit(countStyle).Render(formatNumber(total)),
		" sites"))
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}
