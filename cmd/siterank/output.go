package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/igusev/siterank/internal/model"
	"github.com/igusev/siterank/internal/search"
)

const snippetWidth = 100

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderResults formats one result page for the terminal
func renderResults(resp *search.Response, scores bool) string {
	var b strings.Builder

	header := fmt.Sprintf("%d sites for %q on %s, page %d/%d (%.3fs)",
		resp.Total, resp.Query, resp.Network, resp.DisplayPage, resp.MaxPages, resp.ElapsedSeconds)
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	if resp.Suggestion != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("Did you mean: %s?", resp.Suggestion)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(resp.Hits) == 0 {
		b.WriteString(mutedStyle.Render("No results"))
		b.WriteString("\n")
		return b.String()
	}

	numWidth := len(fmt.Sprint(resp.ResultBegin + len(resp.Hits)))
	indent := strings.Repeat(" ", numWidth+2)
	for i, hit := range resp.Hits {
		num := lipgloss.NewStyle().Width(numWidth).Align(lipgloss.Right).Render(fmt.Sprint(resp.ResultBegin + i + 1))
		b.WriteString(fmt.Sprintf("%s. %s\n", num, sectionStyle.Render(hit.DisplayString())))
		b.WriteString(indent + urlStyle.Render(hit.URL) + "\n")
		if s := hitSnippet(hit); s != "" {
			b.WriteString(indent + s + "\n")
		}
		if scores {
			b.WriteString(indent + scoreStyle.Render(scoreLine(hit)) + "\n")
		}
	}

	return b.String()
}

// hitSnippet returns the meta description or, failing that, the anchor text
func hitSnippet(hit model.SearchHit) string {
	text := strings.TrimSpace(hit.Meta)
	if text == "" {
		text = strings.TrimSpace(hit.Anchor)
	}
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > snippetWidth {
		return string(runes[:snippetWidth-1]) + "…"
	}
	return text
}

func scoreLine(hit model.SearchHit) string {
	authority := "-"
	if hit.Authority != nil {
		authority = fmt.Sprintf("%.3f", *hit.Authority)
	}
	updated := "-"
	if !hit.UpdatedOn.IsZero() {
		updated = hit.UpdatedOn.Format("2006-01-02")
	}
	return fmt.Sprintf("ir=%.3f authority=%s final=%.3f updated=%s", hit.IRScore, authority, hit.FinalScore, updated)
}
