package index

import (
	"bytes"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
)

// squeezeBlankLines trims every line and collapses runs of blank lines into one
func squeezeBlankLines(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	prevEmpty := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !prevEmpty {
				cleaned = append(cleaned, "")
			}
			prevEmpty = true
			continue
		}
		cleaned = append(cleaned, line)
		prevEmpty = false
	}

	return strings.Join(cleaned, "\n")
}

// textExtractor is an AST visitor that extracts plain text
type textExtractor struct {
	buf *bytes.Buffer
}

// Visit implements ast.NodeVisitor interface
func (te *textExtractor) Visit(node ast.Node, entering bool) ast.WalkStatus {
	switch n := node.(type) {
	case *ast.Heading:
		te.buf.WriteString("\n")

	case *ast.Paragraph, *ast.List:
		if !entering {
			te.buf.WriteString("\n")
		}

	case *ast.Text:
		if entering {
			te.buf.Write(n.Literal)
		}

	case *ast.Softbreak, *ast.Hardbreak:
		te.buf.WriteString(" ")

	case *ast.Link:
		// Keep link text, drop the destination
		if !entering {
			te.buf.WriteString(" ")
		}

	case *ast.ListItem:
		if entering {
			te.buf.WriteString("\n• ")
		}

	case *ast.CodeBlock, *ast.Code, *ast.Image, *ast.HTMLBlock, *ast.HTMLSpan:
		return ast.SkipChildren
	}

	return ast.GoToNext
}

// markdownPage holds what the extractor pulls out of a markdown body
type markdownPage struct {
	Title string
	Text  string
	Links []Link
}

// parseMarkdown extracts plain text, the first heading and all link destinations
func parseMarkdown(md string) markdownPage {
	doc := markdown.Parse([]byte(md), nil)

	var buf bytes.Buffer
	ast.Walk(doc, &textExtractor{buf: &buf})

	page := markdownPage{Text: squeezeBlankLines(buf.String())}

	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch n := node.(type) {
		case *ast.Heading:
			if page.Title == "" {
				page.Title = strings.TrimSpace(nodeText(n))
			}
		case *ast.Link:
			dest := strings.TrimSpace(string(n.Destination))
			if dest != "" {
				page.Links = append(page.Links, Link{URL: dest, Text: strings.TrimSpace(nodeText(n))})
			}
			return ast.SkipChildren
		}
		return ast.GoToNext
	})

	return page
}

// nodeText concatenates the literal text below node
func nodeText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		switch t := n.(type) {
		case *ast.Text:
			sb.Write(t.Literal)
		case *ast.Code:
			sb.Write(t.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			sb.WriteString(" ")
		}
		return ast.GoToNext
	})
	return sb.String()
}
