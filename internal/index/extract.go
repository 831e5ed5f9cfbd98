package index

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/igusev/siterank/internal/model"
)

// Link is an outbound link found while extracting a page
type Link struct {
	URL  string // Absolute http(s) URL
	Text string // Anchor text, may be empty
}

// Extract prepares a crawled page for indexing based on its content type
// doc.Content holds the raw body on input and plain text on output.
// Title and Meta found in the body only fill empty fields; Meta is never synthesized from the text.
// Returned links are absolute and deduplicated by URL; doc.Links lists the same URLs.
func Extract(doc model.Document) (model.Document, []Link) {
	if doc.Domain == "" {
		doc.Domain = model.DomainOf(doc.URL)
	}

	var links []Link
	switch doc.ContentType {
	case model.ContentTypeHTML:
		page := parseHTML(doc.Content)
		if doc.Title == "" {
			doc.Title = page.Title
		}
		if doc.Meta == "" {
			doc.Meta = page.Meta
		}
		doc.Content = page.Text
		links = page.Links

	case model.ContentTypeMarkdown:
		page := parseMarkdown(doc.Content)
		if doc.Title == "" {
			doc.Title = page.Title
		}
		doc.Content = page.Text
		links = page.Links

	default:
		doc.ContentType = model.ContentTypeText
		doc.Content = strings.TrimSpace(doc.Content)
	}

	links = resolveLinks(doc.URL, links)
	if len(links) > 0 {
		doc.Links = make([]string, 0, len(links))
		for _, l := range links {
			doc.Links = append(doc.Links, l.URL)
		}
	}

	return doc, links
}

// snippetLength is the size of the display snippet kept for pages without a meta description
const snippetLength = 150

// snippet truncates text on a rune boundary
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// htmlPage holds what the extractor pulls out of an html body
type htmlPage struct {
	Title string
	Meta  string
	Text  string
	Links []Link
}

// parseHTML extracts title, meta description, visible text and anchors
// Unparseable input is treated as plain text.
func parseHTML(body string) htmlPage {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return htmlPage{Text: strings.TrimSpace(body)}
	}

	page := htmlPage{
		Title: collapseSpace(doc.Find("title").First().Text()),
		Meta:  collapseSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")),
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		page.Links = append(page.Links, Link{URL: strings.TrimSpace(href), Text: collapseSpace(s.Text())})
	})

	doc.Find("script, style, noscript, head").Remove()
	page.Text = collapseSpace(doc.Text())

	return page
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveLinks makes links absolute against base and drops non-http(s) and duplicate targets
// The first non-empty anchor text wins for duplicates.
func resolveLinks(base string, links []Link) []Link {
	if len(links) == 0 {
		return nil
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		baseURL = nil
	}

	resolved := make([]Link, 0, len(links))
	seen := make(map[string]int, len(links))
	for _, l := range links {
		u, err := url.Parse(l.URL)
		if err != nil {
			continue
		}
		if baseURL != nil {
			u = baseURL.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		u.Fragment = ""
		u.RawFragment = ""
		abs := u.String()

		if i, ok := seen[abs]; ok {
			if resolved[i].Text == "" {
				resolved[i].Text = l.Text
			}
			continue
		}
		seen[abs] = len(resolved)
		resolved = append(resolved, Link{URL: abs, Text: l.Text})
	}
	return resolved
}
