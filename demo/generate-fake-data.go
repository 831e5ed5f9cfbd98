package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/igusev/siterank/internal/stats"
	"github.com/igusev/siterank/internal/sync"
)

type fakeSite struct {
	domain    string
	title     string
	meta      string
	topics    []string
	links     []string // Domains this site links to
	authority float64
	ageDays   int
}

func main() {
	// Create demo data directory in demo/data
	demoDir := "demo/data"
	if err := os.MkdirAll(demoDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create demo dir: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating fake data in: %s\n", demoDir)

	sites := []fakeSite{
		{"libraryqx7vz2a.onion", "Hidden Library", "Mirror of public domain books and papers",
			[]string{"library", "books", "papers", "archive"}, []string{"wikiab3kd9s2.onion", "forumzz81kqa.onion"}, 0.9, 1},
		{"wikiab3kd9s2.onion", "Hidden Wiki", "Curated link directory",
			[]string{"wiki", "directory", "links", "library"}, []string{"libraryqx7vz2a.onion", "mailbox4u7pq.onion", "forumzz81kqa.onion"}, 0.8, 3},
		{"forumzz81kqa.onion", "Open Forum", "Discussion board about privacy tools",
			[]string{"forum", "privacy", "tor", "discussion"}, []string{"wikiab3kd9s2.onion"}, 0.6, 0},
		{"mailbox4u7pq.onion", "Mailbox", "Anonymous mail service",
			[]string{"mail", "privacy", "encryption"}, []string{"wikiab3kd9s2.onion"}, 0.7, 12},
		{"newsdesk9rt2.onion", "Newsdesk", "Independent news and leaks",
			[]string{"news", "journalism", "leaks", "papers"}, []string{"libraryqx7vz2a.onion"}, 0.5, 40},
		{"pastebinq0x1.onion", "Paste", "Anonymous text paste service",
			[]string{"paste", "text", "share"}, nil, 0.3, 200},
		{"searchlab77z.onion", "Search Lab", "Experiments in onion search ranking",
			[]string{"search", "ranking", "pagerank", "tor"}, []string{"wikiab3kd9s2.onion", "forumzz81kqa.onion", "libraryqx7vz2a.onion"}, 0.4, 5},
	}

	now := time.Now().UTC()
	manifest := sync.Manifest{Network: "tor"}
	for _, s := range sites {
		manifest.Pages = append(manifest.Pages, homePage(s, now), aboutPage(s, now))
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal manifest: %v\n", err)
		os.Exit(1)
	}
	manifestPath := filepath.Join(demoDir, "tor-manifest.yaml")
	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write manifest: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Created crawl manifest (%d pages from %d sites)\n", len(manifest.Pages), len(sites))

	// Simulate usage statistics
	store, err := stats.Open(filepath.Join(demoDir, "stats.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open stats store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	queries := []struct {
		term    string
		network string
		count   int
	}{
		{"library", "T", 25},
		{"hidden wiki", "T", 18},
		{"privacy forum", "T", 12},
		{"anonymous mail", "T", 8},
		{"news leaks", "T", 5},
		{"eepsite directory", "I", 4},
	}
	for _, q := range queries {
		for i := 0; i < q.count; i++ {
			if err := store.AddOrIncrementQuery(ctx, q.term, q.network); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to record query: %v\n", err)
				os.Exit(1)
			}
		}
	}

	clicks := []struct {
		domain string
		term   string
		count  int
	}{
		{"libraryqx7vz2a.onion", "library", 14},
		{"wikiab3kd9s2.onion", "hidden wiki", 11},
		{"forumzz81kqa.onion", "privacy forum", 6},
	}
	for _, c := range clicks {
		for i := 0; i < c.count; i++ {
			if err := store.AddOrIncrementClick(ctx, c.domain, "http://"+c.domain+"/", c.term); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to record click: %v\n", err)
				os.Exit(1)
			}
		}
	}
	fmt.Printf("✓ Created search statistics\n")

	fmt.Printf("\n✅ Demo data generated successfully!\n\n")
	fmt.Printf("To try it out:\n")
	fmt.Printf("  export SITERANK_INDEX_DIR=$(pwd)/%s SITERANK_STATS_PATH=$(pwd)/%s/stats.db\n", demoDir, demoDir)
	fmt.Printf("  siterank sync %s\n", manifestPath)
	fmt.Printf("  siterank pagepop\n")
	fmt.Printf("  siterank --gp 0.3 library\n\n")
	fmt.Printf("Demo directory: %s\n", demoDir)
}

func homePage(s fakeSite, now time.Time) sync.ManifestPage {
	var body strings.Builder
	fmt.Fprintf(&body, "<html><head><title>%s</title><meta name=\"description\" content=\"%s\"></head><body>\n", s.title, s.meta)
	fmt.Fprintf(&body, "<h1>%s</h1><p>%s. Topics: %s.</p>\n", s.title, s.meta, strings.Join(s.topics, ", "))
	fmt.Fprintf(&body, "<a href=\"/about\">About %s</a>\n", s.title)
	for _, l := range s.links {
		fmt.Fprintf(&body, "<a href=\"http://%s/\">%s</a>\n", l, strings.TrimSuffix(l, ".onion"))
	}
	body.WriteString("</body></html>\n")

	authority := s.authority
	return sync.ManifestPage{
		URL:         "http://" + s.domain + "/",
		ContentType: "html",
		Body:        body.String(),
		UpdatedOn:   now.AddDate(0, 0, -s.ageDays).Format("2006-01-02T15:04:05"),
		Authority:   &authority,
	}
}

func aboutPage(s fakeSite, now time.Time) sync.ManifestPage {
	return sync.ManifestPage{
		URL:         "http://" + s.domain + "/about",
		Title:       "About " + s.title,
		ContentType: "markdown",
		Body:        fmt.Sprintf("# About %s\n\n%s.\n\nBack to the [front page](http://%s/).\n", s.title, s.meta, s.domain),
		UpdatedOn:   now.AddDate(0, 0, -s.ageDays-30).Format("2006-01-02T15:04:05"),
	}
}
