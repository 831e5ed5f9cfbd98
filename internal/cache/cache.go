package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const sitesFileName = "sites.txt"

// SiteSummary is one known site of a network as recorded by the last sync
type SiteSummary struct {
	Domain string
	Pages  int
	Title  string // Title of the site's first page
}

// Cache manages the local per-network sync state
type Cache struct {
	dir string
}

// New creates a new Cache instance
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root directory
func (c *Cache) Dir() string {
	return c.dir
}

// EnsureDir ensures the cache directory of a network exists
func (c *Cache) EnsureDir(network string) error {
	return os.MkdirAll(c.networkDir(network), 0755)
}

func (c *Cache) networkDir(network string) string {
	return filepath.Join(c.dir, network)
}

// SitesPath returns the full path to the site list of a network
func (c *Cache) SitesPath(network string) string {
	return filepath.Join(c.networkDir(network), sitesFileName)
}

// WriteSites writes the site list of a network, sorted by domain
// Format: domain|pages|title (one per line, title may be empty)
func (c *Cache) WriteSites(network string, sites []SiteSummary) error {
	if err := c.EnsureDir(network); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	sorted := make([]SiteSummary, len(sites))
	copy(sorted, sites)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Domain < sorted[j].Domain })

	f, err := os.Create(c.SitesPath(network))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for _, site := range sorted {
		title := strings.ReplaceAll(site.Title, "\n", " ")
		title = strings.ReplaceAll(title, "|", "\\|")
		line := fmt.Sprintf("%s|%d|%s\n", site.Domain, site.Pages, title)
		if _, err := writer.WriteString(line); err != nil {
			return fmt.Errorf("failed to write site: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush cache file: %w", err)
	}

	return nil
}

// ReadSites reads the site list of a network
func (c *Cache) ReadSites(network string) ([]SiteSummary, error) {
	f, err := os.Open(c.SitesPath(network))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no sites cached for %s, run 'siterank sync' first", network)
		}
		return nil, fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()

	var sites []SiteSummary
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 2 {
			// Skip malformed lines
			continue
		}
		pages, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		site := SiteSummary{Domain: parts[0], Pages: pages}
		if len(parts) == 3 {
			site.Title = strings.ReplaceAll(parts[2], "\\|", "|")
		}
		sites = append(sites, site)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	return sites, nil
}

// Exists checks if a site list was written for the network
func (c *Cache) Exists(network string) bool {
	_, err := os.Stat(c.SitesPath(network))
	return err == nil
}

// SaveLastSyncTime saves the last successful sync timestamp of a network
func (c *Cache) SaveLastSyncTime(network string, t time.Time) error {
	return c.saveTime(network, ".last_sync_time", t)
}

// LoadLastSyncTime loads the last successful sync timestamp
// Returns zero time if file doesn't exist (first sync)
func (c *Cache) LoadLastSyncTime(network string) (time.Time, error) {
	return c.loadTime(network, ".last_sync_time")
}

// SaveLastFullSyncTime saves the last successful full sync timestamp of a network
func (c *Cache) SaveLastFullSyncTime(network string, t time.Time) error {
	return c.saveTime(network, ".last_full_sync_time", t)
}

// LoadLastFullSyncTime loads the last successful full sync timestamp
// Returns zero time if file doesn't exist (never had full sync)
func (c *Cache) LoadLastFullSyncTime(network string) (time.Time, error) {
	return c.loadTime(network, ".last_full_sync_time")
}

// SaveLastPagePopTime saves when global popularity was last recomputed
func (c *Cache) SaveLastPagePopTime(network string, t time.Time) error {
	return c.saveTime(network, ".last_pagepop_time", t)
}

// LoadLastPagePopTime loads when global popularity was last recomputed
func (c *Cache) LoadLastPagePopTime(network string) (time.Time, error) {
	return c.loadTime(network, ".last_pagepop_time")
}

func (c *Cache) saveTime(network, name string, t time.Time) error {
	if err := c.EnsureDir(network); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data := []byte(t.Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(c.networkDir(network), name), data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", strings.TrimPrefix(name, "."), err)
	}

	return nil
}

func (c *Cache) loadTime(network, name string) (time.Time, error) {
	data, err := os.ReadFile(filepath.Join(c.networkDir(network), name))
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read %s: %w", strings.TrimPrefix(name, "."), err)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", strings.TrimPrefix(name, "."), err)
	}

	return t, nil
}
