package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// withHome points HOME at a fresh temp dir and resets viper
func withHome(t *testing.T) string {
	t.Helper()
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return tmpHome
}

func writeConfig(t *testing.T, home, content string) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "siterank")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestGetDurations(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int
		expected time.Duration
	}{
		{"5 seconds", 5, 5 * time.Second},
		{"10 minutes", 600, 10 * time.Minute},
		{"disabled", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := SearchConfig{PopularityTimeout: tt.seconds}
			if got := search.GetPopularityTimeout(); got != tt.expected {
				t.Errorf("GetPopularityTimeout() = %v, want %v", got, tt.expected)
			}
			pagepop := PagePopConfig{CacheTTL: tt.seconds}
			if got := pagepop.GetCacheTTL(); got != tt.expected {
				t.Errorf("GetCacheTTL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/test/home")

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"tilde alone", "~", "/test/home"},
		{"tilde with path", "~/.cache/siterank", "/test/home/.cache/siterank"},
		{"absolute path", "/absolute/path", "/absolute/path"},
		{"relative path", "relative/path", "relative/path"},
		{"empty path", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Skip "tilde with path" test on Windows due to path separator differences
			if runtime.GOOS == "windows" && tt.name == "tilde with path" {
				t.Skip("Skipping test on Windows: path separators differ")
			}
			result := expandPath(tt.path)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestIsBanned(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		domain   string
		expected bool
	}{
		{"exact match", []string{"scam.onion"}, "scam.onion", true},
		{"case insensitive", []string{"Scam.Onion"}, "scam.ONION", true},
		{"exact no match", []string{"scam.onion"}, "good.onion", false},
		{"glob subdomain", []string{"*.spam.i2p"}, "mail.spam.i2p", true},
		{"glob does not match apex", []string{"*.spam.i2p"}, "spam.i2p", false},
		{"multiple patterns second match", []string{"a.onion", "b.onion"}, "b.onion", true},
		{"no patterns", nil, "any.onion", false},
		{"malformed pattern", []string{"[bad"}, "bad.onion", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BannedSites: tt.patterns}
			if got := cfg.IsBanned(tt.domain); got != tt.expected {
				t.Errorf("IsBanned(%q) = %v, want %v", tt.domain, got, tt.expected)
			}
		})
	}
}

func TestAddRemoveBan(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.BannedSites = []string{"existing.onion"}

	if err := cfg.AddBan("*.spam.i2p"); err != nil {
		t.Fatalf("AddBan failed: %v", err)
	}
	if err := cfg.AddBan("existing.onion"); err != nil {
		t.Fatalf("AddBan duplicate failed: %v", err)
	}
	if len(cfg.BannedSites) != 2 {
		t.Errorf("Expected 2 patterns, got %v", cfg.BannedSites)
	}

	if err := cfg.RemoveBan("existing.onion"); err != nil {
		t.Fatalf("RemoveBan failed: %v", err)
	}
	if err := cfg.RemoveBan("nonexistent.onion"); err != nil {
		t.Fatalf("RemoveBan nonexistent failed: %v", err)
	}
	if len(cfg.BannedSites) != 1 || cfg.BannedSites[0] != "*.spam.i2p" {
		t.Errorf("Unexpected patterns after removal: %v", cfg.BannedSites)
	}

	if _, err := os.Stat(filepath.Join(home, ".config", "siterank", "config.yaml")); err != nil {
		t.Errorf("Ban changes should be saved: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	expectedDir := filepath.Join(home, ".cache", "siterank")
	if cfg.Index.Dir != expectedDir {
		t.Errorf("Default index dir = %q, want %q", cfg.Index.Dir, expectedDir)
	}
	if cfg.Search.PageSize != 100 || cfg.Search.MaxGroups != 1000 || cfg.Search.CandidatesPerGroup != 10 {
		t.Errorf("Unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Search.MaxDocs != 5000 || cfg.Search.PopularityTimeout != 5 {
		t.Errorf("Unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.PagePop.Damping != 0.85 || cfg.PagePop.Iterations != 50 || cfg.PagePop.CacheTTL != 600 {
		t.Errorf("Unexpected pagepop defaults: %+v", cfg.PagePop)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Default server addr = %q", cfg.Server.Addr)
	}
	if cfg.Stats.Path != filepath.Join(expectedDir, "stats.db") || cfg.Stats.Buffer != 256 {
		t.Errorf("Unexpected stats defaults: %+v", cfg.Stats)
	}

	tor, ok := cfg.Network("tor")
	if !ok || tor.Tag != "T" {
		t.Errorf("Default tor network = %+v, %v", tor, ok)
	}
	i2p, ok := cfg.Network("i2p")
	if !ok || i2p.Tag != "I" {
		t.Errorf("Default i2p network = %+v, %v", i2p, ok)
	}
	if _, ok := cfg.Network("clearnet"); ok {
		t.Error("Unknown network should not be found")
	}
	if got := cfg.IndexPath(tor); got != filepath.Join(expectedDir, "tor.bleve") {
		t.Errorf("IndexPath(tor) = %q", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	home := withHome(t)

	writeConfig(t, home, `index:
  dir: "~/data"
search:
  page_size: 20
  max_groups: -1
networks:
  - name: tor
    tag: T
    index: /srv/tor.bleve
  - name: lokinet
    tag: L
banned_sites:
  - "scam.onion"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Index.Dir != filepath.Join(home, "data") {
		t.Errorf("Index dir = %q", cfg.Index.Dir)
	}
	if cfg.Search.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", cfg.Search.PageSize)
	}
	if cfg.Search.MaxGroups != 1000 {
		t.Errorf("Non-positive max_groups should fall back to default, got %d", cfg.Search.MaxGroups)
	}
	if names := cfg.NetworkNames(); len(names) != 2 || names[1] != "lokinet" {
		t.Errorf("NetworkNames() = %v", names)
	}

	tor, _ := cfg.Network("tor")
	if got := cfg.IndexPath(tor); got != "/srv/tor.bleve" {
		t.Errorf("Absolute index path should be kept, got %q", got)
	}
	loki, _ := cfg.Network("lokinet")
	if got := cfg.IndexPath(loki); got != filepath.Join(home, "data", "lokinet.bleve") {
		t.Errorf("Missing index path should derive from the name, got %q", got)
	}
	if !cfg.IsBanned("scam.onion") {
		t.Error("Banned sites should be loaded")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	withHome(t)
	t.Setenv("SITERANK_SERVER_ADDR", ":9999")
	t.Setenv("SITERANK_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Server addr = %q, want :9999", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	home := withHome(t)

	_, err := LoadFrom(filepath.Join(home, "nope.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got: %v", err)
	}
}

func TestLoadInvalidNetworks(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"missing tag", "networks:\n  - name: tor\n"},
		{"missing name", "networks:\n  - tag: T\n"},
		{"duplicate", "networks:\n  - name: tor\n    tag: T\n  - name: tor\n    tag: X\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := withHome(t)
			writeConfig(t, home, tt.config)

			_, err := Load()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got: %v", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Search.PageSize = 25
	cfg.Server.Addr = ":7070"
	cfg.Networks = []NetworkConfig{{Name: "i2p", Tag: "I", Index: "i2p.bleve"}}

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	configPath := filepath.Join(home, ".config", "siterank", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	viper.Reset()
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Search.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", loaded.Search.PageSize)
	}
	if loaded.Server.Addr != ":7070" {
		t.Errorf("Addr = %q, want :7070", loaded.Server.Addr)
	}
	if len(loaded.Networks) != 1 || loaded.Networks[0].Name != "i2p" {
		t.Errorf("Networks = %+v", loaded.Networks)
	}
}

func TestCreateExampleConfig(t *testing.T) {
	withHome(t)

	if err := CreateExampleConfig(); err != nil {
		t.Fatalf("CreateExampleConfig failed: %v", err)
	}

	data, err := os.ReadFile(ExampleConfigPath())
	if err != nil {
		t.Fatalf("Example config not written: %v", err)
	}

	// The example must itself be a loadable config
	viper.Reset()
	if _, err := LoadFrom(ExampleConfigPath()); err != nil {
		t.Errorf("Example config does not load: %v\n%s", err, data)
	}
}
