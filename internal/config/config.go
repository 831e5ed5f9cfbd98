package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfigNotFound is returned when an explicitly requested config file does not exist
var ErrConfigNotFound = errors.New("configuration not found")

// ErrInvalidConfig is returned when the configuration cannot describe a working setup
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	Index       IndexConfig     `mapstructure:"index" yaml:"index"`
	Search      SearchConfig    `mapstructure:"search" yaml:"search"`
	Networks    []NetworkConfig `mapstructure:"networks" yaml:"networks"`
	PagePop     PagePopConfig   `mapstructure:"pagepop" yaml:"pagepop"`
	Stats       StatsConfig     `mapstructure:"stats" yaml:"stats"`
	Server      ServerConfig    `mapstructure:"server" yaml:"server"`
	Log         LogConfig       `mapstructure:"log" yaml:"log"`
	BannedSites []string        `mapstructure:"banned_sites" yaml:"banned_sites"`
}

// IndexConfig holds index storage settings
type IndexConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"` // Root of all network indexes and sync state
}

// SearchConfig holds per-query limits
type SearchConfig struct {
	PageSize           int `mapstructure:"page_size" yaml:"page_size"`
	MaxGroups          int `mapstructure:"max_groups" yaml:"max_groups"`
	CandidatesPerGroup int `mapstructure:"candidates_per_group" yaml:"candidates_per_group"`
	MaxDocs            int `mapstructure:"max_docs" yaml:"max_docs"`
	PopularityTimeout  int `mapstructure:"popularity_timeout" yaml:"popularity_timeout"` // seconds
}

// NetworkConfig describes one searchable network
type NetworkConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Tag   string `mapstructure:"tag" yaml:"tag"`
	Index string `mapstructure:"index" yaml:"index"` // Relative paths are resolved against index.dir
}

// PagePopConfig holds popularity settings
type PagePopConfig struct {
	Damping    float64 `mapstructure:"damping" yaml:"damping"`
	Iterations int     `mapstructure:"iterations" yaml:"iterations"`
	Tolerance  float64 `mapstructure:"tolerance" yaml:"tolerance"`
	CacheTTL   int     `mapstructure:"cache_ttl" yaml:"cache_ttl"` // seconds
}

// StatsConfig holds statistics storage settings
type StatsConfig struct {
	Path   string `mapstructure:"path" yaml:"path"`
	Buffer int    `mapstructure:"buffer" yaml:"buffer"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	Mode string `mapstructure:"mode" yaml:"mode"` // gin mode: debug, release or test
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

const (
	defaultPageSize          = 100
	defaultMaxGroups         = 1000
	defaultCandidates        = 10
	defaultMaxDocs           = 5000
	defaultPopularityTimeout = 5
	defaultCacheTTL          = 600
	defaultStatsBuffer       = 256
)

func configDir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "siterank")
}

func defaultIndexDir() string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "siterank")
}

func setDefaults() {
	viper.SetDefault("index.dir", defaultIndexDir())

	viper.SetDefault("search.page_size", defaultPageSize)
	viper.SetDefault("search.max_groups", defaultMaxGroups)
	viper.SetDefault("search.candidates_per_group", defaultCandidates)
	viper.SetDefault("search.max_docs", defaultMaxDocs)
	viper.SetDefault("search.popularity_timeout", defaultPopularityTimeout)

	viper.SetDefault("networks", []map[string]interface{}{
		{"name": "tor", "tag": "T", "index": "tor.bleve"},
		{"name": "i2p", "tag": "I", "index": "i2p.bleve"},
	})

	viper.SetDefault("pagepop.damping", 0.85)
	viper.SetDefault("pagepop.iterations", 50)
	viper.SetDefault("pagepop.tolerance", 1e-6)
	viper.SetDefault("pagepop.cache_ttl", defaultCacheTTL)

	viper.SetDefault("stats.path", filepath.Join(defaultIndexDir(), "stats.db"))
	viper.SetDefault("stats.buffer", defaultStatsBuffer)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("log.level", "info")
}

// Load loads configuration from the default locations and environment variables
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration from path, or from the default locations when path is empty
// A missing file at a default location is fine; a missing explicit file is ErrConfigNotFound.
func LoadFrom(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		viper.SetConfigFile(path)
		if !supportedExt(filepath.Ext(path)) {
			viper.SetConfigType("yaml")
		}
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".") // Also check current directory
	}

	// SITERANK_SERVER_ADDR overrides server.addr
	viper.SetEnvPrefix("SITERANK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Index.Dir = expandPath(cfg.Index.Dir)
	cfg.Stats.Path = expandPath(cfg.Stats.Path)
	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func supportedExt(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	for _, e := range viper.SupportedExts {
		if e == ext {
			return true
		}
	}
	return false
}

// applyFallbacks replaces non-positive limits with their defaults
func (c *Config) applyFallbacks() {
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = defaultPageSize
	}
	if c.Search.MaxGroups <= 0 {
		c.Search.MaxGroups = defaultMaxGroups
	}
	if c.Search.CandidatesPerGroup <= 0 {
		c.Search.CandidatesPerGroup = defaultCandidates
	}
	if c.Search.MaxDocs <= 0 {
		c.Search.MaxDocs = defaultMaxDocs
	}
	if c.Search.PopularityTimeout <= 0 {
		c.Search.PopularityTimeout = defaultPopularityTimeout
	}
	if c.Stats.Buffer <= 0 {
		c.Stats.Buffer = defaultStatsBuffer
	}
}

// Validate checks that every network is usable
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("%w: no networks configured", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Name == "" {
			return fmt.Errorf("%w: network %d has no name", ErrInvalidConfig, i)
		}
		if n.Tag == "" {
			return fmt.Errorf("%w: network %s has no tag", ErrInvalidConfig, n.Name)
		}
		if seen[n.Name] {
			return fmt.Errorf("%w: network %s defined twice", ErrInvalidConfig, n.Name)
		}
		seen[n.Name] = true
	}
	return nil
}

// Network returns the configured network with the given name
func (c *Config) Network(name string) (NetworkConfig, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// NetworkNames lists configured networks in config order
func (c *Config) NetworkNames() []string {
	names := make([]string, len(c.Networks))
	for i, n := range c.Networks {
		names[i] = n.Name
	}
	return names
}

// IndexPath returns the absolute index location of a network
func (c *Config) IndexPath(n NetworkConfig) string {
	p := n.Index
	if p == "" {
		p = n.Name + ".bleve"
	}
	p = expandPath(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Index.Dir, p)
}

// GetPopularityTimeout returns the popularity gateway timeout as time.Duration
func (c *SearchConfig) GetPopularityTimeout() time.Duration {
	return time.Duration(c.PopularityTimeout) * time.Second
}

// GetCacheTTL returns the global popularity memo lifetime as time.Duration
func (c *PagePopConfig) GetCacheTTL() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// expandPath expands ~ to home directory in paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home := os.Getenv("HOME")
		if len(path) == 1 {
			return home
		}
		return filepath.Join(home, path[1:])
	}
	return path
}

// EnsureConfigDir ensures the config directory exists
func EnsureConfigDir() error {
	return os.MkdirAll(configDir(), 0755)
}

// ConfigPath returns the path of the user config file
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ExampleConfigPath returns the path where the example config should be created
func ExampleConfigPath() string {
	return filepath.Join(configDir(), "config.yaml.example")
}

// IsBanned checks if a site domain matches any banned pattern
// Patterns are exact domains or shell globs such as "*.evil.i2p".
func (c *Config) IsBanned(domain string) bool {
	domain = strings.ToLower(domain)
	for _, pattern := range c.BannedSites {
		pattern = strings.ToLower(pattern)
		if pattern == domain {
			return true
		}
		if matched, err := filepath.Match(pattern, domain); err == nil && matched {
			return true
		}
	}
	return false
}

// AddBan adds a banned pattern if it doesn't already exist
func (c *Config) AddBan(pattern string) error {
	for _, existing := range c.BannedSites {
		if existing == pattern {
			return nil // Already exists
		}
	}

	c.BannedSites = append(c.BannedSites, pattern)
	return c.Save()
}

// RemoveBan removes a banned pattern
func (c *Config) RemoveBan(pattern string) error {
	kept := make([]string, 0, len(c.BannedSites))
	for _, p := range c.BannedSites {
		if p != pattern {
			kept = append(kept, p)
		}
	}
	c.BannedSites = kept
	return c.Save()
}

// Save saves the current configuration to the user config file
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	networks := make([]map[string]interface{}, len(c.Networks))
	for i, n := range c.Networks {
		networks[i] = map[string]interface{}{"name": n.Name, "tag": n.Tag, "index": n.Index}
	}

	viper.Set("index.dir", c.Index.Dir)
	viper.Set("search.page_size", c.Search.PageSize)
	viper.Set("search.max_groups", c.Search.MaxGroups)
	viper.Set("search.candidates_per_group", c.Search.CandidatesPerGroup)
	viper.Set("search.max_docs", c.Search.MaxDocs)
	viper.Set("search.popularity_timeout", c.Search.PopularityTimeout)
	viper.Set("networks", networks)
	viper.Set("pagepop.damping", c.PagePop.Damping)
	viper.Set("pagepop.iterations", c.PagePop.Iterations)
	viper.Set("pagepop.tolerance", c.PagePop.Tolerance)
	viper.Set("pagepop.cache_ttl", c.PagePop.CacheTTL)
	viper.Set("stats.path", c.Stats.Path)
	viper.Set("stats.buffer", c.Stats.Buffer)
	viper.Set("server.addr", c.Server.Addr)
	viper.Set("server.mode", c.Server.Mode)
	viper.Set("log.level", c.Log.Level)
	viper.Set("banned_sites", c.BannedSites)

	if err := viper.WriteConfigAs(ConfigPath()); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateExampleConfig creates an example configuration file
func CreateExampleConfig() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	exampleConfig := `# siterank configuration file
# Place this file at ~/.config/siterank/config.yaml

index:
  # Directory holding network indexes and sync state (defaults to ~/.cache/siterank)
  dir: "~/.cache/siterank"

search:
  page_size: 100
  # Per-query caps on the grouped index response
  max_groups: 1000
  candidates_per_group: 10
  max_docs: 5000
  # Seconds allowed for each popularity lookup
  popularity_timeout: 5

networks:
  - name: tor
    tag: T
    index: tor.bleve
  - name: i2p
    tag: I
    index: i2p.bleve

pagepop:
  damping: 0.85
  iterations: 50
  tolerance: 0.000001
  # Seconds global scores stay memoized
  cache_ttl: 600

stats:
  path: "~/.cache/siterank/stats.db"
  buffer: 256

server:
  addr: ":8080"
  mode: release

log:
  level: info

# Sites indexed but never returned (exact domains or globs)
banned_sites:
  # - "scam.onion"
  # - "*.spam.i2p"

# Environment variables can also be used:
# SITERANK_SERVER_ADDR=:9090
# SITERANK_LOG_LEVEL=debug
`

	return os.WriteFile(ExampleConfigPath(), []byte(exampleConfig), 0644)
}
