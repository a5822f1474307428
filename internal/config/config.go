package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Queries []string          `yaml:"queries"`
	Sources map[string]string `yaml:"sources"`
	Limits  Limits            `yaml:"limits"`
	Fetch   Fetch             `yaml:"fetch"`
	Feed    Feed              `yaml:"feed"`
	Output  Output            `yaml:"output"`
	Logging Logging           `yaml:"logging"`
}

type Limits struct {
	MinCasesPerRun   int `yaml:"min_cases_per_run"`
	MaxLinksPerQuery int `yaml:"max_links_per_query"`
	MaxTotalLinks    int `yaml:"max_total_links"`
}

type Fetch struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	DelayMs        int    `yaml:"delay_ms"`
	UserAgent      string `yaml:"user_agent"`
	RespectRobots  *bool  `yaml:"respect_robots"`
}

type Feed struct {
	Language string `yaml:"language"`
	Country  string `yaml:"country"`
	Edition  string `yaml:"edition"`
	Recency  string `yaml:"recency"`
}

type Output struct {
	DataDir  string `yaml:"data_dir"`
	DataFile string `yaml:"data_file"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for deathwatch.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "deathwatch")
}

// DataDir returns the XDG data directory for deathwatch.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "deathwatch")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/deathwatch/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'deathwatch init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg, _ := parse(nil)
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Queries: []string{
			`("death" OR "dead" OR "dies" OR "body found" OR "victim") site:in`,
			`("accident" OR "road accident" OR "road crash") site:in`,
			`("murder" OR "killed") site:in`,
			`("suicide") site:in`,
			`("drowned" OR "drowning") site:in`,
		},
		Sources: map[string]string{
			"timesofindia.indiatimes.com": "TOI",
			"indianexpress.com":           "IE",
			"ndtv.com":                    "NDTV",
			"thehindu.com":                "THEHINDU",
			"hindustantimes.com":          "HT",
			"telegraphindia.com":          "TELEGRAPH",
			"news18.com":                  "NEWS18",
		},
		Limits: Limits{
			MinCasesPerRun:   15,
			MaxLinksPerQuery: 200,
			MaxTotalLinks:    1000,
		},
		Fetch: Fetch{
			TimeoutSeconds: 10,
			DelayMs:        200,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120 Safari/537.36",
		},
		Feed: Feed{
			Language: "en-IN",
			Country:  "IN",
			Edition:  "IN:en",
			Recency:  "when:1d",
		},
		Logging: Logging{Level: "INFO"},
	}

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetDataFile returns the record store path from config or the default
// records.json inside the data directory.
func (c *Config) GetDataFile() string {
	if c.Output.DataFile != "" {
		return c.Output.DataFile
	}
	return filepath.Join(c.GetDataDir(), "records.json")
}

// Timeout returns the per-request fetch timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// Delay returns the politeness delay between fetch attempts.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Fetch.DelayMs) * time.Millisecond
}

// RespectRobots reports whether robots.txt should be honored. Defaults to true.
func (c *Config) RespectRobots() bool {
	if c.Fetch.RespectRobots == nil {
		return true
	}
	return *c.Fetch.RespectRobots
}

// SourceCode maps a bare host to its short source code, falling back to
// OTHER for hosts outside the configured map. A www. prefix is ignored.
func (c *Config) SourceCode(host string) string {
	host = strings.ToLower(strings.TrimPrefix(host, "www."))
	if code, ok := c.Sources[host]; ok {
		return code
	}
	return "OTHER"
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
