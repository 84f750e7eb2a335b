// Package config loads the agent roster and pipeline settings.
//
// Configuration comes from a single YAML file named by the --config flag or
// the CHAUKIDAR_CONFIG environment variable. When neither is set the
// embedded default is used. There is no further discovery. A file is decoded
// over the defaults, so it only needs to state what it changes.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gobwas/glob"
	"github.com/sonnes/chaukidar/core"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "CHAUKIDAR_CONFIG"

//go:embed default.yaml
var defaultYAML []byte

// ErrNoAgents is returned when the roster is empty.
var ErrNoAgents = errors.New("roster has no agents")

// Config is the full configuration of the pipeline and its surfaces.
type Config struct {
	// AgentsDir is the root holding <folder>/sessions/*.jsonl per agent.
	AgentsDir string `yaml:"agents_dir"`

	// Output is where the status snapshot is written.
	Output string `yaml:"output"`

	// MetricsOutput is where the aggregate session metrics are written.
	MetricsOutput string `yaml:"metrics_output"`

	// Timezone is the IANA location that defines "today" and the time of
	// day shown next to log lines.
	Timezone string `yaml:"timezone"`

	// Agents is the ordered roster.
	Agents []core.Agent `yaml:"agents"`

	// DetectMentions enables the keyword mention detector alongside the
	// structured spawn correlator.
	DetectMentions bool `yaml:"detect_mentions"`

	// Mentions is the ordered keyword table of the mention detector.
	// Entries for folders outside the roster are ignored.
	Mentions []Mention `yaml:"mentions"`

	// DelegationTools names the tool calls that start another agent's
	// session.
	DelegationTools []string `yaml:"delegation_tools"`

	Sessions SessionsConfig `yaml:"sessions"`
	Limits   Limits         `yaml:"limits"`
	Server   ServerConfig   `yaml:"server"`
}

// Mention maps keywords to the agent folder they refer to.
type Mention struct {
	Folder   string   `yaml:"folder"`
	Keywords []string `yaml:"keywords"`
}

// SessionsConfig holds the file name globs of session directories.
type SessionsConfig struct {
	// Include matches live session files.
	Include string `yaml:"include"`
	// Deleted matches files the runtime has marked deleted.
	Deleted string `yaml:"deleted"`
	// History matches any file that proves the agent ever had a session,
	// deleted ones included.
	History string `yaml:"history"`
}

// Limits bounds output sizes and runtime.
type Limits struct {
	TextChars      int           `yaml:"text_chars"`
	MentionChars   int           `yaml:"mention_chars"`
	TaskChars      int           `yaml:"task_chars"`
	LogLines       int           `yaml:"log_lines"`
	Communications int           `yaml:"communications"`
	Feed           int           `yaml:"feed"`
	SpawnSessions  int           `yaml:"spawn_sessions"`
	RecentWindow   time.Duration `yaml:"recent_window"`
	MaxFileBytes   int64         `yaml:"max_file_bytes"`
	FileTimeout    time.Duration `yaml:"file_timeout"`
	RunTimeout     time.Duration `yaml:"run_timeout"`
	Workers        int           `yaml:"workers"`
}

// ServerConfig configures the read-only metrics API.
type ServerConfig struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default: %v", err))
	}
	return &cfg
}

// Load reads the config file at path over the defaults and validates the
// result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the roster and settings, and drops mention entries that
// refer to folders outside the roster.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return ErrNoAgents
	}
	ids := make(map[string]bool, len(c.Agents))
	folders := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent %d: id is required", i)
		}
		if a.Folder == "" {
			return fmt.Errorf("agent %s: folder is required", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("agent %s: duplicate id", a.ID)
		}
		if folders[a.Folder] {
			return fmt.Errorf("agent %s: folder %s already used", a.ID, a.Folder)
		}
		ids[a.ID] = true
		folders[a.Folder] = true
	}

	mentions := c.Mentions[:0]
	for _, m := range c.Mentions {
		if folders[m.Folder] {
			mentions = append(mentions, m)
		}
	}
	c.Mentions = mentions

	if _, err := c.Location(); err != nil {
		return err
	}
	for name, pattern := range map[string]string{
		"include": c.Sessions.Include,
		"deleted": c.Sessions.Deleted,
		"history": c.Sessions.History,
	} {
		if pattern == "" {
			return fmt.Errorf("sessions.%s: pattern is required", name)
		}
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("sessions.%s: %w", name, err)
		}
	}
	if c.Limits.Workers < 1 {
		c.Limits.Workers = 1
	}
	return nil
}

// Location loads the configured timezone. An empty name means the local
// zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Roster returns the configured agents as a Roster.
func (c *Config) Roster() *core.Roster {
	return core.NewRoster(c.Agents)
}
