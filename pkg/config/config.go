package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// FeedMarker is the substring a section name must carry to be treated as a feed definition.
// Sections without it are ignored, which allows unrelated sections to share the same file.
const FeedMarker = "inrcot_feed_"

// Defaults applied when a feed section leaves a field empty.
const (
	DefaultPollInterval = 120           // seconds between poll cycles
	DefaultCotStale     = 600           // seconds until a report goes stale
	DefaultCotType      = "a-f-g-e-s"   // renders in iTAK, WinTAK and ATAK
	DefaultFeedUsername = "InReach2TAK" // MapShare ignores it, basic auth still needs one
	DefaultQueueSize    = 1024
)

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP status server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP status server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Status server configuration"`

	CotURL       string `yaml:"cot_url" json:"cot_url" jsonschema:"description=Destination for serialized events, udp:// tcp:// or tls://"`
	PollInterval int    `yaml:"poll_interval" json:"poll_interval" jsonschema:"default=120,description=Seconds between poll cycles"`
	QueueSize    int    `yaml:"queue_size" json:"queue_size" jsonschema:"default=1024,description=Outbound queue capacity"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout" jsonschema:"default=30s,description=HTTP timeout for a single feed fetch"`

	Sections map[string]Section `yaml:"sections" json:"sections" jsonschema:"description=Named configuration sections, feed sections carry inrcot_feed_ in the name"`
}

// Section is one named configuration section. Only sections whose name contains
// FeedMarker become feeds; the rest are kept but unused.
type Section struct {
	FeedURL      string `yaml:"feed_url" json:"feed_url" jsonschema:"description=MapShare KML feed URL"`
	CotStale     int    `yaml:"cot_stale" json:"cot_stale" jsonschema:"default=600,description=Seconds until an emitted event goes stale"`
	CotType      string `yaml:"cot_type" json:"cot_type" jsonschema:"default=a-f-g-e-s,description=CoT event type"`
	CotIcon      string `yaml:"cot_icon" json:"cot_icon" jsonschema:"description=Optional iconset path attached to events"`
	CotName      string `yaml:"cot_name" json:"cot_name" jsonschema:"description=Optional display name override"`
	FeedUsername string `yaml:"feed_username" json:"feed_username" jsonschema:"default=InReach2TAK,description=Basic auth username for private feeds"`
	FeedPassword string `yaml:"feed_password" json:"feed_password" jsonschema:"description=Basic auth password, enables auth together with the username"`
}

// BasicAuth is an HTTP basic auth credential pair for a private MapShare feed.
type BasicAuth struct {
	Username string
	Password string
}

// FeedConfig is the immutable per-feed settings, built once at startup.
type FeedConfig struct {
	Name    string // section name, unique key
	URL     string
	Stale   int // seconds
	Type    string
	Icon    string
	CotName string
	Auth    *BasicAuth
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for polling and queue
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be non-negative")
	}
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	for name, section := range cfg.Sections {
		if section.CotStale < 0 {
			return fmt.Errorf("section %s: cot_stale must be non-negative", name)
		}
	}
	return nil
}

// BuildFeeds extracts feed configurations from the config sections. Sections whose
// name lacks FeedMarker are skipped. A section without feed_url is still included,
// the missing URL surfaces as a fetch error on the first poll cycle.
func BuildFeeds(cfg *Config) []FeedConfig {
	names := make([]string, 0, len(cfg.Sections))
	for name := range cfg.Sections {
		if !strings.Contains(name, FeedMarker) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names) // map order is random, keep startup deterministic

	feeds := make([]FeedConfig, 0, len(names))
	for _, name := range names {
		feeds = append(feeds, makeFeedConf(name, cfg.Sections[name]))
	}
	return feeds
}

// makeFeedConf builds one FeedConfig from a section, applying defaults.
func makeFeedConf(name string, s Section) FeedConfig {
	fc := FeedConfig{
		Name:    name,
		URL:     s.FeedURL,
		Stale:   s.CotStale,
		Type:    s.CotType,
		Icon:    s.CotIcon,
		CotName: s.CotName,
	}
	if fc.Stale == 0 {
		fc.Stale = DefaultCotStale
	}
	if fc.Type == "" {
		fc.Type = DefaultCotType
	}

	// support "private" MapShare feeds: auth only when both parts resolve
	user := s.FeedUsername
	if user == "" {
		user = DefaultFeedUsername
	}
	if s.FeedPassword != "" && user != "" {
		fc.Auth = &BasicAuth{Username: user, Password: s.FeedPassword}
	}

	return fc
}

// GetServerConfig returns status server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// FeedPasswords returns all configured feed passwords, used to scrub them from logs.
func (c *Config) FeedPasswords() []string {
	var res []string
	for _, s := range c.Sections {
		if s.FeedPassword != "" {
			res = append(res, s.FeedPassword)
		}
	}
	return res
}
