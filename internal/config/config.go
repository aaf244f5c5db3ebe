package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/docket/internal/inference"
	"github.com/JaimeStill/docket/internal/legistar"
	"github.com/JaimeStill/docket/internal/lineage"
	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/search"
	"github.com/JaimeStill/docket/internal/segment"
	"github.com/JaimeStill/docket/internal/summaries"
	"github.com/JaimeStill/docket/internal/tasks"
	"github.com/JaimeStill/docket/internal/votes"
	"github.com/JaimeStill/docket/pkg/database"
	"github.com/JaimeStill/docket/pkg/envvar"
	"github.com/JaimeStill/docket/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvDocketEnv             = "DOCKET_ENV"
	EnvDocketShutdownTimeout = "DOCKET_SHUTDOWN_TIMEOUT"
	EnvDocketVersion         = "DOCKET_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "DOCKET_DB_HOST",
	Port:            "DOCKET_DB_PORT",
	Name:            "DOCKET_DB_NAME",
	User:            "DOCKET_DB_USER",
	Password:        "DOCKET_DB_PASSWORD",
	SSLMode:         "DOCKET_DB_SSL_MODE",
	MaxOpenConns:    "DOCKET_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "DOCKET_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "DOCKET_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "DOCKET_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "DOCKET_STORAGE_PROVIDER",
	ContainerName:    "DOCKET_STORAGE_CONTAINER_NAME",
	ConnectionString: "DOCKET_STORAGE_CONNECTION_STRING",
	AccountURL:       "DOCKET_STORAGE_ACCOUNT_URL",
	Endpoint:         "DOCKET_STORAGE_ENDPOINT",
	AccessKey:        "DOCKET_STORAGE_ACCESS_KEY",
	SecretKey:        "DOCKET_STORAGE_SECRET_KEY",
	Region:           "DOCKET_STORAGE_REGION",
	UseSSL:           "DOCKET_STORAGE_USE_SSL",
	MaxUploadSize:    "DOCKET_STORAGE_MAX_UPLOAD_SIZE",
}

var engineEnv = &inference.Env{
	Enabled:           "DOCKET_ENGINE_ENABLED",
	BaseURL:           "DOCKET_ENGINE_BASE_URL",
	Model:             "DOCKET_ENGINE_MODEL",
	KeepAlive:         "DOCKET_ENGINE_KEEP_ALIVE",
	ContextChars:      "DOCKET_ENGINE_CONTEXT_CHARS",
	MaxTokens:         "DOCKET_ENGINE_MAX_TOKENS",
	AllowMultiProcess: "DOCKET_ENGINE_ALLOW_MULTI_PROCESS",
	LeaseKey:          "DOCKET_ENGINE_LEASE_KEY",
	LeaseTTL:          "DOCKET_ENGINE_LEASE_TTL",
	RetryAttempts:     "DOCKET_ENGINE_RETRY_ATTEMPTS",
	RetryDelay:        "DOCKET_ENGINE_RETRY_DELAY",
	TimeoutSegment:    "DOCKET_ENGINE_TIMEOUT_SEGMENT",
	TimeoutVotes:      "DOCKET_ENGINE_TIMEOUT_VOTES",
	TimeoutSummarize:  "DOCKET_ENGINE_TIMEOUT_SUMMARIZE",
}

var workerEnv = &tasks.Env{
	Processes:     "DOCKET_WORKER_PROCESSES",
	Concurrency:   "DOCKET_WORKER_CONCURRENCY",
	QueueSize:     "DOCKET_WORKER_QUEUE_SIZE",
	SweepInterval: "DOCKET_WORKER_SWEEP_INTERVAL",
	Chain:         "DOCKET_WORKER_CHAIN",
}

var ocrEnv = &ocr.Env{
	Provider:      "DOCKET_OCR_PROVIDER",
	URL:           "DOCKET_OCR_URL",
	Timeout:       "DOCKET_OCR_TIMEOUT",
	Concurrency:   "DOCKET_OCR_CONCURRENCY",
	MaxPages:      "DOCKET_OCR_MAX_PAGES",
	RetryAttempts: "DOCKET_OCR_RETRY_ATTEMPTS",
	RetryDelay:    "DOCKET_OCR_RETRY_DELAY",
}

var legistarEnv = &legistar.Env{
	BaseURL:           "DOCKET_LEGISTAR_BASE_URL",
	Token:             "DOCKET_LEGISTAR_TOKEN",
	Timeout:           "DOCKET_LEGISTAR_TIMEOUT",
	RequestsPerSecond: "DOCKET_LEGISTAR_REQUESTS_PER_SECOND",
	Burst:             "DOCKET_LEGISTAR_BURST",
	RetryAttempts:     "DOCKET_LEGISTAR_RETRY_ATTEMPTS",
	RetryDelay:        "DOCKET_LEGISTAR_RETRY_DELAY",
}

var segmentEnv = &segment.Env{
	MinTitleChars:    "DOCKET_SEGMENT_MIN_TITLE_CHARS",
	MinAlphaDensity:  "DOCKET_SEGMENT_MIN_ALPHA_DENSITY",
	MaxArtifactRatio: "DOCKET_SEGMENT_MAX_ARTIFACT_RATIO",
	DedupeThreshold:  "DOCKET_SEGMENT_DEDUPE_THRESHOLD",
	MaxTextChars:     "DOCKET_SEGMENT_MAX_TEXT_CHARS",
	TailChars:        "DOCKET_SEGMENT_TAIL_CHARS",
	HTMLTimeout:      "DOCKET_SEGMENT_HTML_TIMEOUT",
	HTMLMaxBytes:     "DOCKET_SEGMENT_HTML_MAX_BYTES",
}

var votesEnv = &votes.Env{
	TitleThreshold:  "DOCKET_VOTES_TITLE_THRESHOLD",
	ConfidenceFloor: "DOCKET_VOTES_CONFIDENCE_FLOOR",
	HighConfidence:  "DOCKET_VOTES_HIGH_CONFIDENCE",
	MinTextChars:    "DOCKET_VOTES_MIN_TEXT_CHARS",
	MaxLocalChars:   "DOCKET_VOTES_MAX_LOCAL_CHARS",
	Source:          "DOCKET_VOTES_SOURCE",
}

var lineageEnv = &lineage.Env{
	EdgeThreshold:  "DOCKET_LINEAGE_EDGE_THRESHOLD",
	MinConfidence:  "DOCKET_LINEAGE_MIN_CONFIDENCE",
	DateWindowDays: "DOCKET_LINEAGE_DATE_WINDOW_DAYS",
	MinTokenChars:  "DOCKET_LINEAGE_MIN_TOKEN_CHARS",
}

var summaryEnv = &summaries.Env{
	MinSignalChars: "DOCKET_SUMMARY_MIN_SIGNAL_CHARS",
	MinGrounding:   "DOCKET_SUMMARY_MIN_GROUNDING",
	MinTokenChars:  "DOCKET_SUMMARY_MIN_TOKEN_CHARS",
}

var searchEnv = &search.Env{
	URL:            "DOCKET_SEARCH_URL",
	APIKey:         "DOCKET_SEARCH_API_KEY",
	Index:          "DOCKET_SEARCH_INDEX",
	HealthInterval: "DOCKET_SEARCH_HEALTH_INTERVAL",
}

// Config is the root configuration for the Docket service.
type Config struct {
	Server   ServerConfig     `toml:"server"`
	Database database.Config  `toml:"database"`
	Storage  storage.Config   `toml:"storage"`
	API      APIConfig        `toml:"api"`
	Redis    RedisConfig      `toml:"redis"`
	Engine   inference.Config `toml:"engine"`
	Worker   tasks.Config     `toml:"worker"`
	OCR      ocr.Config       `toml:"ocr"`
	Legistar legistar.Config  `toml:"legistar"`
	Segment  segment.Config   `toml:"segment"`
	Votes    votes.Config     `toml:"votes"`
	Lineage  lineage.Config   `toml:"lineage"`
	Summary  summaries.Config `toml:"summary"`
	Search   search.Config    `toml:"search"`

	ShutdownTimeout string `toml:"shutdown_timeout"`
	Version         string `toml:"version"`
}

// Env returns the DOCKET_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvDocketEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase resolves only the [database] section. The migrate command
// uses it so schema changes do not require storage or engine settings.
func LoadDatabase() (*database.Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &cfg.Database, nil
}

func read() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Redis.Merge(&overlay.Redis)
	c.Engine.Merge(&overlay.Engine)
	c.Worker.Merge(&overlay.Worker)
	c.OCR.Merge(&overlay.OCR)
	c.Legistar.Merge(&overlay.Legistar)
	c.Segment.Merge(&overlay.Segment)
	c.Votes.Merge(&overlay.Votes)
	c.Lineage.Merge(&overlay.Lineage)
	c.Summary.Merge(&overlay.Summary)
	c.Search.Merge(&overlay.Search)
}

// Finalize applies defaults, DOCKET_* overrides, and validation to every
// section. Load calls it; tests building a Config by hand call it directly.
func (c *Config) Finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	envvar.String(&c.ShutdownTimeout, EnvDocketShutdownTimeout)
	envvar.String(&c.Version, EnvDocketVersion)

	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"redis", c.Redis.Finalize},
		{"engine", func() error { return c.Engine.Finalize(engineEnv) }},
		{"worker", func() error { return c.Worker.Finalize(workerEnv) }},
		{"ocr", func() error { return c.OCR.Finalize(ocrEnv) }},
		{"legistar", func() error { return c.Legistar.Finalize(legistarEnv) }},
		{"segment", func() error { return c.Segment.Finalize(segmentEnv) }},
		{"votes", func() error { return c.Votes.Finalize(votesEnv) }},
		{"lineage", func() error { return c.Lineage.Finalize(lineageEnv) }},
		{"summary", func() error { return c.Summary.Finalize(summaryEnv) }},
		{"search", func() error { return c.Search.Finalize(searchEnv) }},
	}
	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvDocketEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
