package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	appLog "uaoagenda/internal/log"
)

// CatalogConfig describes where the event catalog document comes from.
type CatalogConfig struct {
	// URL is the HTTP endpoint serving the events JSON document.
	URL string `yaml:"url" json:"url" env:"URL"`
	// File is a local JSON document used when URL is empty.
	File string `yaml:"file" json:"file" env:"FILE"`
	// CacheDir stores the last good body plus ETag/Last-Modified metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir" env:"CACHE_DIR"`
	// Refresh is a cron-style schedule (e.g. "*/15 * * * *").
	Refresh string `yaml:"refresh" json:"refresh" env:"REFRESH"`
	// TimeoutSeconds bounds one fetch.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// StorageConfig selects the durable storage backend for user state.
type StorageConfig struct {
	// Backend is one of "memory", "file", "redis".
	Backend       string `yaml:"backend" json:"backend" env:"BACKEND"`
	Dir           string `yaml:"dir" json:"dir" env:"DIR"`
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" json:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db" env:"REDIS_DB"`
	// KeyPrefix namespaces keys in shared backends (redis).
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`
}

// SeedEntry is one history line a fresh rewards ledger starts with.
type SeedEntry struct {
	Amount int64  `yaml:"amount" json:"amount"`
	Label  string `yaml:"label" json:"label"`
}

// RewardsConfig controls the initial ledger and share bonus.
type RewardsConfig struct {
	SharePoints   int64       `yaml:"share_points" json:"share_points" env:"SHARE_POINTS"`
	InitialPoints int64       `yaml:"initial_points" json:"initial_points" env:"INITIAL_POINTS"`
	InitialCash   int64       `yaml:"initial_cash" json:"initial_cash" env:"INITIAL_CASH"`
	SeedHistory   []SeedEntry `yaml:"seed_history" json:"seed_history"`
}

// QueryConfig holds the display caps used by derived views.
type QueryConfig struct {
	DisplayCap         int `yaml:"display_cap" json:"display_cap" env:"DISPLAY_CAP"`
	FeaturedWindowDays int `yaml:"featured_window_days" json:"featured_window_days" env:"FEATURED_WINDOW_DAYS"`
	FeaturedCap        int `yaml:"featured_cap" json:"featured_cap" env:"FEATURED_CAP"`
	RecommendedCount   int `yaml:"recommended_count" json:"recommended_count" env:"RECOMMENDED_COUNT"`
}

// ProfileConfig is the static part of the user profile.
type ProfileConfig struct {
	Name      string   `yaml:"name" json:"name" env:"NAME"`
	Email     string   `yaml:"email" json:"email" env:"EMAIL"`
	AvatarURL string   `yaml:"avatar_url" json:"avatar_url" env:"AVATAR_URL"`
	Attended  int      `yaml:"attended" json:"attended" env:"ATTENDED"`
	Interests []string `yaml:"interests" json:"interests" env:"INTERESTS"`
}

// ShareConfig configures the outbound share capability.
type ShareConfig struct {
	// WebhookURL, if set, receives a JSON payload for every share.
	WebhookURL string `yaml:"webhook_url" json:"webhook_url" env:"WEBHOOK_URL"`
	// BaseURL is used to build the event link included in shared text.
	BaseURL string `yaml:"base_url" json:"base_url" env:"BASE_URL"`
	// ClipboardFile receives the copy when no webhook is configured.
	ClipboardFile string `yaml:"clipboard_file" json:"clipboard_file" env:"CLIPBOARD_FILE"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"LISTEN"`

	// Timezone is the IANA timezone used for calendar-date and weekday math.
	Timezone string `yaml:"timezone" json:"timezone" env:"TIMEZONE"`

	// WeekStart controls the first column of the month grid:
	//   - "sunday" (default, matches the original calendar widget)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start" env:"WEEK_START"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`

	Catalog CatalogConfig `yaml:"catalog" json:"catalog" envPrefix:"CATALOG_"`
	Storage StorageConfig `yaml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Rewards RewardsConfig `yaml:"rewards" json:"rewards" envPrefix:"REWARDS_"`
	Query   QueryConfig   `yaml:"query" json:"query" envPrefix:"QUERY_"`
	Profile ProfileConfig `yaml:"profile" json:"profile" envPrefix:"PROFILE_"`
	Share   ShareConfig   `yaml:"share" json:"share" envPrefix:"SHARE_"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health and /metrics.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "UAO_"

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Timezone:  "America/Bogota",
		WeekStart: "sunday",
		LogLevel:  "INFO",
		Catalog: CatalogConfig{
			File:           "./data/events.json",
			CacheDir:       "./var/catalog-cache",
			Refresh:        "*/15 * * * *",
			TimeoutSeconds: 15,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Dir:       "./var/state",
			KeyPrefix: "uao:",
		},
		Rewards: RewardsConfig{
			SharePoints:   5,
			InitialPoints: 255,
			InitialCash:   50000,
			SeedHistory:   defaultSeed(),
		},
		Query: QueryConfig{
			DisplayCap:         12,
			FeaturedWindowDays: 7,
			FeaturedCap:        3,
			RecommendedCount:   5,
		},
		Profile: ProfileConfig{
			Name:      "María Rodriguez",
			Email:     "maria.rodriguez@uao.edu.co",
			AvatarURL: "https://images.unsplash.com/photo-1544005313-94ddf0286df2?w=256",
			Attended:  12,
			Interests: []string{"Concierto", "Arte", "Cine", "Charlas"},
		},
		Share: ShareConfig{
			BaseURL:       "http://127.0.0.1:8080",
			ClipboardFile: "./var/share-clipboard.txt",
		},
	}
}

func defaultSeed() []SeedEntry {
	return []SeedEntry{
		{Amount: 100, Label: "Asististe al festival de Cali 22"},
		{Amount: 5, Label: "Compartiste evento en redes sociales"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "monday", "sunday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = d.WeekStart
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	if c.Catalog.Refresh == "" {
		c.Catalog.Refresh = d.Catalog.Refresh
	}
	if c.Catalog.CacheDir == "" {
		c.Catalog.CacheDir = d.Catalog.CacheDir
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = d.Catalog.TimeoutSeconds
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Backend)) {
	case "memory", "file", "redis":
		c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	default:
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = d.Storage.Dir
	}

	if c.Rewards.SharePoints <= 0 {
		c.Rewards.SharePoints = d.Rewards.SharePoints
	}
	if c.Rewards.InitialPoints < 0 {
		c.Rewards.InitialPoints = 0
	}
	if c.Rewards.InitialCash < 0 {
		c.Rewards.InitialCash = 0
	}

	if c.Query.DisplayCap <= 0 {
		c.Query.DisplayCap = d.Query.DisplayCap
	}
	if c.Query.FeaturedWindowDays <= 0 {
		c.Query.FeaturedWindowDays = d.Query.FeaturedWindowDays
	}
	if c.Query.FeaturedCap <= 0 {
		c.Query.FeaturedCap = d.Query.FeaturedCap
	}
	if c.Query.RecommendedCount <= 0 {
		c.Query.RecommendedCount = d.Query.RecommendedCount
	}

	if c.Profile.Interests == nil {
		c.Profile.Interests = []string{}
	}
	if c.Share.BaseURL == "" {
		c.Share.BaseURL = "http://" + c.Listen
	}
	c.Share.BaseURL = strings.TrimRight(c.Share.BaseURL, "/")
}

// ApplyEnv overlays UAO_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env overrides: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - In both cases UAO_* env overrides are applied, then defaults normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			if err := cfg.ApplyEnv(); err != nil {
				return cfg, err
			}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, ".uaoagenda-config-*.tmp")
}

// writeFileAtomic writes data next to path in a temp file, fsyncs it, sets
// 0600 and renames it over path.
func writeFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Location resolves Timezone, falling back to time.Local when it is empty or
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// FeaturedWindow is the featured-events horizon as a duration.
func (q QueryConfig) FeaturedWindow() time.Duration {
	return time.Duration(q.FeaturedWindowDays) * 24 * time.Hour
}
