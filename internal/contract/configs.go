package contract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/outpostlabs/outpost/schema"
)

// Default values for configuration.
const (
	DefaultProductName    = "outpost"
	DefaultListenAddr     = ":8970"
	DefaultGeneration     = 1
	DefaultResultLimit    = 50
	MaxResultLimit        = 1000
	DefaultReplayMaxTries = 0 // 0 means unlimited replay attempts
)

// DateTimeFormat is the default date time representation.
const DateTimeFormat = "2006-01-02 15:04:05"

// Config holds the runtime configuration for the engine.
// This struct remains the "final, validated" config.
type Config struct {
	ProductName string
	Generation  int

	// Origin is the upstream the engine proxies and caches for. OriginURL is
	// the parsed form; both always agree after validation.
	Origin    string
	OriginURL *url.URL

	ListenAddr string

	// PrecacheManifest lists the URLs guaranteed availability after install.
	// Entries may be origin-relative paths or absolute same-origin URLs.
	PrecacheManifest []string

	SkipWaiting bool

	QueueTag          string
	ReplayMaxAttempts int // 0 means unlimited

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	ResultLimit int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)

	UseColors bool // Enable colored labels in table output
}

// Clone returns a shallow copy of the config for per-request overrides.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	Product           string `mapstructure:"product"`
	Generation        int    `mapstructure:"generation"`
	Origin            string `mapstructure:"origin"`
	Listen            string `mapstructure:"listen"`
	Manifest          string `mapstructure:"manifest"`
	SkipWaiting       bool   `mapstructure:"skip-waiting"`
	QueueTag          string `mapstructure:"queue-tag"`
	ReplayMaxAttempts int    `mapstructure:"replay-max-attempts"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	HistoryBackend    string `mapstructure:"history-backend"`
	HistoryDBConnect  string `mapstructure:"history-db-connect"`
	Limit             int    `mapstructure:"limit"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Width             int    `mapstructure:"width"`
	Color             string `mapstructure:"color"`
}

// ProcessAndValidate converts the raw input into a validated Config.
// It is the single funnel between flag/env/file input and the engine.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	cfg.ProductName = input.Product
	if cfg.ProductName == "" {
		cfg.ProductName = DefaultProductName
	}

	cfg.Generation = input.Generation
	if cfg.Generation < 1 {
		return fmt.Errorf("generation must be >= 1, got %d", input.Generation)
	}

	originURL, err := ParseOrigin(input.Origin)
	if err != nil {
		return err
	}
	cfg.Origin = originURL.String()
	cfg.OriginURL = originURL

	cfg.ListenAddr = input.Listen
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	manifest, err := ParseManifest(input.Manifest, originURL)
	if err != nil {
		return err
	}
	cfg.PrecacheManifest = manifest

	cfg.SkipWaiting = input.SkipWaiting

	cfg.QueueTag = input.QueueTag
	if cfg.QueueTag == "" {
		cfg.QueueTag = schema.DefaultQueueTag
	}

	if input.ReplayMaxAttempts < 0 {
		return fmt.Errorf("replay-max-attempts must be >= 0, got %d", input.ReplayMaxAttempts)
	}
	cfg.ReplayMaxAttempts = input.ReplayMaxAttempts

	cfg.CacheBackend = schema.DatabaseBackend(input.CacheBackend)
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend: %s. Must be sqlite, mysql, postgresql, or none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	cfg.HistoryBackend = schema.DatabaseBackend(input.HistoryBackend)
	if input.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	} else if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend: %s. Must be sqlite, mysql, postgresql, or none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	cfg.ResultLimit = input.Limit
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultResultLimit
	}
	if cfg.ResultLimit > MaxResultLimit {
		return fmt.Errorf("limit cannot exceed %d, got %d", MaxResultLimit, input.Limit)
	}

	cfg.Output = schema.OutputMode(input.Output)
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output mode: %s. Must be text, csv, json, or parquet", input.Output)
	}
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	useColors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid color setting: %w", err)
	}
	cfg.UseColors = useColors

	return nil
}

// ParseOrigin validates an upstream origin URL. The origin must be absolute,
// http or https, and carry no path, query, or fragment beyond "/".
func ParseOrigin(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("origin is required (e.g., https://api.example.com)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("origin %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("origin %q must include a host", raw)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("origin %q must not include a path, query, or fragment", raw)
	}
	u.Path = ""
	return u, nil
}

// ParseManifest splits a comma-separated manifest list and resolves each
// entry against the origin. Absolute entries must be same-origin.
func ParseManifest(raw string, origin *url.URL) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var manifest []string
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		resolved, err := ResolveAgainstOrigin(entry, origin)
		if err != nil {
			return nil, fmt.Errorf("invalid manifest entry %q: %w", entry, err)
		}
		manifest = append(manifest, resolved)
	}
	return manifest, nil
}

// ResolveAgainstOrigin turns an origin-relative path or absolute same-origin
// URL into an absolute URL string.
func ResolveAgainstOrigin(entry string, origin *url.URL) (string, error) {
	u, err := url.Parse(entry)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		if u.Host != origin.Host || u.Scheme != origin.Scheme {
			return "", fmt.Errorf("%q is not same-origin with %s", entry, origin)
		}
		return u.String(), nil
	}
	if !strings.HasPrefix(entry, "/") {
		return "", fmt.Errorf("relative entry %q must start with /", entry)
	}
	return origin.ResolveReference(u).String(), nil
}

// ValidateDatabaseConnectionString checks backend/connection string pairing.
// SQLite treats the connection string as an optional file path; server
// backends require one.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("mysql backend requires a connection string (user:password@tcp(host:port)/dbname)")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("postgresql backend requires a connection string (host=... port=... user=... dbname=...)")
		}
	}
	return nil
}
