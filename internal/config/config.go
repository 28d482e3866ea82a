package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/clawguard/clawguard/internal/ingest"
)

// Config root configuration
type Config struct {
	Limits LimitsConfig `mapstructure:"limits"`
	Log    LogConfig    `mapstructure:"log"`
	Paths  PathsConfig  `mapstructure:"paths"`
}

// LimitsConfig ingest and transport limits
type LimitsConfig struct {
	TimeoutMs        int   `mapstructure:"timeout_ms"`
	Retries          int   `mapstructure:"retries"`
	MaxFiles         int   `mapstructure:"max_files"`
	MaxTotalBytes    int64 `mapstructure:"max_total_bytes"`
	MaxFileBytes     int64 `mapstructure:"max_file_bytes"`
	MaxZipBytes      int64 `mapstructure:"max_zip_bytes"`
	MaxZipEntryBytes int64 `mapstructure:"max_zip_entry_bytes"`
}

// LogConfig application logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// PathsConfig default on-disk locations, all relative to the working
// directory unless absolute
type PathsConfig struct {
	TrustStore  string `mapstructure:"trust_store"`
	ReceiptsDir string `mapstructure:"receipts_dir"`
	Policy      string `mapstructure:"policy"`
}

// DefaultConfig returns config with sensible defaults
func DefaultConfig() *Config {
	limits := ingest.DefaultLimits()
	return &Config{
		Limits: LimitsConfig{
			TimeoutMs:        limits.TimeoutMs,
			Retries:          limits.Retries,
			MaxFiles:         limits.MaxFiles,
			MaxTotalBytes:    limits.MaxTotalBytes,
			MaxFileBytes:     limits.MaxFileBytes,
			MaxZipBytes:      limits.MaxZipBytes,
			MaxZipEntryBytes: limits.MaxZipEntryBytes,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Paths: PathsConfig{
			TrustStore:  filepath.Join(".clawguard", "trust.json"),
			ReceiptsDir: filepath.Join(".clawguard", "receipts"),
			Policy:      "",
		},
	}
}

// ConfigDir returns the clawguard config directory
func ConfigDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".clawguard")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

// Load loads config from file or returns defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")
	v.SetEnvPrefix("CLAWGUARD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.MatchName = func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		}
	}); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	return cfg, nil
}

func normalizeKey(input string) string {
	input = strings.ReplaceAll(input, "_", "")
	input = strings.ReplaceAll(input, "-", "")
	return strings.ToLower(input)
}

// Normalize clamps limits into their supported ranges and fills
// defaulted fields. Out-of-range values are corrected, not rejected.
func (c *Config) Normalize() {
	clamped := c.IngestLimits()
	c.Limits = LimitsConfig{
		TimeoutMs:        clamped.TimeoutMs,
		Retries:          clamped.Retries,
		MaxFiles:         clamped.MaxFiles,
		MaxTotalBytes:    clamped.MaxTotalBytes,
		MaxFileBytes:     clamped.MaxFileBytes,
		MaxZipBytes:      clamped.MaxZipBytes,
		MaxZipEntryBytes: clamped.MaxZipEntryBytes,
	}

	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "", "info":
		c.Log.Level = "info"
	case "debug", "warn", "error":
		c.Log.Level = level
	default:
		c.Log.Level = "info"
	}

	if strings.TrimSpace(c.Paths.TrustStore) == "" {
		c.Paths.TrustStore = filepath.Join(".clawguard", "trust.json")
	}
	if strings.TrimSpace(c.Paths.ReceiptsDir) == "" {
		c.Paths.ReceiptsDir = filepath.Join(".clawguard", "receipts")
	}
}

// IngestLimits converts the configured limits into clamped ingest
// limits.
func (c *Config) IngestLimits() ingest.Limits {
	return ingest.Limits{
		TimeoutMs:        c.Limits.TimeoutMs,
		Retries:          c.Limits.Retries,
		MaxFiles:         c.Limits.MaxFiles,
		MaxTotalBytes:    c.Limits.MaxTotalBytes,
		MaxFileBytes:     c.Limits.MaxFileBytes,
		MaxZipBytes:      c.Limits.MaxZipBytes,
		MaxZipEntryBytes: c.Limits.MaxZipEntryBytes,
	}.Clamped()
}
