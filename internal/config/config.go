package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is the application version, overridable at build time via ldflags.
var Version = "0.3.0"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Output    OutputConfig    `mapstructure:"output"`
	Poster    PosterConfig    `mapstructure:"poster"`
	Landscape LandscapeConfig `mapstructure:"landscape"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration for serve mode.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ClientConfig holds outbound HTTP client configuration.
type ClientConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// OutputConfig holds artifact output directories.
type OutputConfig struct {
	PosterDir    string `mapstructure:"poster_dir"`
	LandscapeDir string `mapstructure:"landscape_dir"`
}

// PosterConfig holds poster acceptance criteria.
type PosterConfig struct {
	MinHeight int `mapstructure:"min_height"`
}

// LandscapeConfig holds the landscape ranking parameters.
type LandscapeConfig struct {
	MinWidth          int     `mapstructure:"min_width"`
	MinAspect         float64 `mapstructure:"min_aspect"`
	TargetAspect      float64 `mapstructure:"target_aspect"`
	AspectWeight      float64 `mapstructure:"aspect_weight"`
	ColorNormalizer   float64 `mapstructure:"color_normalizer"`
	ColorFailPenalty  float64 `mapstructure:"color_fail_penalty"`
	EarlyExitScore    float64 `mapstructure:"early_exit_score"`
	EarlyExitMinValid int     `mapstructure:"early_exit_min_valid"`
	MaxProbes         int     `mapstructure:"max_probes"`
}

// SourcesConfig holds per-source candidate caps and the accumulation
// thresholds that short-circuit lower-priority sources.
type SourcesConfig struct {
	UnsplashCap int `mapstructure:"unsplash_cap"`
	GoogleCap   int `mapstructure:"google_cap"`
	DuckCap     int `mapstructure:"duck_cap"`
	BingCap     int `mapstructure:"bing_cap"`

	// Skip*At are accumulated unique-candidate counts at which the named
	// source is no longer queried.
	SkipGoogleAt int `mapstructure:"skip_google_at"`
	SkipDuckAt   int `mapstructure:"skip_duck_at"`
	SkipBingAt   int `mapstructure:"skip_bing_at"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.reelframe")
	}

	v.SetEnvPrefix("REELFRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7878)

	v.SetDefault("client.timeout_seconds", 45)
	v.SetDefault("client.user_agent", "ReelFrame/"+Version+" (artwork-fetcher; no-api-key)")

	v.SetDefault("output.poster_dir", "posters")
	v.SetDefault("output.landscape_dir", "thumbnails")

	v.SetDefault("poster.min_height", 2000)

	v.SetDefault("landscape.min_width", 1280)
	v.SetDefault("landscape.min_aspect", 1.2)
	v.SetDefault("landscape.target_aspect", 16.0/9.0)
	v.SetDefault("landscape.aspect_weight", 0.5)
	v.SetDefault("landscape.color_normalizer", 80.0)
	v.SetDefault("landscape.color_fail_penalty", 50.0)
	v.SetDefault("landscape.early_exit_score", 0.3)
	v.SetDefault("landscape.early_exit_min_valid", 2)
	v.SetDefault("landscape.max_probes", 100)

	v.SetDefault("sources.unsplash_cap", 20)
	v.SetDefault("sources.google_cap", 30)
	v.SetDefault("sources.duck_cap", 20)
	v.SetDefault("sources.bing_cap", 20)
	v.SetDefault("sources.skip_google_at", 20)
	v.SetDefault("sources.skip_duck_at", 30)
	v.SetDefault("sources.skip_bing_at", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
