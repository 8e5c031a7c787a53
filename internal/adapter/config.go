package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Endpoints   EndpointsConfig   `mapstructure:"endpoints"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// EndpointsConfig holds the upstream base URLs. Overridable for tests and
// mirrors; defaults point at the real services.
type EndpointsConfig struct {
	Firebase string `mapstructure:"firebase"` // id-based JSON API
	Algolia  string `mapstructure:"algolia"`  // search API
	Site     string `mapstructure:"site"`     // HTML site (auth, scraping)
}

// PreferencesConfig holds display preferences persisted across runs.
type PreferencesConfig struct {
	DefaultView string  `mapstructure:"default_view"` // "post", "comments" or "both"
	TextScale   float64 `mapstructure:"text_scale"`
	Appearance  string  `mapstructure:"appearance"` // "system", "light" or "dark"
	BlockAds    bool    `mapstructure:"block_ads"`
	BlockPopups bool    `mapstructure:"block_popups"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Endpoints: EndpointsConfig{
			Firebase: "https://hacker-news.firebaseio.com/v0",
			Algolia:  "https://hn.algolia.com/api/v1",
			Site:     "https://news.ycombinator.com",
		},
		Preferences: PreferencesConfig{
			DefaultView: "post",
			TextScale:   1.0,
			Appearance:  "system",
			BlockAds:    true,
			BlockPopups: true,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "hndesk", "hndesk.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "hndesk", "hndesk.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "hndesk")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "hndesk")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "hndesk", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "hndesk", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("HNDESK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SavePreferences writes the preference keys back to the config file,
// leaving the other sections untouched.
func SavePreferences(prefs PreferencesConfig) error {
	viper.Set("preferences.default_view", prefs.DefaultView)
	viper.Set("preferences.text_scale", prefs.TextScale)
	viper.Set("preferences.appearance", prefs.Appearance)
	viper.Set("preferences.block_ads", prefs.BlockAds)
	viper.Set("preferences.block_popups", prefs.BlockPopups)

	return writeConfigFile()
}

// SaveConfig saves the full configuration to file
func SaveConfig(cfg *Config) error {
	viper.Set("endpoints.firebase", cfg.Endpoints.Firebase)
	viper.Set("endpoints.algolia", cfg.Endpoints.Algolia)
	viper.Set("endpoints.site", cfg.Endpoints.Site)

	viper.Set("preferences.default_view", cfg.Preferences.DefaultView)
	viper.Set("preferences.text_scale", cfg.Preferences.TextScale)
	viper.Set("preferences.appearance", cfg.Preferences.Appearance)
	viper.Set("preferences.block_ads", cfg.Preferences.BlockAds)
	viper.Set("preferences.block_popups", cfg.Preferences.BlockPopups)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	return writeConfigFile()
}

func writeConfigFile() error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}

// GetCredentialsPath returns the path of the stored session credentials
func GetCredentialsPath() string {
	return filepath.Join(defaultConfigPath(), "session.json")
}

// ClearCache removes all cached data
func ClearCache() error {
	if err := os.RemoveAll(defaultCachePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
