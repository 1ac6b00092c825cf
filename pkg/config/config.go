package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the venue pipeline.
type Config struct {
	// Listing site settings
	Site SiteConfig `yaml:"site" json:"site"`

	// Collection run settings
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Enrichment run settings
	Geocode GeocodeConfig `yaml:"geocode" json:"geocode"`

	// Retry policy shared by both engines
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// File locations
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig holds listing-site specific configuration.
type SiteConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	ListingPath string        `yaml:"listing_path" json:"listing_path"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// ScrapeConfig holds collection engine configuration.
type ScrapeConfig struct {
	MaxPages           int           `yaml:"max_pages" json:"max_pages"`
	MaxVenues          int           `yaml:"max_venues" json:"max_venues"`
	StartPage          int           `yaml:"start_page" json:"start_page"`
	PageDelay          time.Duration `yaml:"page_delay" json:"page_delay"`
	EmptyPageThreshold int           `yaml:"empty_page_threshold" json:"empty_page_threshold"`
	MilestoneInterval  int           `yaml:"milestone_interval" json:"milestone_interval"`
	RecordsPerPage     int           `yaml:"records_per_page" json:"records_per_page"`
	FetchDetails       bool          `yaml:"fetch_details" json:"fetch_details"`
}

// GeocodeConfig holds enrichment engine configuration.
type GeocodeConfig struct {
	Endpoint          string        `yaml:"endpoint" json:"endpoint"`
	RequestDelay      time.Duration `yaml:"request_delay" json:"request_delay"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	SaveInterval      int           `yaml:"save_interval" json:"save_interval"`
	MilestoneInterval int           `yaml:"milestone_interval" json:"milestone_interval"`
}

// RetryConfig holds the retry/backoff policy for external calls.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// OutputConfig holds dataset, checkpoint and backup locations.
type OutputConfig struct {
	DataDir       string `yaml:"data_dir" json:"data_dir"`
	DatasetFile   string `yaml:"dataset_file" json:"dataset_file"`
	CheckpointDir string `yaml:"checkpoint_dir" json:"checkpoint_dir"`
	BackupDir     string `yaml:"backup_dir" json:"backup_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults. The page
// count, per-page record estimate and delays mirror the listing site's
// observed behavior.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:     "https://atentogutschein.de",
			ListingPath: "/en/communities/lokale-favoriten-gutschein?q%5Bcity_or_address_postal_code_cont%5D=Berlin",
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Timeout:     30 * time.Second,
		},
		Scrape: ScrapeConfig{
			MaxPages:           89,
			MaxVenues:          0, // 0 means no limit
			StartPage:          0, // 0 means infer from checkpoint/dataset
			PageDelay:          300 * time.Millisecond,
			EmptyPageThreshold: 2,
			MilestoneInterval:  10,
			RecordsPerPage:     22,
			FetchDetails:       true,
		},
		Geocode: GeocodeConfig{
			Endpoint:          "https://nominatim.openstreetmap.org/search",
			RequestDelay:      1200 * time.Millisecond,
			Timeout:           30 * time.Second,
			SaveInterval:      1,
			MilestoneInterval: 100,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    2 * time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Output: OutputConfig{
			DataDir:       ".",
			DatasetFile:   "venues_berlin.json",
			CheckpointDir: "checkpoints",
			BackupDir:     "backups",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ApplyTestMode caps a collection run for quick test scrapes: two pages,
// roughly fifty venues.
func (c *Config) ApplyTestMode() {
	c.Scrape.MaxPages = 2
	if c.Scrape.MaxVenues == 0 || c.Scrape.MaxVenues > 50 {
		c.Scrape.MaxVenues = 50
	}
}

// DatasetPath returns the absolute-ish path of the dataset file.
func (c *Config) DatasetPath() string {
	return filepath.Join(c.Output.DataDir, c.Output.DatasetFile)
}

// CheckpointPath returns the directory holding checkpoint files.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Output.DataDir, c.Output.CheckpointDir)
}

// BackupPath returns the directory holding backup snapshots.
func (c *Config) BackupPath() string {
	return filepath.Join(c.Output.DataDir, c.Output.BackupDir)
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv("VENUESCRAPER_BASE_URL"); baseURL != "" {
		c.Site.BaseURL = baseURL
	}
	if userAgent := os.Getenv("VENUESCRAPER_USER_AGENT"); userAgent != "" {
		c.Site.UserAgent = userAgent
	}
	if endpoint := os.Getenv("VENUESCRAPER_GEOCODE_ENDPOINT"); endpoint != "" {
		c.Geocode.Endpoint = endpoint
	}
	if dataDir := os.Getenv("VENUESCRAPER_DATA_DIR"); dataDir != "" {
		c.Output.DataDir = dataDir
	}
	if maxPages := os.Getenv("VENUESCRAPER_MAX_PAGES"); maxPages != "" {
		if val, err := strconv.Atoi(maxPages); err == nil && val > 0 {
			c.Scrape.MaxPages = val
		}
	}
	if delay := os.Getenv("VENUESCRAPER_PAGE_DELAY"); delay != "" {
		if val, err := time.ParseDuration(delay); err == nil && val > 0 {
			c.Scrape.PageDelay = val
		}
	}
	if logLevel := os.Getenv("VENUESCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".venuescraper.yaml",
		".venuescraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "venuescraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "venuescraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Site.BaseURL == "" {
		errs = append(errs, errors.New("site base URL is required"))
	}
	if c.Site.Timeout <= 0 {
		errs = append(errs, errors.New("site timeout must be positive"))
	}

	if c.Scrape.MaxPages <= 0 {
		errs = append(errs, errors.New("max pages must be positive"))
	}
	if c.Scrape.MaxVenues < 0 {
		errs = append(errs, errors.New("max venues cannot be negative"))
	}
	if c.Scrape.StartPage < 0 {
		errs = append(errs, errors.New("start page cannot be negative"))
	}
	if c.Scrape.PageDelay < 0 {
		errs = append(errs, errors.New("page delay cannot be negative"))
	}
	if c.Scrape.EmptyPageThreshold < 1 {
		errs = append(errs, errors.New("empty page threshold must be at least 1"))
	}
	if c.Scrape.MilestoneInterval <= 0 {
		errs = append(errs, errors.New("milestone interval must be positive"))
	}
	if c.Scrape.RecordsPerPage <= 0 {
		errs = append(errs, errors.New("records per page must be positive"))
	}

	if c.Geocode.Endpoint == "" {
		errs = append(errs, errors.New("geocode endpoint is required"))
	}
	if c.Geocode.RequestDelay < 0 {
		errs = append(errs, errors.New("geocode request delay cannot be negative"))
	}
	if c.Geocode.SaveInterval <= 0 {
		errs = append(errs, errors.New("geocode save interval must be positive"))
	}
	if c.Geocode.MilestoneInterval <= 0 {
		errs = append(errs, errors.New("geocode milestone interval must be positive"))
	}

	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry max attempts must be positive"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Output.DataDir == "" {
		errs = append(errs, errors.New("data directory is required"))
	}
	if c.Output.DatasetFile == "" {
		errs = append(errs, errors.New("dataset file name is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if maxPages, ok := flags["max-pages"].(int); ok && maxPages > 0 {
		c.Scrape.MaxPages = maxPages
	}
	if maxVenues, ok := flags["max-venues"].(int); ok && maxVenues > 0 {
		c.Scrape.MaxVenues = maxVenues
	}
	if startPage, ok := flags["start-page"].(int); ok && startPage > 0 {
		c.Scrape.StartPage = startPage
	}
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Output.DataDir = dataDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if testMode, ok := flags["test"].(bool); ok && testMode {
		c.ApplyTestMode()
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".venuescraper.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
