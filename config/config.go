// backend/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// PortalConfig holds the upstream portal endpoints. Template URLs carry a
// single %s verb for the identifier or query term.
type PortalConfig struct {
	BaseURL             string `yaml:"base_url"`
	BulkListURL         string `yaml:"bulk_list_url"`
	MetadataURLTemplate string `yaml:"metadata_url_template"`
	ListingPageURL      string `yaml:"listing_page_url"`
	SearchURLTemplate   string `yaml:"search_url_template"`
	CategoryURLTemplate string `yaml:"category_url_template"`
}

type DiscoveryConfig struct {
	Categories []string `yaml:"categories"`
	SeedTerms  []string `yaml:"seed_terms"`

	MaxScrollAttempts int           `yaml:"max_scroll_attempts"`
	ScrollIdleLimit   int           `yaml:"scroll_idle_limit"`
	ScrollPauseStr    string        `yaml:"scroll_pause"`
	ScrollPause       time.Duration `yaml:"-"`

	MaxPages       int `yaml:"max_pages"`
	EmptyPageLimit int `yaml:"empty_page_limit"`
}

type BrowserConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ExecPath       string        `yaml:"exec_path"`
	NavTimeoutStr  string        `yaml:"nav_timeout"`
	NavTimeout     time.Duration `yaml:"-"`
	PageTimeoutStr string        `yaml:"page_timeout"`
	PageTimeout    time.Duration `yaml:"-"`
}

type HTTPConfig struct {
	RequestTimeoutStr  string        `yaml:"request_timeout"`
	RequestTimeout     time.Duration `yaml:"-"`
	DownloadTimeoutStr string        `yaml:"download_timeout"`
	DownloadTimeout    time.Duration `yaml:"-"`
	RetryMax           int           `yaml:"retry_max"`
	UserAgent          string        `yaml:"user_agent"`
}

type CacheConfig struct {
	DataTTLStr     string        `yaml:"data_ttl"`
	DataTTL        time.Duration `yaml:"-"`
	MetadataTTLStr string        `yaml:"metadata_ttl"`
	MetadataTTL    time.Duration `yaml:"-"`
	ListingTTLStr  string        `yaml:"listing_ttl"`
	ListingTTL     time.Duration `yaml:"-"`
}

type SyncConfig struct {
	FailRetryLimit     int           `yaml:"fail_retry_limit"`
	FailCooldownStr    string        `yaml:"fail_cooldown"`
	FailCooldown       time.Duration `yaml:"-"`
	EstimateChunkBytes int64         `yaml:"estimate_chunk_bytes"`
	BatchSize          int           `yaml:"batch_size"`
}

type SchedulerConfig struct {
	Enabled                 bool          `yaml:"enabled"`
	QuickDiscoveryIntStr    string        `yaml:"quick_discovery_interval"`
	QuickDiscoveryInterval  time.Duration `yaml:"-"`
	FullDiscoveryIntStr     string        `yaml:"full_discovery_interval"`
	FullDiscoveryInterval   time.Duration `yaml:"-"`
	MetadataSyncIntervalStr string        `yaml:"metadata_sync_interval"`
	MetadataSyncInterval    time.Duration `yaml:"-"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Portal    PortalConfig    `yaml:"portal"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Browser   BrowserConfig   `yaml:"browser"`
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Sync      SyncConfig      `yaml:"sync"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

var AppConfig Config

// LoadConfig reads the YAML config file, then applies .env / environment
// overrides for deploy-specific values (DB credentials, portal base URL,
// server port).
func LoadConfig(configPath string) error {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err == nil {
		log.Println("Config: loaded environment overrides from .env")
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(file, &AppConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides()
	applyDefaults()

	return parseDurations()
}

func applyEnvOverrides() {
	overrides := map[string]*string{
		"SERVER_PORT":     &AppConfig.Server.Port,
		"DB_HOST":         &AppConfig.Database.Host,
		"DB_PORT":         &AppConfig.Database.Port,
		"DB_USER":         &AppConfig.Database.User,
		"DB_PASSWORD":     &AppConfig.Database.Password,
		"DB_NAME":         &AppConfig.Database.DBName,
		"PORTAL_BASE_URL": &AppConfig.Portal.BaseURL,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

func applyDefaults() {
	d := &AppConfig.Discovery
	if d.MaxScrollAttempts == 0 {
		d.MaxScrollAttempts = 100
	}
	if d.ScrollIdleLimit == 0 {
		d.ScrollIdleLimit = 5
	}
	if d.MaxPages == 0 {
		d.MaxPages = 500
	}
	if d.EmptyPageLimit == 0 {
		d.EmptyPageLimit = 3
	}
	if len(d.SeedTerms) == 0 {
		// One pass per letter surfaces datasets the default listing order
		// never reaches.
		for c := 'a'; c <= 'z'; c++ {
			d.SeedTerms = append(d.SeedTerms, string(c))
		}
	}
	if AppConfig.HTTP.RetryMax == 0 {
		AppConfig.HTTP.RetryMax = 3
	}
	if AppConfig.HTTP.UserAgent == "" {
		AppConfig.HTTP.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if AppConfig.Sync.FailRetryLimit == 0 {
		AppConfig.Sync.FailRetryLimit = 5
	}
	if AppConfig.Sync.EstimateChunkBytes == 0 {
		AppConfig.Sync.EstimateChunkBytes = 64 * 1024
	}
	if AppConfig.Sync.BatchSize == 0 {
		AppConfig.Sync.BatchSize = 5
	}
}

func parseDurations() error {
	specs := []struct {
		raw string
		def time.Duration
		dst *time.Duration
	}{
		{AppConfig.Discovery.ScrollPauseStr, 2 * time.Second, &AppConfig.Discovery.ScrollPause},
		{AppConfig.Browser.NavTimeoutStr, 90 * time.Second, &AppConfig.Browser.NavTimeout},
		{AppConfig.Browser.PageTimeoutStr, 5 * time.Minute, &AppConfig.Browser.PageTimeout},
		{AppConfig.HTTP.RequestTimeoutStr, 30 * time.Second, &AppConfig.HTTP.RequestTimeout},
		{AppConfig.HTTP.DownloadTimeoutStr, 2 * time.Minute, &AppConfig.HTTP.DownloadTimeout},
		{AppConfig.Cache.DataTTLStr, 6 * time.Hour, &AppConfig.Cache.DataTTL},
		{AppConfig.Cache.MetadataTTLStr, 12 * time.Hour, &AppConfig.Cache.MetadataTTL},
		{AppConfig.Cache.ListingTTLStr, 10 * time.Minute, &AppConfig.Cache.ListingTTL},
		{AppConfig.Sync.FailCooldownStr, 7 * 24 * time.Hour, &AppConfig.Sync.FailCooldown},
		{AppConfig.Scheduler.QuickDiscoveryIntStr, 7 * 24 * time.Hour, &AppConfig.Scheduler.QuickDiscoveryInterval},
		{AppConfig.Scheduler.FullDiscoveryIntStr, 30 * 24 * time.Hour, &AppConfig.Scheduler.FullDiscoveryInterval},
		{AppConfig.Scheduler.MetadataSyncIntervalStr, 24 * time.Hour, &AppConfig.Scheduler.MetadataSyncInterval},
	}
	for _, s := range specs {
		if s.raw == "" {
			*s.dst = s.def
			continue
		}
		d, err := time.ParseDuration(s.raw)
		if err != nil {
			return fmt.Errorf("failed to parse duration %q: %w", s.raw, err)
		}
		*s.dst = d
	}
	return nil
}

// MetadataURL builds the package-metadata endpoint URL for one identifier.
func MetadataURL(identifier string) string {
	return fmt.Sprintf(AppConfig.Portal.MetadataURLTemplate, identifier)
}
