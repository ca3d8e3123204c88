// Package config centralizes the listing monitor's environment-variable
// surface: database connection, provider adapter credentials, scheduling
// cadence, and notification tuning. An optional YAML file may be layered
// underneath for local development; environment variables always take
// precedence over it.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFilter is the filter skeleton every enqueued city job's query is
// built from, with only the city overridden per job; City itself is the
// city used for users whose stored filter has none.
type DefaultFilter struct {
	City     string  `yaml:"city"`
	PriceMin float64 `yaml:"price_min"`
	PriceMax float64 `yaml:"price_max"`
	RoomsMin float64 `yaml:"rooms_min"`
	RoomsMax float64 `yaml:"rooms_max"`
	AreaMin  float64 `yaml:"area_min"`
	AreaMax  float64 `yaml:"area_max"`
}

// ProviderConfig holds the actor/API identifiers for one provider.
type ProviderConfig struct {
	ApifyToken string `yaml:"apify_token"`
	ActorID    string `yaml:"actor_id"`
	StartURL   string `yaml:"start_url"`
}

// Config is the full environment surface of the monitor.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	APIPort     int    `yaml:"api_port"`

	ImmoScout24   ProviderConfig `yaml:"immoscout24"`
	Immowelt      ProviderConfig `yaml:"immowelt"`
	Kleinanzeigen ProviderConfig `yaml:"kleinanzeigen"`

	DefaultFilter DefaultFilter `yaml:"default_filter"`
	MaxPriceCap   float64       `yaml:"max_price_cap"`

	CheckIntervalNormal time.Duration `yaml:"-"`
	CheckIntervalQuiet  time.Duration `yaml:"-"`
	QuietHoursStart     int           `yaml:"quiet_hours_start"`
	QuietHoursEnd       int           `yaml:"quiet_hours_end"`

	MaxWorkers          int           `yaml:"max_workers"`
	CacheTTL            time.Duration `yaml:"-"`
	ImageCacheTTL       time.Duration `yaml:"-"`

	AdapterCooldown     time.Duration `yaml:"-"`
	AdapterQuietScaling float64       `yaml:"apify_quiet_scaling"`
	ApifySyncRun        bool          `yaml:"apify_sync_run"`

	MaxNotifyPerCycle     int           `yaml:"max_notify_per_cycle"`
	MaxApartmentsPerJob   int           `yaml:"max_apartments_per_job"`
	NotificationThrottle  time.Duration `yaml:"-"`

	EnableImmoweltLive   bool `yaml:"enable_immowelt_live"`
	EnableAI             bool `yaml:"enable_ai"`
	EnablePublicOSM      bool `yaml:"enable_public_osm"`
	EnablePlaceholderRSS bool `yaml:"enable_placeholder_rss"`
	EnableDemo           bool `yaml:"enable_demo"`

	MessagingWebhookURL   string `yaml:"messaging_webhook_url"`
	MessagingWebhookToken string `yaml:"messaging_webhook_token"`

	JWTSigningKey string `yaml:"jwt_signing_key"`
}

// LoadOverlay reads a YAML file and returns the decoded contents. A
// missing or unreadable file is returned as an error; callers pass the
// result (if any) to FromEnv as a base to override.
func LoadOverlay(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds the effective Config: overlay values (if base is
// non-nil) provide the starting point, then every recognized environment
// variable overrides its corresponding field. Configuration here is
// explicitly environment-based, so env always wins over the overlay.
func FromEnv(base *Config) *Config {
	cfg := &Config{}
	if base != nil {
		*cfg = *base
	}

	cfg.DatabaseURL = getEnvString("DATABASE_URL", cfg.DatabaseURL)
	cfg.APIPort = getEnvInt("API_PORT", orInt(cfg.APIPort, 8080))

	cfg.ImmoScout24.ApifyToken = getEnvString("APIFY_TOKEN", cfg.ImmoScout24.ApifyToken)
	cfg.ImmoScout24.ActorID = getEnvString("APIFY_ACTOR_IMMOSCOUT24", orString(cfg.ImmoScout24.ActorID, "azzouzana~immobilienscout24-de-search-results-scraper-by-search-url"))
	cfg.ImmoScout24.StartURL = getEnvString("IS24_START_URL", cfg.ImmoScout24.StartURL)

	cfg.Immowelt.ApifyToken = getEnvString("APIFY_TOKEN", cfg.Immowelt.ApifyToken)
	cfg.Immowelt.ActorID = getEnvString("APIFY_ACTOR_IMMOWELT", orString(cfg.Immowelt.ActorID, "azzouzana~immowelt-de-search-results-scraper-by-search-url"))
	cfg.Immowelt.StartURL = getEnvString("IMMOWELT_START_URL", cfg.Immowelt.StartURL)

	cfg.Kleinanzeigen.ApifyToken = getEnvString("APIFY_TOKEN", cfg.Kleinanzeigen.ApifyToken)
	cfg.Kleinanzeigen.ActorID = getEnvString("APIFY_ACTOR_KLEINANZEIGEN", orString(cfg.Kleinanzeigen.ActorID, "real_spidery~kleinanzeigen-scraper"))

	if cfg.DefaultFilter.City == "" {
		cfg.DefaultFilter.City = "Berlin"
	}
	cfg.DefaultFilter.City = getEnvString("DEFAULT_FILTER_CITY", cfg.DefaultFilter.City)
	cfg.DefaultFilter.PriceMin = getEnvFloat("DEFAULT_FILTER_PRICE_MIN", orFloat(cfg.DefaultFilter.PriceMin, 500))
	cfg.DefaultFilter.PriceMax = getEnvFloat("DEFAULT_FILTER_PRICE_MAX", orFloat(cfg.DefaultFilter.PriceMax, 1500))
	cfg.DefaultFilter.RoomsMin = getEnvFloat("DEFAULT_FILTER_ROOMS_MIN", orFloat(cfg.DefaultFilter.RoomsMin, 1))
	cfg.DefaultFilter.RoomsMax = getEnvFloat("DEFAULT_FILTER_ROOMS_MAX", orFloat(cfg.DefaultFilter.RoomsMax, 4))
	cfg.DefaultFilter.AreaMin = getEnvFloat("DEFAULT_FILTER_AREA_MIN", orFloat(cfg.DefaultFilter.AreaMin, 30))
	cfg.DefaultFilter.AreaMax = getEnvFloat("DEFAULT_FILTER_AREA_MAX", orFloat(cfg.DefaultFilter.AreaMax, 120))

	cfg.MaxPriceCap = getEnvFloat("MAX_PRICE_CAP", orFloat(cfg.MaxPriceCap, 5000))

	cfg.CheckIntervalNormal = time.Duration(getEnvInt("CHECK_INTERVAL_NORMAL", 30)) * time.Second
	cfg.CheckIntervalQuiet = time.Duration(getEnvInt("CHECK_INTERVAL_QUIET", 300)) * time.Second
	cfg.QuietHoursStart = getEnvInt("QUIET_HOURS_START", orInt(cfg.QuietHoursStart, 23))
	cfg.QuietHoursEnd = getEnvInt("QUIET_HOURS_END", orInt(cfg.QuietHoursEnd, 7))

	cfg.MaxWorkers = getEnvInt("MAX_WORKERS", orInt(cfg.MaxWorkers, 6))
	cfg.CacheTTL = time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second
	cfg.ImageCacheTTL = time.Duration(getEnvInt("IMAGE_CACHE_TTL_SECONDS", 3600)) * time.Second

	cfg.AdapterCooldown = time.Duration(getEnvInt("APIFY_COOLDOWN_SECONDS", 300)) * time.Second
	cfg.AdapterQuietScaling = getEnvFloat("APIFY_QUIET_SCALING", orFloat(cfg.AdapterQuietScaling, 2.0))
	cfg.ApifySyncRun = getEnvBool("APIFY_SYNC_RUN", true)

	cfg.MaxNotifyPerCycle = getEnvInt("MAX_NOTIFY_PER_CYCLE", orInt(cfg.MaxNotifyPerCycle, 8))
	cfg.MaxApartmentsPerJob = getEnvInt("MAX_APARTMENTS_PER_JOB", orInt(cfg.MaxApartmentsPerJob, 15))
	cfg.NotificationThrottle = time.Duration(getEnvInt("NOTIFICATION_THROTTLE_SECONDS", 2)) * time.Second

	cfg.EnableImmoweltLive = getEnvBool("ENABLE_IMMOWELT_LIVE", false)
	cfg.EnableAI = getEnvBool("ENABLE_AI_ANALYSIS", true)
	cfg.EnablePublicOSM = getEnvBool("ENABLE_PUBLIC_OSM", false)
	cfg.EnablePlaceholderRSS = getEnvBool("ENABLE_PLACEHOLDER_RSS", false)
	cfg.EnableDemo = getEnvBool("ENABLE_DEMO", false)

	cfg.MessagingWebhookURL = getEnvString("MESSAGING_WEBHOOK_URL", cfg.MessagingWebhookURL)
	cfg.MessagingWebhookToken = getEnvString("MESSAGING_WEBHOOK_TOKEN", cfg.MessagingWebhookToken)

	cfg.JWTSigningKey = getEnvString("JWT_SIGNING_KEY", cfg.JWTSigningKey)

	return cfg
}

// WorkerCount clamps the configured worker count into [4, 10].
func (c *Config) WorkerCount() int {
	n := c.MaxWorkers
	if n < 4 {
		n = 4
	}
	if n > 10 {
		n = 10
	}
	return n
}

// IsQuietHour reports whether hour (0-23, local time) falls in the
// configured quiet-hours window, which may wrap past midnight.
func (c *Config) IsQuietHour(hour int) bool {
	start, end := c.QuietHoursStart, c.QuietHoursEnd
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

func getEnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.ToLower(v) == "true"
	}
	return def
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
