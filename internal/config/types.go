package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int
	Env            string // "development" | "production"
	Timezone       string
	AllowedOrigins []string
	JWTSecret      string
	Paths          RuntimePathsConfig
	Database       DatabaseRuntimeConfig
	Redis          RedisRuntimeConfig
	Cache          CacheConfig
	AI             AIConfig
	Billing        BillingConfig
	Tiers          map[string]TierOverride
}

type RuntimePathsConfig struct {
	Logs string
}

type DatabaseRuntimeConfig struct {
	Driver        string // mongo | mysql | memory
	MongoURI      string
	MongoDatabase string
	DSN           string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	Charset       string
	ParseTime     bool
	Loc           string
	Params        map[string]string
}

// RedisRuntimeConfig is optional. Enabled is set once any redis key or
// JOURNAL_REDIS_URL is given.
type RedisRuntimeConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	TLS      bool
}

// CacheConfig controls the completion cache backend and entry lifetimes.
type CacheConfig struct {
	Driver    string // memory | redis
	BookTTL   time.Duration
	AuthorTTL time.Duration
}

// AIProvider is one configured inference endpoint.
type AIProvider struct {
	ID       string
	Type     string // openai | anthropic | openai-compatible
	APIKey   string
	Endpoint string
	Enabled  bool
}

// AIModels maps model tiers to provider model identifiers.
type AIModels struct {
	Cheap   string
	Medium  string
	Premium string
}

type AIConfig struct {
	Providers      []AIProvider
	ProviderID     string
	Models         AIModels
	AttemptTimeout time.Duration
	MaxNoteChars   int
}

// BillingConfig carries the payment provider credentials and price table.
type BillingConfig struct {
	StripeSecretKey string
	WebhookSecret   string
	SuccessURL      string
	CancelURL       string
	// Prices maps provider price ids to internal tier names.
	Prices map[string]string
}

// TierOverride adjusts the built-in allotment of a tier.
type TierOverride struct {
	MonthlyAICredits *int
}

type rawAppConfig struct {
	Port               int                      `yaml:"port"`
	Env                string                   `yaml:"env"`
	Timezone           string                   `yaml:"timezone"`
	TZ                 string                   `yaml:"tz"`
	AllowedOrigins     []string                 `yaml:"allowed_origins"`
	CORSAllowedOrigins []string                 `yaml:"cors_allowed_origins"`
	JWTSecret          string                   `yaml:"jwt_secret"`
	Paths              rawPathsConfig           `yaml:"paths"`
	LogDir             string                   `yaml:"log_dir"`
	Database           rawDatabaseConfig        `yaml:"database"`
	Redis              rawRedisConfig           `yaml:"redis"`
	RedisURL           string                   `yaml:"redis_url"`
	Cache              rawCacheConfig           `yaml:"cache"`
	AI                 rawAIConfig              `yaml:"ai"`
	Billing            rawBillingConfig         `yaml:"billing"`
	Tiers              map[string]rawTierConfig `yaml:"tiers"`
}

type rawPathsConfig struct {
	Logs string `yaml:"logs"`
}

type rawDatabaseConfig struct {
	Driver        string            `yaml:"driver"`
	MongoURI      string            `yaml:"mongo_uri"`
	MongoDatabase string            `yaml:"mongo_database"`
	DSN           string            `yaml:"dsn"`
	Host          string            `yaml:"host"`
	Port          int               `yaml:"port"`
	User          string            `yaml:"user"`
	Username      string            `yaml:"username"`
	Password      string            `yaml:"password"`
	Name          string            `yaml:"name"`
	Charset       string            `yaml:"charset"`
	ParseTime     *bool             `yaml:"parse_time"`
	Loc           string            `yaml:"loc"`
	Params        map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	TLS      *bool  `yaml:"tls"`
}

type rawCacheConfig struct {
	Driver    string `yaml:"driver"`
	BookTTL   string `yaml:"book_ttl"`
	AuthorTTL string `yaml:"author_ttl"`
}

type rawAIProvider struct {
	ID       string `yaml:"id"`
	Type     string `yaml:"type"`
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"`
	Enabled  *bool  `yaml:"enabled"`
}

type rawAIConfig struct {
	Providers      []rawAIProvider `yaml:"providers"`
	Provider       string          `yaml:"provider"`
	Models         rawAIModels     `yaml:"models"`
	AttemptTimeout string          `yaml:"attempt_timeout"`
	MaxNoteChars   int             `yaml:"max_note_chars"`
}

type rawAIModels struct {
	Cheap   string `yaml:"cheap"`
	Medium  string `yaml:"medium"`
	Premium string `yaml:"premium"`
}

type rawBillingConfig struct {
	StripeSecretKey string            `yaml:"stripe_secret_key"`
	WebhookSecret   string            `yaml:"webhook_secret"`
	SuccessURL      string            `yaml:"success_url"`
	CancelURL       string            `yaml:"cancel_url"`
	Prices          map[string]string `yaml:"prices"`
}

type rawTierConfig struct {
	MonthlyAICredits *int `yaml:"monthly_ai_credits"`
}
