package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at configPath, applies JOURNAL_* environment
// overrides and validates the result.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into an AppConfig. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Driver:        defaultDBDriver,
			MongoURI:      defaultMongoURI,
			MongoDatabase: defaultMongoDatabase,
			Host:          defaultDBHost,
			Port:          defaultDBPort,
			User:          defaultDBUser,
			Password:      defaultDBPassword,
			Name:          defaultDBName,
			Charset:       defaultDBCharset,
			ParseTime:     true,
			Loc:           defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
		},
		Cache: CacheConfig{
			Driver:    defaultCacheDriver,
			BookTTL:   defaultBookCacheTTL,
			AuthorTTL: defaultAuthorCacheTTL,
		},
		AI: AIConfig{
			Models: AIModels{
				Cheap:   defaultCheapModel,
				Medium:  defaultMediumModel,
				Premium: defaultPremiumModel,
			},
			AttemptTimeout: defaultAttemptTimeout,
			MaxNoteChars:   defaultMaxNoteChars,
		},
		Billing: BillingConfig{Prices: map[string]string{}},
		Tiers:   map[string]TierOverride{},
	}
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.LogDir); v != "" {
		cfg.Paths.Logs = v
	}

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	}

	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(raw.TZ); v != "" {
		cfg.Timezone = v
	}

	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw.Database)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw.Redis)
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.Redis.URL = v
		cfg.Redis.Enabled = true
	}

	cache, err := applyRawCacheConfig(cfg.Cache, raw.Cache)
	if err != nil {
		return err
	}
	cfg.Cache = cache

	ai, err := applyRawAIConfig(cfg.AI, raw.AI)
	if err != nil {
		return err
	}
	cfg.AI = ai

	cfg.Billing = applyRawBillingConfig(cfg.Billing, raw.Billing)
	for name, tier := range raw.Tiers {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		override := TierOverride{}
		if tier.MonthlyAICredits != nil {
			v := *tier.MonthlyAICredits
			override.MonthlyAICredits = &v
		}
		cfg.Tiers[key] = override
	}

	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.Paths.Logs = strings.TrimSpace(cfg.Paths.Logs)
	cfg.Env = normalizeEnv(cfg.Env)
	return nil
}

func applyRawDatabaseConfig(cfg DatabaseRuntimeConfig, raw rawDatabaseConfig) DatabaseRuntimeConfig {
	if v := strings.TrimSpace(raw.Driver); v != "" {
		cfg.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.MongoURI); v != "" {
		cfg.MongoURI = v
	}
	if v := strings.TrimSpace(raw.MongoDatabase); v != "" {
		cfg.MongoDatabase = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.User); v != "" {
		cfg.User = v
	}
	if raw.Password != "" {
		cfg.Password = raw.Password
	}
	if v := strings.TrimSpace(raw.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Charset); v != "" {
		cfg.Charset = v
	}
	if raw.ParseTime != nil {
		cfg.ParseTime = *raw.ParseTime
	}
	if v := strings.TrimSpace(raw.Loc); v != "" {
		cfg.Loc = v
	}
	if raw.Params != nil {
		cfg.Params = copyStringMap(raw.Params)
	}
	return cfg
}

func applyRawRedisConfig(cfg RedisRuntimeConfig, raw rawRedisConfig) RedisRuntimeConfig {
	if raw != (rawRedisConfig{}) {
		cfg.Enabled = true
	}
	if v := strings.TrimSpace(raw.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Host); v != "" {
		cfg.Host = v
	}
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	if v := strings.TrimSpace(raw.Username); v != "" {
		cfg.Username = v
	}
	if raw.Password != "" {
		cfg.Password = raw.Password
	}
	if raw.DB != nil {
		cfg.DB = *raw.DB
	}
	if raw.TLS != nil {
		cfg.TLS = *raw.TLS
	}
	return cfg
}

func applyRawCacheConfig(cfg CacheConfig, raw rawCacheConfig) (CacheConfig, error) {
	if v := strings.TrimSpace(raw.Driver); v != "" {
		cfg.Driver = strings.ToLower(v)
	}
	if ttl, ok, err := parseDuration("cache.book_ttl", raw.BookTTL); err != nil {
		return cfg, err
	} else if ok {
		cfg.BookTTL = ttl
	}
	if ttl, ok, err := parseDuration("cache.author_ttl", raw.AuthorTTL); err != nil {
		return cfg, err
	} else if ok {
		cfg.AuthorTTL = ttl
	}
	return cfg, nil
}

func applyRawAIConfig(cfg AIConfig, raw rawAIConfig) (AIConfig, error) {
	if len(raw.Providers) > 0 {
		providers := make([]AIProvider, 0, len(raw.Providers))
		for _, item := range raw.Providers {
			provider := AIProvider{
				ID:       strings.TrimSpace(item.ID),
				Type:     strings.ToLower(strings.TrimSpace(item.Type)),
				APIKey:   strings.TrimSpace(item.APIKey),
				Endpoint: strings.TrimSpace(item.Endpoint),
				Enabled:  true,
			}
			if item.Enabled != nil {
				provider.Enabled = *item.Enabled
			}
			if provider.ID == "" {
				provider.ID = provider.Type
			}
			providers = append(providers, provider)
		}
		cfg.Providers = providers
	}
	if v := strings.TrimSpace(raw.Provider); v != "" {
		cfg.ProviderID = v
	}
	if v := strings.TrimSpace(raw.Models.Cheap); v != "" {
		cfg.Models.Cheap = v
	}
	if v := strings.TrimSpace(raw.Models.Medium); v != "" {
		cfg.Models.Medium = v
	}
	if v := strings.TrimSpace(raw.Models.Premium); v != "" {
		cfg.Models.Premium = v
	}
	if ttl, ok, err := parseDuration("ai.attempt_timeout", raw.AttemptTimeout); err != nil {
		return cfg, err
	} else if ok {
		cfg.AttemptTimeout = ttl
	}
	if raw.MaxNoteChars != 0 {
		cfg.MaxNoteChars = raw.MaxNoteChars
	}
	return cfg, nil
}

func applyRawBillingConfig(cfg BillingConfig, raw rawBillingConfig) BillingConfig {
	if v := strings.TrimSpace(raw.StripeSecretKey); v != "" {
		cfg.StripeSecretKey = v
	}
	if v := strings.TrimSpace(raw.WebhookSecret); v != "" {
		cfg.WebhookSecret = v
	}
	if v := strings.TrimSpace(raw.SuccessURL); v != "" {
		cfg.SuccessURL = v
	}
	if v := strings.TrimSpace(raw.CancelURL); v != "" {
		cfg.CancelURL = v
	}
	for priceID, tier := range raw.Prices {
		id := strings.TrimSpace(priceID)
		name := strings.ToLower(strings.TrimSpace(tier))
		if id != "" && name != "" {
			cfg.Prices[id] = name
		}
	}
	return cfg
}

func parseDuration(field, raw string) (time.Duration, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s %q: %w", field, trimmed, err)
	}
	if d <= 0 {
		return 0, false, fmt.Errorf("invalid %s %q, expected a positive duration", field, trimmed)
	}
	return d, true, nil
}

func validate(cfg *AppConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", cfg.Port)
	}
	switch cfg.Database.Driver {
	case DriverMongo, DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("invalid database.driver %q, expected mongo, mysql or memory", cfg.Database.Driver)
	}
	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", cfg.Database.Port)
	}
	if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", cfg.Redis.Port)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", cfg.Redis.DB)
	}
	switch cfg.Cache.Driver {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid cache.driver %q, expected memory or redis", cfg.Cache.Driver)
	}
	if cfg.AI.MaxNoteChars < 200 {
		return fmt.Errorf("invalid ai.max_note_chars %d, expected >= 200", cfg.AI.MaxNoteChars)
	}
	for _, provider := range cfg.AI.Providers {
		switch provider.Type {
		case ProviderOpenAI, ProviderAnthropic, ProviderOpenAICompatible:
		default:
			return fmt.Errorf("invalid ai provider %q type %q", provider.ID, provider.Type)
		}
	}
	for priceID, tier := range cfg.Billing.Prices {
		switch tier {
		case "basic", "premium":
		default:
			return fmt.Errorf("invalid billing.prices[%s] tier %q, expected basic or premium", priceID, tier)
		}
	}
	for name, override := range cfg.Tiers {
		switch name {
		case "free", "basic", "premium":
		default:
			return fmt.Errorf("unknown tier %q in tiers", name)
		}
		if override.MonthlyAICredits != nil && *override.MonthlyAICredits < 0 {
			return fmt.Errorf("invalid tiers.%s.monthly_ai_credits %d, expected >= 0", name, *override.MonthlyAICredits)
		}
	}
	return nil
}

// ActiveProvider returns the configured provider to use for generation.
func (c AIConfig) ActiveProvider() (AIProvider, bool) {
	want := strings.TrimSpace(c.ProviderID)
	for _, provider := range c.Providers {
		if !provider.Enabled || provider.APIKey == "" {
			continue
		}
		if want == "" || provider.ID == want {
			return provider, true
		}
	}
	return AIProvider{}, false
}

// UsesRedis reports whether a Redis connection is needed.
func (c *AppConfig) UsesRedis() bool {
	return c.Redis.Enabled || c.Cache.Driver == CacheRedis
}

// IsDev reports whether the process runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env != "production"
}
