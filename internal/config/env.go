package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes environment overrides, e.g. JOURNAL_MONGO_URI.
const EnvPrefix = "JOURNAL"

// envOverrides carries secrets and endpoints that deployments inject through
// the environment instead of the YAML file.
type envOverrides struct {
	Port                int    `envconfig:"PORT"`
	Env                 string `envconfig:"ENV"`
	DBDriver            string `envconfig:"DB_DRIVER"`
	MongoURI            string `envconfig:"MONGO_URI"`
	DSN                 string `envconfig:"DSN"`
	RedisURL            string `envconfig:"REDIS_URL"`
	JWTSecret           string `envconfig:"JWT_SECRET"`
	LogDir              string `envconfig:"LOG_DIR"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey     string `envconfig:"ANTHROPIC_API_KEY"`
	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
}

func applyEnvOverrides(cfg *AppConfig) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment variables: %w", err)
	}

	if env.Port != 0 {
		cfg.Port = env.Port
	}
	if v := strings.TrimSpace(env.Env); v != "" {
		cfg.Env = normalizeEnv(v)
	}
	if v := strings.TrimSpace(env.DBDriver); v != "" {
		cfg.Database.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env.MongoURI); v != "" {
		cfg.Database.MongoURI = v
	}
	if v := strings.TrimSpace(env.DSN); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(env.RedisURL); v != "" {
		cfg.Redis.URL = normalizeRedisRawURL(v)
		cfg.Redis.Enabled = true
	}
	if v := strings.TrimSpace(env.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(env.LogDir); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(env.OpenAIAPIKey); v != "" {
		setProviderKey(cfg, ProviderOpenAI, v)
	}
	if v := strings.TrimSpace(env.AnthropicAPIKey); v != "" {
		setProviderKey(cfg, ProviderAnthropic, v)
	}
	if v := strings.TrimSpace(env.StripeSecretKey); v != "" {
		cfg.Billing.StripeSecretKey = v
	}
	if v := strings.TrimSpace(env.StripeWebhookSecret); v != "" {
		cfg.Billing.WebhookSecret = v
	}
	return nil
}

// setProviderKey fills the key of every provider of the given type, adding a
// default provider entry when none is configured.
func setProviderKey(cfg *AppConfig, providerType, key string) {
	found := false
	for i := range cfg.AI.Providers {
		if cfg.AI.Providers[i].Type == providerType {
			cfg.AI.Providers[i].APIKey = key
			found = true
		}
	}
	if !found {
		cfg.AI.Providers = append(cfg.AI.Providers, AIProvider{
			ID:      providerType,
			Type:    providerType,
			APIKey:  key,
			Enabled: true,
		})
	}
}
