package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 3000
	defaultEnv        = "development"

	defaultDBDriver      = DriverMongo
	defaultMongoURI      = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase = "ctenarsky_denik"
	defaultDBHost        = "127.0.0.1"
	defaultDBPort        = 3306
	defaultDBUser        = "root"
	defaultDBPassword    = "password"
	defaultDBName        = "ctenarsky_denik"
	defaultDBCharset     = "utf8mb4"
	defaultDBLoc         = "Local"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379

	defaultCacheDriver    = CacheMemory
	defaultBookCacheTTL   = 24 * time.Hour
	defaultAuthorCacheTTL = 7 * 24 * time.Hour

	defaultAttemptTimeout = 60 * time.Second
	defaultMaxNoteChars   = 8000
	defaultCheapModel     = "gpt-4o-mini"
	defaultMediumModel    = "gpt-4o-mini"
	defaultPremiumModel   = "gpt-4o"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// AI provider types.
const (
	ProviderOpenAI           = "openai"
	ProviderAnthropic        = "anthropic"
	ProviderOpenAICompatible = "openai-compatible"
)
