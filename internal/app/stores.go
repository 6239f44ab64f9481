package app

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ctenarsky-denik/journal/internal/config"
	"github.com/ctenarsky-denik/journal/internal/database"
	"github.com/ctenarsky-denik/journal/internal/modules/billing/quota"
	"github.com/ctenarsky-denik/journal/internal/modules/content/book"
	"github.com/ctenarsky-denik/journal/internal/modules/processing/ai"
	pkgredis "github.com/ctenarsky-denik/journal/internal/pkg/redis"
)

// Stores are the persistence backends selected by database.driver, plus the
// optional Redis client.
type Stores struct {
	Accounts quota.Store
	Books    book.Repository
	Redis    *pkgredis.Client

	mongo *mongo.Client
	sql   *gorm.DB
	log   *zap.Logger
}

// OpenStores connects the configured backends.
func OpenStores(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Stores, error) {
	s := &Stores{log: logger}

	switch cfg.Database.Driver {
	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.mongo = client
		s.Accounts = quota.NewMongoStore(db, database.UsersCollection)
		s.Books = book.NewMongoRepository(db, database.BooksCollection)
	case config.DriverMySQL:
		db, err := database.ConnectSQL(cfg, true)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.sql = db
		s.Accounts = quota.NewGormStore(db)
		s.Books = book.NewGormRepository(db)
	default:
		logger.Warn("using in-memory storage, data is lost on restart")
		s.Accounts = quota.NewMemoryStore()
		s.Books = book.NewMemoryRepository()
	}

	if cfg.UsesRedis() {
		rc, err := pkgredis.Connect(ctx, cfg.Redis.URLValue())
		if err != nil {
			s.Close(context.Background())
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.Redis = rc
	}
	return s, nil
}

// Ledger builds the quota ledger over the account store. Receipts live in
// Redis when it is available so every instance can redeem them.
func (s *Stores) Ledger(cfg *config.AppConfig, logger *zap.Logger) *quota.Ledger {
	var receipts quota.ReceiptStore = quota.NewMemoryReceipts()
	if s.Redis != nil {
		receipts = quota.NewRedisReceipts(s.Redis)
	}
	return quota.NewLedger(s.Accounts, receipts, quota.NewPlans(creditOverrides(cfg)), logger)
}

// Cache builds the completion cache selected by cache.driver.
func (s *Stores) Cache(cfg *config.AppConfig) ai.Cache {
	if cfg.Cache.Driver == config.CacheRedis && s.Redis != nil {
		return ai.NewRedisCache(s.Redis)
	}
	return ai.NewMemoryCache()
}

// Ping checks every connected backend.
func (s *Stores) Ping(ctx context.Context) map[string]string {
	out := map[string]string{"store": "ok"}
	if err := s.Accounts.Ping(ctx); err != nil {
		out["store"] = err.Error()
	}
	if s.Redis != nil {
		out["redis"] = "ok"
		if err := s.Redis.Ping(ctx); err != nil {
			out["redis"] = err.Error()
		}
	}
	return out
}

// Close releases every connection; errors are logged.
func (s *Stores) Close(ctx context.Context) {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.log.Warn("closing redis", zap.Error(err))
		}
	}
	if s.mongo != nil {
		if err := s.mongo.Disconnect(ctx); err != nil {
			s.log.Warn("closing mongo", zap.Error(err))
		}
	}
	if s.sql != nil {
		if err := database.CloseSQL(s.sql); err != nil {
			s.log.Warn("closing sql", zap.Error(err))
		}
	}
}

func creditOverrides(cfg *config.AppConfig) map[string]int {
	out := make(map[string]int, len(cfg.Tiers))
	for name, override := range cfg.Tiers {
		if override.MonthlyAICredits != nil {
			out[name] = *override.MonthlyAICredits
		}
	}
	return out
}
