package book

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctenarsky-denik/journal/internal/database"
	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/pkg/pagination"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "books.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return NewGormRepository(db)
}

func newMongoRepository(t *testing.T) *MongoRepository {
	t.Helper()
	uri := os.Getenv("JOURNAL_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("JOURNAL_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("journal_test_" + models.NewID()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return NewMongoRepository(db, database.BooksCollection)
}

func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	first := &models.BookModel{UserID: "u1", Title: "Máj", Author: "Karel Hynek Mácha"}
	require.NoError(t, repo.Create(ctx, first))
	require.NotEmpty(t, first.ID)
	time.Sleep(5 * time.Millisecond)
	second := &models.BookModel{UserID: "u1", Title: "Krakatit"}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, &models.BookModel{UserID: "u2", Title: "Other"}))

	n, err := repo.Count(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	items, meta, err := repo.List(ctx, "u1", pagination.Query{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Krakatit", items[0].Title)
	assert.EqualValues(t, 2, meta.Total)

	_, err = repo.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	summary, source := "Lyrickoepická báseň.", models.SummaryAI
	readAt := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	updated, err := repo.Update(ctx, "u1", first.ID, Changes{Summary: &summary, SummarySource: &source, ReadAt: &readAt})
	require.NoError(t, err)
	assert.Equal(t, summary, updated.Summary)
	assert.Equal(t, models.SummaryAI, updated.SummarySource)
	assert.Equal(t, "Máj", updated.Title)
	require.NotNil(t, updated.ReadAt)
	assert.True(t, readAt.Equal(*updated.ReadAt))

	updated, err = repo.Update(ctx, "u1", first.ID, Changes{ClearReadAt: true})
	require.NoError(t, err)
	assert.Nil(t, updated.ReadAt)

	_, err = repo.Update(ctx, "u2", first.ID, Changes{Summary: &summary})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "u1", first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, "u1", first.ID), ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	exerciseRepository(t, NewMemoryRepository())
}

func TestGormRepository(t *testing.T) {
	exerciseRepository(t, newSQLiteRepository(t))
}

func TestMongoRepository(t *testing.T) {
	exerciseRepository(t, newMongoRepository(t))
}
