package book

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
	"github.com/ctenarsky-denik/journal/internal/pkg/pagination"
	"github.com/ctenarsky-denik/journal/internal/pkg/response"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// Repository persists books. Every lookup is scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, b *models.BookModel) error
	Get(ctx context.Context, userID, id string) (*models.BookModel, error)
	List(ctx context.Context, userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error)
	Count(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, userID, id string, c Changes) (*models.BookModel, error)
	Delete(ctx context.Context, userID, id string) error
}

// MemoryRepository backs the memory driver and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	books map[string]models.BookModel
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{books: make(map[string]models.BookModel), now: time.Now}
}

func (r *MemoryRepository) Create(_ context.Context, b *models.BookModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == "" {
		b.ID = models.NewID()
	}
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.books[b.ID] = *b
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, userID, id string) (*models.BookModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) List(_ context.Context, userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error) {
	r.mu.RLock()
	owned := make([]models.BookModel, 0)
	for _, b := range r.books {
		if b.UserID == userID {
			owned = append(owned, b)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID < owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	total := int64(len(owned))
	start := q.Offset()
	if start > len(owned) {
		start = len(owned)
	}
	end := start + q.Size
	if end > len(owned) {
		end = len(owned)
	}
	return owned[start:end], pagination.Meta(total, q), nil
}

func (r *MemoryRepository) Count(_ context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, b := range r.books {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Update(_ context.Context, userID, id string, c Changes) (*models.BookModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	c.applyTo(&b)
	b.UpdatedAt = r.now()
	r.books[id] = b
	return &b, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(r.books, id)
	return nil
}

// MongoRepository stores books as documents.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collection), now: time.Now}
}

func (r *MongoRepository) Create(ctx context.Context, b *models.BookModel) error {
	if b.ID == "" {
		b.ID = models.NewID()
	}
	now := r.now()
	b.CreatedAt, b.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, userID, id string) (*models.BookModel, error) {
	var b models.BookModel
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &b, nil
}

func (r *MongoRepository) List(ctx context.Context, userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error) {
	filter := bson.M{"userId": userID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("count books: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Offset())).
		SetLimit(int64(q.Size))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list books: %w", err)
	}
	books := make([]models.BookModel, 0, q.Size)
	if err := cur.All(ctx, &books); err != nil {
		return nil, response.Pagination{}, fmt.Errorf("decode books: %w", err)
	}
	return books, pagination.Meta(total, q), nil
}

func (r *MongoRepository) Count(ctx context.Context, userID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (r *MongoRepository) Update(ctx context.Context, userID, id string, c Changes) (*models.BookModel, error) {
	set := bson.M{"updatedAt": r.now()}
	for _, f := range c.fields() {
		set[f.bson] = f.value
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var b models.BookModel
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "userId": userID}, bson.M{"$set": set}, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return &b, nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GormRepository stores books in the books table.
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db, now: time.Now}
}

func (r *GormRepository) Create(ctx context.Context, b *models.BookModel) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *GormRepository) Get(ctx context.Context, userID, id string) (*models.BookModel, error) {
	var b models.BookModel
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", err)
	}
	return &b, nil
}

func (r *GormRepository) List(ctx context.Context, userID string, q pagination.Query) ([]models.BookModel, response.Pagination, error) {
	books := make([]models.BookModel, 0, q.Size)
	query := r.db.WithContext(ctx).Model(&models.BookModel{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC")
	meta, err := pagination.Paginate(query, q, &books)
	if err != nil {
		return nil, response.Pagination{}, fmt.Errorf("list books: %w", err)
	}
	return books, meta, nil
}

func (r *GormRepository) Count(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.BookModel{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

func (r *GormRepository) Update(ctx context.Context, userID, id string, c Changes) (*models.BookModel, error) {
	updates := map[string]any{"updated_at": r.now()}
	for _, f := range c.fields() {
		updates[f.column] = f.value
	}
	res := r.db.WithContext(ctx).Model(&models.BookModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update book: %w", res.Error)
	}
	return r.Get(ctx, userID, id)
}

func (r *GormRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.BookModel{})
	if res.Error != nil {
		return fmt.Errorf("delete book: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
