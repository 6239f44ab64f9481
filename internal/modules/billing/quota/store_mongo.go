package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ctenarsky-denik/journal/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps ledger entries in the users collection.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{coll: db.Collection(collection), now: time.Now}
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*models.UserModel, error) {
	var user models.UserModel
	err := s.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) Create(ctx context.Context, user *models.UserModel) error {
	_, err := s.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return errDuplicateAccount
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *MongoStore) Consume(ctx context.Context, userID string) (*models.UserModel, error) {
	filter := bson.M{
		"_id":                             userID,
		"subscription.aiCreditsRemaining": bson.M{"$gt": 0},
	}
	update := bson.M{
		"$inc": bson.M{"subscription.aiCreditsRemaining": -1},
		"$set": bson.M{"updatedAt": s.now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.UserModel
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.Get(ctx, userID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrNoCredits
	}
	if err != nil {
		return nil, fmt.Errorf("consume credit: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) Apply(ctx context.Context, userID string, patch Patch) (*models.UserModel, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": s.now()}
	for _, f := range patch.fields() {
		set[f.path] = f.value
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.UserModel
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{"$set": set}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("apply subscription patch: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserModel, error) {
	if subscriptionID == "" {
		return nil, ErrAccountNotFound
	}
	var user models.UserModel
	err := s.coll.FindOne(ctx, bson.M{"subscription.stripeSubscriptionId": subscriptionID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by subscription: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) Refill(ctx context.Context, tier Tier, credits int, due, next time.Time) (int64, error) {
	filter := bson.M{
		"subscription.tier":        string(tier),
		"subscription.renewalDate": bson.M{"$lte": due.UTC()},
	}
	update := bson.M{"$set": bson.M{
		"subscription.aiCreditsTotal":     credits,
		"subscription.aiCreditsRemaining": credits,
		"subscription.renewalDate":        next.UTC(),
		"updatedAt":                       s.now(),
	}}
	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("refill %s accounts: %w", tier, err)
	}
	return res.ModifiedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
