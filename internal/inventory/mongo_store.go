package inventory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clinic-inventory-api-server/internal/models"
)

// MongoStore persists items and historical records in MongoDB, one
// collection per kind. Decoding always yields fresh values, so reads never
// alias what later writes mutate.
type MongoStore struct {
	DB *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{DB: db}
}

func identityFilter(kind Kind, id Identity) bson.M {
	filter := bson.M{"name": id.Name}
	if kind == Vaccine {
		filter["brand"] = id.Brand
	}
	return filter
}

func (s *MongoStore) FindItem(ctx context.Context, kind Kind, id Identity) (*models.Item, error) {
	var item models.Item
	err := s.DB.Collection(kind.Collection()).FindOne(ctx, identityFilter(kind, id)).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoStore) FindItemByID(ctx context.Context, kind Kind, id string) (*models.Item, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var item models.Item
	err = s.DB.Collection(kind.Collection()).FindOne(ctx, bson.M{"_id": oid}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *MongoStore) ListItems(ctx context.Context, kind Kind, nameFilter string) ([]models.Item, error) {
	filter := bson.M{}
	if nameFilter != "" {
		filter["name"] = bson.M{"$regex": nameFilter, "$options": "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.DB.Collection(kind.Collection()).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.Item
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

func (s *MongoStore) InsertItem(ctx context.Context, kind Kind, item *models.Item) (string, error) {
	result, err := s.DB.Collection(kind.Collection()).InsertOne(ctx, item)
	if err != nil {
		return "", err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid
	}
	return item.ID.Hex(), nil
}

// ReplaceLots overwrites one parent's whole lot list in a single update.
// Atomic with respect to that parent only; the ledger compensates across
// parents.
func (s *MongoStore) ReplaceLots(ctx context.Context, kind Kind, itemID string, lots []models.Lot) error {
	oid, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.DB.Collection(kind.Collection()).UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"lots": lots, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) RemoveItem(ctx context.Context, kind Kind, itemID string) error {
	oid, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return ErrNotFound
	}
	result, err := s.DB.Collection(kind.Collection()).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) AppendRecord(ctx context.Context, kind Kind, rec *models.HistoricalRecord) (string, error) {
	result, err := s.DB.Collection(kind.HistoryCollection()).InsertOne(ctx, rec)
	if err != nil {
		return "", err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid
	}
	return rec.ID.Hex(), nil
}

func (s *MongoStore) ListRecords(ctx context.Context, kind Kind, filter RecordFilter) ([]models.HistoricalRecord, error) {
	query := bson.M{}
	if filter.DispenseKind != "" {
		query["dispenseKind"] = filter.DispenseKind
	}
	timeRange := bson.M{}
	if filter.From != nil {
		timeRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		timeRange["$lte"] = *filter.To
	}
	if len(timeRange) > 0 {
		query["timestamp"] = timeRange
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := s.DB.Collection(kind.HistoryCollection()).Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.HistoricalRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.HistoricalRecord{}
	}
	return records, nil
}
