package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"breakretest-go/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	signalsCollection    = "scan_results"
	executionsCollection = "scan_executions"
)

// DatabaseService is the MongoDB SignalStore
type DatabaseService struct {
	client     *mongo.Client
	db         *mongo.Database
	signals    *mongo.Collection
	executions *mongo.Collection
}

func NewDatabaseService(uri, database string) (*DatabaseService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &DatabaseService{
		client:     client,
		db:         db,
		signals:    db.Collection(signalsCollection),
		executions: db.Collection(executionsCollection),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	log.Println("✅ MongoDB connected successfully")
	return s, nil
}

// EnsureIndexes creates the lookup indexes used by the duplicate guard and status queries
func (s *DatabaseService) EnsureIndexes(ctx context.Context) error {
	_, err := s.signals.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "symbol", Value: 1},
			{Key: "timeframe", Value: 1},
			{Key: "pattern_type", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create signal indexes: %w", err)
	}

	_, err = s.executions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create execution indexes: %w", err)
	}
	return nil
}

func (s *DatabaseService) InsertSignal(ctx context.Context, result *model.ScanResult) error {
	if _, err := s.signals.InsertOne(ctx, result); err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	log.Printf("💾 [Database] Saved %s %s %s @ %.8g", result.Symbol, result.Timeframe, result.PatternType, result.LevelPrice)
	return nil
}

func (s *DatabaseService) ExistsSimilar(ctx context.Context, q model.SimilarSignalQuery) (bool, error) {
	filter := bson.M{
		"user_id":      q.UserID,
		"symbol":       q.Symbol,
		"timeframe":    q.Timeframe,
		"pattern_type": q.PatternType,
		"level_price":  bson.M{"$gte": q.PriceLow, "$lte": q.PriceHigh},
		"created_at":   bson.M{"$gte": q.Since},
	}

	count, err := s.signals.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check similar signal: %w", err)
	}
	return count > 0, nil
}

func (s *DatabaseService) InsertExecution(ctx context.Context, execution *model.ScanExecution) error {
	if _, err := s.executions.InsertOne(ctx, execution); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

func (s *DatabaseService) ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.ScanResult, error) {
	order := 1
	if filter.NewestFirst {
		order = -1
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: order}})
	if filter.Skip > 0 {
		opts.SetSkip(int64(filter.Skip))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := s.signals.Find(ctx, signalFilterDoc(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find signals: %w", err)
	}
	defer cursor.Close(ctx)

	var results []model.ScanResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode signals: %w", err)
	}
	return results, nil
}

func (s *DatabaseService) CountSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	count, err := s.signals.CountDocuments(ctx, signalFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

func (s *DatabaseService) DeleteSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	result, err := s.signals.DeleteMany(ctx, signalFilterDoc(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to delete signals: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *DatabaseService) LastExecution(ctx context.Context, userID int64) (*model.ScanExecution, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var execution model.ScanExecution
	err := s.executions.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&execution)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last execution: %w", err)
	}
	return &execution, nil
}

func (s *DatabaseService) CountExecutions(ctx context.Context, userID int64, since time.Time) (int64, error) {
	count, err := s.executions.CountDocuments(ctx, bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *DatabaseService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("🔌 MongoDB connection closed")
	return nil
}

// GetDB returns the MongoDB database instance
func (s *DatabaseService) GetDB() *mongo.Database {
	return s.db
}

func signalFilterDoc(f model.SignalFilter) bson.M {
	doc := bson.M{}
	if f.UserID != 0 {
		doc["user_id"] = f.UserID
	}
	if f.PatternType != "" {
		doc["pattern_type"] = f.PatternType
	}
	if len(f.IDs) > 0 {
		doc["_id"] = bson.M{"$in": f.IDs}
	}

	created := bson.M{}
	if !f.CreatedBefore.IsZero() {
		created["$lt"] = f.CreatedBefore
	}
	if !f.CreatedSince.IsZero() {
		created["$gte"] = f.CreatedSince
	}
	if len(created) > 0 {
		doc["created_at"] = created
	}
	return doc
}
