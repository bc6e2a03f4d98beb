package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"breakretest-go/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SymbolManager is the MongoDB watchlist
type SymbolManager struct {
	collection *mongo.Collection
}

func NewSymbolManager(db *mongo.Database) *SymbolManager {
	return &SymbolManager{
		collection: db.Collection("watchlist_items"),
	}
}

// SeedDefaults adds default symbols for a user if the watchlist is empty
func (sm *SymbolManager) SeedDefaults(ctx context.Context, userID int64, symbols, timeframes []string) error {
	if userID == 0 || len(symbols) == 0 {
		return nil
	}

	count, err := sm.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to check watchlist count: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Printf("🌱 Seeding default watchlist for user %d...", userID)
	for _, s := range symbols {
		if err := sm.AddSymbol(ctx, userID, s, timeframes); err != nil {
			log.Printf("⚠️ Failed to seed %s: %v", s, err)
		}
	}
	return nil
}

// AddSymbol adds a symbol to the user's watchlist or reactivates it
func (sm *SymbolManager) AddSymbol(ctx context.Context, userID int64, symbol string, timeframes []string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	filter := bson.M{"user_id": userID, "symbol": symbol}
	update := bson.M{
		"$set": bson.M{
			"user_id":    userID,
			"symbol":     symbol,
			"timeframes": timeframes,
			"is_active":  true,
		},
		"$setOnInsert": bson.M{
			"added_at": time.Now().UTC(),
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := sm.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to add symbol: %w", err)
	}

	log.Printf("✅ Added %s to watchlist of user %d", symbol, userID)
	return nil
}

// RemoveSymbol deactivates a symbol in the user's watchlist
func (sm *SymbolManager) RemoveSymbol(ctx context.Context, userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	filter := bson.M{"user_id": userID, "symbol": symbol}
	update := bson.M{"$set": bson.M{"is_active": false}}
	if _, err := sm.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to remove symbol: %w", err)
	}

	log.Printf("🗑️ Removed %s from watchlist of user %d", symbol, userID)
	return nil
}

// ListActive returns active items for a user, or for every user when userID is 0
func (sm *SymbolManager) ListActive(ctx context.Context, userID int64) ([]model.WatchlistItem, error) {
	filter := bson.M{"is_active": true}
	if userID != 0 {
		filter["user_id"] = userID
	}

	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}, {Key: "added_at", Value: 1}})
	cursor, err := sm.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer cursor.Close(ctx)

	var items []model.WatchlistItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode watchlist: %w", err)
	}
	return items, nil
}
