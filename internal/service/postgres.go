package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"breakretest-go/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PostgresStore implements SignalStore and the watchlist on PostgreSQL
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&model.ScanResult{}, &model.ScanExecution{}, &model.WatchlistItem{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("✅ PostgreSQL connected successfully")
	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresStore) InsertSignal(ctx context.Context, result *model.ScanResult) error {
	if err := p.db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

func (p *PostgresStore) ExistsSimilar(ctx context.Context, q model.SimilarSignalQuery) (bool, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&model.ScanResult{}).
		Where("user_id = ? AND symbol = ? AND timeframe = ? AND pattern_type = ?", q.UserID, q.Symbol, q.Timeframe, q.PatternType).
		Where("level_price BETWEEN ? AND ?", q.PriceLow, q.PriceHigh).
		Where("created_at >= ?", q.Since).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check similar signal: %w", err)
	}
	return count > 0, nil
}

func (p *PostgresStore) InsertExecution(ctx context.Context, execution *model.ScanExecution) error {
	if err := p.db.WithContext(ctx).Create(execution).Error; err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListSignals(ctx context.Context, filter model.SignalFilter) ([]model.ScanResult, error) {
	order := "created_at ASC"
	if filter.NewestFirst {
		order = "created_at DESC"
	}

	query := p.scopeSignals(ctx, filter).Order(order)
	if filter.Skip > 0 {
		query = query.Offset(filter.Skip)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var results []model.ScanResult
	if err := query.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to find signals: %w", err)
	}
	return results, nil
}

func (p *PostgresStore) CountSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	var count int64
	if err := p.scopeSignals(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

func (p *PostgresStore) DeleteSignals(ctx context.Context, filter model.SignalFilter) (int64, error) {
	// the 1 = 1 condition in scopeSignals lets an unfiltered clear pass gorm global-delete protection
	result := p.scopeSignals(ctx, filter).Delete(&model.ScanResult{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete signals: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (p *PostgresStore) LastExecution(ctx context.Context, userID int64) (*model.ScanExecution, error) {
	var execution model.ScanExecution
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&execution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last execution: %w", err)
	}
	return &execution, nil
}

func (p *PostgresStore) CountExecutions(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Model(&model.ScanExecution{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}

// ListActive implements WatchlistReader
func (p *PostgresStore) ListActive(ctx context.Context, userID int64) ([]model.WatchlistItem, error) {
	query := p.db.WithContext(ctx).Where("is_active = ?", true)
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}

	var items []model.WatchlistItem
	if err := query.Order("user_id, added_at").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	return items, nil
}

// AddSymbol upserts an active watchlist entry
func (p *PostgresStore) AddSymbol(ctx context.Context, userID int64, symbol string, timeframes []string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	item := model.WatchlistItem{
		UserID:     userID,
		Symbol:     symbol,
		Timeframes: timeframes,
		IsActive:   true,
		AddedAt:    time.Now().UTC(),
	}

	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"timeframes", "is_active"}),
	}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add symbol: %w", err)
	}
	return nil
}

// RemoveSymbol deactivates a watchlist entry
func (p *PostgresStore) RemoveSymbol(ctx context.Context, userID int64, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	err := p.db.WithContext(ctx).Model(&model.WatchlistItem{}).
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to remove symbol: %w", err)
	}
	return nil
}

// SeedDefaults adds default symbols for a user if the watchlist table is empty
func (p *PostgresStore) SeedDefaults(ctx context.Context, userID int64, symbols, timeframes []string) error {
	if userID == 0 || len(symbols) == 0 {
		return nil
	}

	var count int64
	if err := p.db.WithContext(ctx).Model(&model.WatchlistItem{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check watchlist count: %w", err)
	}
	if count > 0 {
		return nil
	}

	log.Printf("🌱 Seeding default watchlist for user %d...", userID)
	for _, s := range symbols {
		if err := p.AddSymbol(ctx, userID, s, timeframes); err != nil {
			log.Printf("⚠️ Failed to seed %s: %v", s, err)
		}
	}
	return nil
}

func (p *PostgresStore) scopeSignals(ctx context.Context, f model.SignalFilter) *gorm.DB {
	query := p.db.WithContext(ctx).Model(&model.ScanResult{}).Where("1 = 1")
	if f.UserID != 0 {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.PatternType != "" {
		query = query.Where("pattern_type = ?", f.PatternType)
	}
	if len(f.IDs) > 0 {
		query = query.Where("id IN ?", f.IDs)
	}
	if !f.CreatedBefore.IsZero() {
		query = query.Where("created_at < ?", f.CreatedBefore)
	}
	if !f.CreatedSince.IsZero() {
		query = query.Where("created_at >= ?", f.CreatedSince)
	}
	return query
}
