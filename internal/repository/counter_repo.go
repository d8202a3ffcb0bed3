package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CounterRepository hands out daily-sequential numbers for sale and return
// documents. Next is an atomic upsert-increment on (scope, day), so two
// transactions drawing a number concurrently always see distinct values —
// this replaces counting today's rows, which races under concurrency.
type CounterRepository interface {
	Next(ctx context.Context, scope string, day time.Time) (int64, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) Next(ctx context.Context, scope string, day time.Time) (int64, error) {
	var value int64
	err := GetDB(ctx, r.db).Raw(`
		INSERT INTO daily_counters (scope, day, value)
		VALUES (?, ?, 1)
		ON CONFLICT (scope, day)
		DO UPDATE SET value = daily_counters.value + 1
		RETURNING value
	`, scope, day.Format("20060102")).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}
