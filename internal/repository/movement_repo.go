package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementRepository appends and reads the immutable stock movement ledger.
// There is deliberately no Update or Delete: a movement row is never touched
// after it is written.
type MovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	ListByBatch(ctx context.Context, batchID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
	SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}

type movementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *movementRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{}).Where("inventory_batch_id = ?", batchID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}

func (r *movementRepository) SumByBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	var sum struct {
		Total int64
	}
	err := GetDB(ctx, r.db).Model(&model.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0) as total").
		Where("inventory_batch_id = ?", batchID).
		Scan(&sum).Error
	return sum.Total, err
}
