package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReturnRepository interface {
	Create(ctx context.Context, ret *model.SaleReturn) error
	CreateItem(ctx context.Context, item *model.SaleReturnItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.SaleReturn, error)
	// SumReturnedQuantity totals return_quantity recorded against one sale
	// item across all prior returns; the over-return guard is checked against
	// it inside the committing transaction.
	SumReturnedQuantity(ctx context.Context, saleItemID uuid.UUID) (int64, error)
	List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.SaleReturn, int64, error)
}

type returnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) Create(ctx context.Context, ret *model.SaleReturn) error {
	return GetDB(ctx, r.db).Omit("Items").Create(ret).Error
}

func (r *returnRepository) CreateItem(ctx context.Context, item *model.SaleReturnItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *returnRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.SaleReturn, error) {
	var ret model.SaleReturn
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("OriginalSale").
		First(&ret, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) SumReturnedQuantity(ctx context.Context, saleItemID uuid.UUID) (int64, error) {
	var sum struct {
		Total int64
	}
	err := GetDB(ctx, r.db).Model(&model.SaleReturnItem{}).
		Select("COALESCE(SUM(return_quantity), 0) as total").
		Where("sale_item_id = ?", saleItemID).
		Scan(&sum).Error
	return sum.Total, err
}

func (r *returnRepository) List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.SaleReturn, int64, error) {
	var returns []model.SaleReturn
	var total int64

	db := GetDB(ctx, r.db).Model(&model.SaleReturn{}).
		Joins("JOIN sales ON sales.id = sale_returns.original_sale_id")
	if !filter.All {
		db = db.Where("sales.pharmacy_id IN ?", uuidSlice(filter.PharmacyIDs))
	}
	if filter.PharmacyID != nil {
		db = db.Where("sales.pharmacy_id = ?", *filter.PharmacyID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("OriginalSale").
		Order("sale_returns.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&returns).Error; err != nil {
		return nil, 0, err
	}

	return returns, total, nil
}
