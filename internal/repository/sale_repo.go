package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleFilter narrows sale listings to the caller's reachable pharmacies and
// an optional date window.
type SaleFilter struct {
	All         bool
	PharmacyIDs []uuid.UUID
	PharmacyID  *uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.SaleItem, error)
	List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.Sale, int64, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit("Items").Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.InventoryBatch").
		Preload("Items.InventoryBatch.Medicine").
		First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindItemByID(ctx context.Context, id uuid.UUID) (*model.SaleItem, error) {
	var item model.SaleItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter, page, limit int) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{})
	if !filter.All {
		db = db.Where("pharmacy_id IN ?", uuidSlice(filter.PharmacyIDs))
	}
	if filter.PharmacyID != nil {
		db = db.Where("pharmacy_id = ?", *filter.PharmacyID)
	}
	if filter.StartDate != nil {
		db = db.Where("created_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("created_at < ?", filter.EndDate.AddDate(0, 0, 1))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Items.InventoryBatch.Medicine").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}
