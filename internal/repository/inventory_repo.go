package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryFilter narrows batch listings to the caller's reachable pharmacies.
// A nil PharmacyIDs with All=false yields nothing.
type InventoryFilter struct {
	All         bool
	PharmacyIDs []uuid.UUID
	PharmacyID  *uuid.UUID
	Search      string
}

type InventoryRepository interface {
	Create(ctx context.Context, batch *model.InventoryBatch) error
	Update(ctx context.Context, batch *model.InventoryBatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	// FindByIDForUpdate loads the batch holding a row-level lock for the
	// duration of the surrounding transaction, so validate-then-decrement
	// cannot race with a concurrent commit against the same batch.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	ExistsByKey(ctx context.Context, pharmacyID, medicineID uuid.UUID, batchNumber string) (bool, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	List(ctx context.Context, filter InventoryFilter, page, limit int) ([]model.InventoryBatch, int64, error)
	ListLowStock(ctx context.Context, filter InventoryFilter) ([]model.InventoryBatch, error)
	ListExpired(ctx context.Context, filter InventoryFilter, today time.Time) ([]model.InventoryBatch, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, batch *model.InventoryBatch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *inventoryRepository) Update(ctx context.Context, batch *model.InventoryBatch) error {
	return GetDB(ctx, r.db).Save(batch).Error
}

func (r *inventoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.InventoryBatch{}).Error
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var batch model.InventoryBatch
	if err := GetDB(ctx, r.db).Preload("Medicine").First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *inventoryRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	db := GetDB(ctx, r.db)
	// The sqlite dialect used by the test suite has no SELECT ... FOR UPDATE;
	// its single-writer transactions give the same guarantee.
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var batch model.InventoryBatch
	if err := db.Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *inventoryRepository) ExistsByKey(ctx context.Context, pharmacyID, medicineID uuid.UUID, batchNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.InventoryBatch{}).
		Where("pharmacy_id = ? AND medicine_id = ? AND batch_number = ?", pharmacyID, medicineID, batchNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *inventoryRepository) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	return GetDB(ctx, r.db).Model(&model.InventoryBatch{}).Where("id = ?", id).Update("quantity", quantity).Error
}

func (r *inventoryRepository) scoped(ctx context.Context, filter InventoryFilter) *gorm.DB {
	db := GetDB(ctx, r.db).Model(&model.InventoryBatch{})
	if !filter.All {
		db = db.Where("inventory_batches.pharmacy_id IN ?", uuidSlice(filter.PharmacyIDs))
	}
	if filter.PharmacyID != nil {
		db = db.Where("inventory_batches.pharmacy_id = ?", *filter.PharmacyID)
	}
	if filter.Search != "" {
		db = db.Joins("JOIN medicines ON medicines.id = inventory_batches.medicine_id").
			Where("medicines.name LIKE ?", "%"+filter.Search+"%")
	}
	return db
}

func (r *inventoryRepository) List(ctx context.Context, filter InventoryFilter, page, limit int) ([]model.InventoryBatch, int64, error) {
	var batches []model.InventoryBatch
	var total int64

	db := r.scoped(ctx, filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Medicine").Order("inventory_batches.created_at desc").
		Offset(offset).Limit(limit).Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *inventoryRepository) ListLowStock(ctx context.Context, filter InventoryFilter) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	err := r.scoped(ctx, filter).Preload("Medicine").
		Where("quantity <= minimum_stock_level").
		Order("quantity asc").
		Find(&batches).Error
	return batches, err
}

func (r *inventoryRepository) ListExpired(ctx context.Context, filter InventoryFilter, today time.Time) ([]model.InventoryBatch, error) {
	var batches []model.InventoryBatch
	err := r.scoped(ctx, filter).Preload("Medicine").
		Where("expiry_date < ?", today).
		Order("expiry_date asc").
		Find(&batches).Error
	return batches, err
}

// uuidSlice guards against a nil IN-list, which would match every row on some
// dialects instead of none.
func uuidSlice(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
