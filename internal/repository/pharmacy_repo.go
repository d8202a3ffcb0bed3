package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PharmacyRepository interface {
	Create(ctx context.Context, pharmacy *model.Pharmacy) error
	Update(ctx context.Context, pharmacy *model.Pharmacy) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error)
	List(ctx context.Context, page, limit int) ([]model.Pharmacy, int64, error)
	// ListIDsManagedBy resolves the MANAGER pharmacy scope from the
	// pharmacy_managers join table.
	ListIDsManagedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ReplaceManagers(ctx context.Context, pharmacy *model.Pharmacy, managers []model.User) error
}

type pharmacyRepository struct {
	db *gorm.DB
}

func NewPharmacyRepository(db *gorm.DB) PharmacyRepository {
	return &pharmacyRepository{db: db}
}

func (r *pharmacyRepository) Create(ctx context.Context, pharmacy *model.Pharmacy) error {
	return GetDB(ctx, r.db).Create(pharmacy).Error
}

func (r *pharmacyRepository) Update(ctx context.Context, pharmacy *model.Pharmacy) error {
	return GetDB(ctx, r.db).Save(pharmacy).Error
}

func (r *pharmacyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Pharmacy{}).Error
}

func (r *pharmacyRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Pharmacy, error) {
	var pharmacy model.Pharmacy
	if err := GetDB(ctx, r.db).Preload("Managers").First(&pharmacy, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pharmacy, nil
}

func (r *pharmacyRepository) List(ctx context.Context, page, limit int) ([]model.Pharmacy, int64, error) {
	var pharmacies []model.Pharmacy
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Pharmacy{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Managers").Order("created_at desc").
		Offset(offset).Limit(limit).Find(&pharmacies).Error; err != nil {
		return nil, 0, err
	}

	return pharmacies, total, nil
}

func (r *pharmacyRepository) ListIDsManagedBy(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Table("pharmacy_managers").
		Where("user_id = ?", userID).
		Pluck("pharmacy_id", &ids).Error
	return ids, err
}

func (r *pharmacyRepository) ReplaceManagers(ctx context.Context, pharmacy *model.Pharmacy, managers []model.User) error {
	return GetDB(ctx, r.db).Model(pharmacy).Association("Managers").Replace(managers)
}
