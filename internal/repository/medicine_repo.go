package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicineRepository interface {
	Create(ctx context.Context, medicine *model.Medicine) error
	Update(ctx context.Context, medicine *model.Medicine) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error)
	ExistsByIdentity(ctx context.Context, name, manufacturer, strength string) (bool, error)
	List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error)
}

type medicineRepository struct {
	db *gorm.DB
}

func NewMedicineRepository(db *gorm.DB) MedicineRepository {
	return &medicineRepository{db: db}
}

func (r *medicineRepository) Create(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Create(medicine).Error
}

func (r *medicineRepository) Update(ctx context.Context, medicine *model.Medicine) error {
	return GetDB(ctx, r.db).Save(medicine).Error
}

func (r *medicineRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Medicine, error) {
	var medicine model.Medicine
	if err := GetDB(ctx, r.db).First(&medicine, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &medicine, nil
}

func (r *medicineRepository) ExistsByIdentity(ctx context.Context, name, manufacturer, strength string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Medicine{}).
		Where("name = ? AND manufacturer = ? AND strength = ?", name, manufacturer, strength).
		Count(&count).Error
	return count > 0, err
}

func (r *medicineRepository) List(ctx context.Context, page, limit int, search string) ([]model.Medicine, int64, error) {
	var medicines []model.Medicine
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Medicine{})
	if search != "" {
		db = db.Where("name LIKE ? OR generic_name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&medicines).Error; err != nil {
		return nil, 0, err
	}

	return medicines, total, nil
}
