package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medicine is the drug catalog entry shared by every pharmacy; stock lives in
// InventoryBatch rows, never here.
type Medicine struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_medicine_identity" json:"name"`
	GenericName  string    `gorm:"type:varchar(255)" json:"generic_name"`
	Manufacturer string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_medicine_identity" json:"manufacturer"`
	Description  string    `gorm:"type:text" json:"description"`
	DosageForm   string    `gorm:"type:varchar(100)" json:"dosage_form"` // tablet, capsule, syrup, ...
	Strength     string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_medicine_identity" json:"strength"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (m *Medicine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
