package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreatePharmacy = "CREATE_PHARMACY"
	ActionUpdatePharmacy = "UPDATE_PHARMACY"
	ActionDeletePharmacy = "DELETE_PHARMACY"
	ActionCreateMedicine = "CREATE_MEDICINE"
	ActionCreateBatch    = "CREATE_INVENTORY_BATCH"
	ActionAdjustStock    = "ADJUST_STOCK"
	ActionCreateSale     = "CREATE_SALE"
	ActionCreateReturn   = "CREATE_SALE_RETURN"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
