package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Pharmacy represents a single store location owned by the platform tenant.
// Managers are linked through the pharmacy_managers join table and drive
// the MANAGER pharmacy scope.
type Pharmacy struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Location  string         `gorm:"type:varchar(255);not null" json:"location"`
	Phone     string         `gorm:"type:varchar(20)" json:"phone"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	Creator   *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Managers  []User         `gorm:"many2many:pharmacy_managers" json:"managers,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Pharmacy) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
