package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role constants. STAFF is tied to a single pharmacy, MANAGER to a managed
// set via pharmacy_managers, ADMIN sees everything.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// User represents an authenticated operator of the system.
type User struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username           string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone              string         `gorm:"type:varchar(20)" json:"phone"`
	Password           string         `gorm:"type:varchar(255);not null" json:"-"`
	Role               string         `gorm:"type:varchar(20);not null" json:"role"`
	AssignedPharmacyID *uuid.UUID     `gorm:"type:uuid;index" json:"assigned_pharmacy_id"`
	AssignedPharmacy   *Pharmacy      `gorm:"foreignKey:AssignedPharmacyID" json:"assigned_pharmacy,omitempty"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
