package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementType enum constants
const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
	MovementExpired    = "EXPIRED"
	MovementDamaged    = "DAMAGED"
)

// InventoryBatch is one lot of a medicine held by a pharmacy, identified by
// (pharmacy, medicine, batch_number). Quantity is only ever changed through
// validated deltas inside a transaction, each paired with one StockMovement.
type InventoryBatch struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PharmacyID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity;index" json:"pharmacy_id"`
	Pharmacy          Pharmacy        `gorm:"foreignKey:PharmacyID" json:"-"`
	MedicineID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity;index" json:"medicine_id"`
	Medicine          Medicine        `gorm:"foreignKey:MedicineID" json:"medicine,omitempty"`
	BatchNumber       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_identity" json:"batch_number"`
	Quantity          int             `gorm:"type:int;not null;default:0" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	SellingPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"selling_price"`
	ExpiryDate        time.Time       `gorm:"type:date;not null" json:"expiry_date"`
	ManufactureDate   time.Time       `gorm:"type:date;not null" json:"manufacture_date"`
	Supplier          string          `gorm:"type:varchar(255)" json:"supplier"`
	MinimumStockLevel int             `gorm:"type:int;not null;default:10" json:"minimum_stock_level"`
	CreatedBy         *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (b *InventoryBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsLowStock reports whether the batch sits at or below its reorder threshold.
func (b *InventoryBatch) IsLowStock() bool {
	return b.Quantity <= b.MinimumStockLevel
}

// IsExpired reports whether the batch expiry date has passed relative to now.
func (b *InventoryBatch) IsExpired(now time.Time) bool {
	return b.ExpiryDate.Before(now.Truncate(24 * time.Hour))
}

// StockMovement is one immutable ledger entry per quantity change. Quantity is
// signed: negative for deductions, positive for credits. Summing all movements
// of a batch reconstructs its current quantity net of the initial load.
type StockMovement struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InventoryBatchID uuid.UUID      `gorm:"type:uuid;not null;index" json:"inventory_batch_id"`
	InventoryBatch   InventoryBatch `gorm:"foreignKey:InventoryBatchID" json:"-"`
	MovementType     string         `gorm:"type:varchar(20);not null" json:"movement_type"`
	Quantity         int            `gorm:"type:int;not null" json:"quantity"`
	ReferenceNumber  string         `gorm:"type:varchar(100);index" json:"reference_number"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedBy        *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
