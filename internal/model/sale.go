package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMethod enum constants
const (
	PaymentCash      = "CASH"
	PaymentCard      = "CARD"
	PaymentInsurance = "INSURANCE"
	PaymentCredit    = "CREDIT"
)

// ReturnReason enum constants
const (
	ReturnReasonExpired         = "EXPIRED"
	ReturnReasonDamaged         = "DAMAGED"
	ReturnReasonWrongItem       = "WRONG_ITEM"
	ReturnReasonCustomerRequest = "CUSTOMER_REQUEST"
	ReturnReasonOther           = "OTHER"
)

// Sale is a committed point-of-sale transaction. It is created atomically with
// its items, the inventory decrements, and the OUT stock movements, and is
// never mutated afterwards — only referenced by later returns.
//
// total_amount = subtotal - discount + tax
// change_amount = amount_paid - total_amount
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PharmacyID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"pharmacy_id"`
	Pharmacy      Pharmacy        `gorm:"foreignKey:PharmacyID" json:"-"`
	SaleNumber    string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sale_number"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string          `gorm:"type:varchar(20)" json:"customer_phone"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'CASH'" json:"payment_method"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"tax"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	ChangeAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"change_amount"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem is one cart line, owned exclusively by its Sale.
type SaleItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	InventoryBatchID uuid.UUID       `gorm:"type:uuid;not null;index" json:"inventory_batch_id"`
	InventoryBatch   InventoryBatch  `gorm:"foreignKey:InventoryBatchID" json:"-"`
	Quantity         int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// SaleReturn reverses part of a prior sale, re-crediting inventory.
type SaleReturn struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	OriginalSaleID uuid.UUID        `gorm:"type:uuid;not null;index" json:"original_sale_id"`
	OriginalSale   Sale             `gorm:"foreignKey:OriginalSaleID" json:"-"`
	ReturnNumber   string           `gorm:"type:varchar(100);uniqueIndex;not null" json:"return_number"`
	Reason         string           `gorm:"type:varchar(20);not null" json:"reason"`
	ReturnAmount   decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"return_amount"`
	Notes          string           `gorm:"type:text" json:"notes"`
	Items          []SaleReturnItem `gorm:"foreignKey:SaleReturnID" json:"items"`
	CreatedBy      *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}

func (r *SaleReturn) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SaleReturnItem records the returned quantity against one original SaleItem.
// Across all returns of a sale, Σ(return_quantity) per sale item never exceeds
// the item's sold quantity.
type SaleReturnItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleReturnID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_return_id"`
	SaleItemID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_item_id"`
	SaleItem       SaleItem        `gorm:"foreignKey:SaleItemID" json:"-"`
	ReturnQuantity int             `gorm:"type:int;not null" json:"return_quantity"`
	ReturnAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"return_amount"`
}

func (i *SaleReturnItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
