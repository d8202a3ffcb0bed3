package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateBatchRequest struct {
	PharmacyID        string          `json:"pharmacy_id" binding:"required"`
	MedicineID        string          `json:"medicine_id" binding:"required"`
	BatchNumber       string          `json:"batch_number" binding:"required"`
	Quantity          int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice         decimal.Decimal `json:"unit_price" binding:"required"`
	SellingPrice      decimal.Decimal `json:"selling_price" binding:"required"`
	ExpiryDate        string          `json:"expiry_date" binding:"required"`      // YYYY-MM-DD
	ManufactureDate   string          `json:"manufacture_date" binding:"required"` // YYYY-MM-DD
	Supplier          string          `json:"supplier"`
	MinimumStockLevel int             `json:"minimum_stock_level"`
}

type AdjustStockRequest struct {
	InventoryBatchID string `json:"inventory_batch_id" binding:"required"`
	MovementType     string `json:"movement_type" binding:"required,oneof=IN OUT ADJUSTMENT EXPIRED DAMAGED"`
	Quantity         int    `json:"quantity" binding:"gte=0"`
	ReferenceNumber  string `json:"reference_number"`
	Notes            string `json:"notes"`
}

type ListBatchesFilter struct {
	PharmacyID string
	Search     string
	Page       int
	Limit      int
}

// InventoryService owns the inventory ledger: batch creation with its initial
// IN movement, listings, and manual stock adjustments. Every quantity change
// pairs with exactly one StockMovement inside one transaction.
type InventoryService interface {
	CreateBatch(ctx context.Context, actor Actor, scope PharmacyScope, req CreateBatchRequest) (*model.InventoryBatch, error)
	GetBatch(ctx context.Context, scope PharmacyScope, id string) (*model.InventoryBatch, error)
	ListBatches(ctx context.Context, scope PharmacyScope, filter ListBatchesFilter) ([]model.InventoryBatch, int64, error)
	AdjustStock(ctx context.Context, actor Actor, scope PharmacyScope, req AdjustStockRequest) (*model.InventoryBatch, error)
	LowStockAlerts(ctx context.Context, scope PharmacyScope) ([]model.InventoryBatch, error)
	ExpiredBatches(ctx context.Context, scope PharmacyScope) ([]model.InventoryBatch, error)
	ListMovements(ctx context.Context, scope PharmacyScope, batchID string, page, limit int) ([]model.StockMovement, int64, error)
}

type inventoryService struct {
	inventoryRepo repository.InventoryRepository
	movementRepo  repository.MovementRepository
	medicineRepo  repository.MedicineRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewInventoryService(
	inventoryRepo repository.InventoryRepository,
	movementRepo repository.MovementRepository,
	medicineRepo repository.MedicineRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) InventoryService {
	return &inventoryService{
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		medicineRepo:  medicineRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func (s *inventoryService) CreateBatch(ctx context.Context, actor Actor, scope PharmacyScope, req CreateBatchRequest) (*model.InventoryBatch, error) {
	pharmacyID, err := uuid.Parse(req.PharmacyID)
	if err != nil {
		return nil, apperror.Validation("pharmacy_id", "invalid pharmacy id")
	}
	if !scope.Contains(pharmacyID) {
		return nil, apperror.NotFound("pharmacy_id", "pharmacy not found or not accessible")
	}

	medicineID, err := uuid.Parse(req.MedicineID)
	if err != nil {
		return nil, apperror.Validation("medicine_id", "invalid medicine id")
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return nil, apperror.Validation("expiry_date", "invalid date, expected YYYY-MM-DD")
	}
	manufacture, err := time.Parse("2006-01-02", req.ManufactureDate)
	if err != nil {
		return nil, apperror.Validation("manufacture_date", "invalid date, expected YYYY-MM-DD")
	}
	if !expiry.After(manufacture) {
		return nil, apperror.Validation("expiry_date", "expiry date must be after manufacture date")
	}
	if req.SellingPrice.LessThanOrEqual(req.UnitPrice) {
		return nil, apperror.Validation("selling_price", "selling price must be greater than unit price")
	}

	if _, err := s.medicineRepo.FindByID(ctx, medicineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("medicine_id", "medicine not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	exists, err := s.inventoryRepo.ExistsByKey(ctx, pharmacyID, medicineID, req.BatchNumber)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("batch_number", "inventory batch with this pharmacy, medicine, and batch number already exists")
	}

	minStock := req.MinimumStockLevel
	if minStock <= 0 {
		minStock = 10
	}

	actorID := actor.ID
	batch := &model.InventoryBatch{
		PharmacyID:        pharmacyID,
		MedicineID:        medicineID,
		BatchNumber:       req.BatchNumber,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		SellingPrice:      req.SellingPrice,
		ExpiryDate:        expiry,
		ManufactureDate:   manufacture,
		Supplier:          req.Supplier,
		MinimumStockLevel: minStock,
		CreatedBy:         &actorID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.inventoryRepo.Create(txCtx, batch); err != nil {
			return fmt.Errorf("failed to create inventory batch: %w", err)
		}

		movement := &model.StockMovement{
			InventoryBatchID: batch.ID,
			MovementType:     model.MovementIn,
			Quantity:         batch.Quantity,
			ReferenceNumber:  "INITIAL-" + batch.ID.String(),
			Notes:            "Initial stock entry",
			CreatedBy:        &actorID,
		}
		if err := s.movementRepo.Create(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record initial stock movement: %w", err)
		}

		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func (s *inventoryService) GetBatch(ctx context.Context, scope PharmacyScope, id string) (*model.InventoryBatch, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid inventory batch id")
	}

	batch, err := s.inventoryRepo.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("id", "inventory batch not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !scope.Contains(batch.PharmacyID) {
		return nil, apperror.NotFound("id", "inventory batch not found")
	}

	return batch, nil
}

func (s *inventoryService) ListBatches(ctx context.Context, scope PharmacyScope, filter ListBatchesFilter) ([]model.InventoryBatch, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := scope.InventoryFilter()
	repoFilter.Search = filter.Search
	if filter.PharmacyID != "" {
		pid, err := uuid.Parse(filter.PharmacyID)
		if err != nil {
			return nil, 0, apperror.Validation("pharmacy_id", "invalid pharmacy id")
		}
		repoFilter.PharmacyID = &pid
	}

	return s.inventoryRepo.List(ctx, repoFilter, filter.Page, filter.Limit)
}

// AdjustStock applies a manual stock correction. IN adds, OUT/EXPIRED/DAMAGED
// subtract, ADJUSTMENT sets the absolute quantity. Whatever the type, the
// paired StockMovement always records the signed delta, so summing a batch's
// movements still reconstructs its quantity.
func (s *inventoryService) AdjustStock(ctx context.Context, actor Actor, scope PharmacyScope, req AdjustStockRequest) (*model.InventoryBatch, error) {
	batchID, err := uuid.Parse(req.InventoryBatchID)
	if err != nil {
		return nil, apperror.Validation("inventory_batch_id", "invalid inventory batch id")
	}

	// Zero quantity only makes sense for ADJUSTMENT, where it writes the
	// batch off entirely. For the relative types it would be a no-op.
	if req.Quantity == 0 && req.MovementType != model.MovementAdjustment {
		return nil, apperror.Validation("quantity", "quantity must be greater than zero for %s movements", req.MovementType)
	}

	actorID := actor.ID
	var batch *model.InventoryBatch

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		batch, findErr = s.inventoryRepo.FindByIDForUpdate(txCtx, batchID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("inventory_batch_id", "inventory batch not found")
			}
			return fmt.Errorf("failed to load inventory batch: %w", findErr)
		}
		if !scope.Contains(batch.PharmacyID) {
			return apperror.NotFound("inventory_batch_id", "inventory batch not found")
		}

		var newQuantity int
		switch req.MovementType {
		case model.MovementIn:
			newQuantity = batch.Quantity + req.Quantity
		case model.MovementOut, model.MovementExpired, model.MovementDamaged:
			if batch.Quantity < req.Quantity {
				return apperror.InsufficientStock("quantity",
					"insufficient stock: available %d, requested %d", batch.Quantity, req.Quantity)
			}
			newQuantity = batch.Quantity - req.Quantity
		case model.MovementAdjustment:
			newQuantity = req.Quantity
		default:
			return apperror.Validation("movement_type", "unsupported movement type %s", req.MovementType)
		}

		delta := newQuantity - batch.Quantity
		if err := s.inventoryRepo.UpdateQuantity(txCtx, batch.ID, newQuantity); err != nil {
			return fmt.Errorf("failed to update inventory quantity: %w", err)
		}

		movement := &model.StockMovement{
			InventoryBatchID: batch.ID,
			MovementType:     req.MovementType,
			Quantity:         delta,
			ReferenceNumber:  req.ReferenceNumber,
			Notes:            req.Notes,
			CreatedBy:        &actorID,
		}
		if err := s.movementRepo.Create(txCtx, movement); err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"movement_type": req.MovementType,
			"quantity":      req.Quantity,
			"delta":         delta,
			"reference":     req.ReferenceNumber,
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionAdjustStock,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchNumber,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		batch.Quantity = newQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	return batch, nil
}

func (s *inventoryService) LowStockAlerts(ctx context.Context, scope PharmacyScope) ([]model.InventoryBatch, error) {
	return s.inventoryRepo.ListLowStock(ctx, scope.InventoryFilter())
}

func (s *inventoryService) ExpiredBatches(ctx context.Context, scope PharmacyScope) ([]model.InventoryBatch, error) {
	return s.inventoryRepo.ListExpired(ctx, scope.InventoryFilter(), time.Now().Truncate(24*time.Hour))
}

func (s *inventoryService) ListMovements(ctx context.Context, scope PharmacyScope, batchID string, page, limit int) ([]model.StockMovement, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	id, err := uuid.Parse(batchID)
	if err != nil {
		return nil, 0, apperror.Validation("inventory_batch_id", "invalid inventory batch id")
	}

	batch, err := s.inventoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperror.NotFound("inventory_batch_id", "inventory batch not found")
		}
		return nil, 0, fmt.Errorf("database error: %w", err)
	}
	if !scope.Contains(batch.PharmacyID) {
		return nil, 0, apperror.NotFound("inventory_batch_id", "inventory batch not found")
	}

	return s.movementRepo.ListByBatch(ctx, id, page, limit)
}
