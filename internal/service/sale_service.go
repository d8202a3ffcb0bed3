package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type SaleItemRequest struct {
	InventoryBatchID string          `json:"inventory_batch_id" binding:"required"`
	Quantity         int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice        decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreateSaleRequest struct {
	PharmacyID    string            `json:"pharmacy_id" binding:"required"`
	CustomerName  string            `json:"customer_name"`
	CustomerPhone string            `json:"customer_phone"`
	PaymentMethod string            `json:"payment_method" binding:"omitempty,oneof=CASH CARD INSURANCE CREDIT"`
	Discount      decimal.Decimal   `json:"discount"`
	Tax           decimal.Decimal   `json:"tax"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	Notes         string            `json:"notes"`
	Items         []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ListSalesFilter struct {
	PharmacyID string
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
	Page       int
	Limit      int
}

// SaleService commits multi-item sales against the inventory ledger. A commit
// validates every line item before touching anything, then writes the sale,
// its items, the quantity decrements, and one OUT stock movement per item in
// a single all-or-nothing transaction.
type SaleService interface {
	CreateSale(ctx context.Context, actor Actor, scope PharmacyScope, req CreateSaleRequest) (*model.Sale, error)
	GetSale(ctx context.Context, scope PharmacyScope, id string) (*model.Sale, error)
	ListSales(ctx context.Context, scope PharmacyScope, filter ListSalesFilter) ([]model.Sale, int64, error)
}

type saleService struct {
	saleRepo      repository.SaleRepository
	inventoryRepo repository.InventoryRepository
	movementRepo  repository.MovementRepository
	counterRepo   repository.CounterRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	hub           *ws.Hub
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	inventoryRepo repository.InventoryRepository,
	movementRepo repository.MovementRepository,
	counterRepo repository.CounterRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) SaleService {
	return &saleService{
		saleRepo:      saleRepo,
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		counterRepo:   counterRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		hub:           hub,
	}
}

// formatDailyNumber renders a daily-sequential document number, e.g.
// SALE-20260830-0004 or RET-20260830-0001.
func formatDailyNumber(prefix string, day time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format("20060102"), seq)
}

func (s *saleService) CreateSale(ctx context.Context, actor Actor, scope PharmacyScope, req CreateSaleRequest) (*model.Sale, error) {
	pharmacyID, err := uuid.Parse(req.PharmacyID)
	if err != nil {
		return nil, apperror.Validation("pharmacy_id", "invalid pharmacy id")
	}
	if !scope.Contains(pharmacyID) {
		return nil, apperror.NotFound("pharmacy_id", "pharmacy not found or not accessible")
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = model.PaymentCash
	}

	var sale *model.Sale
	var lowStock []model.InventoryBatch

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Lock and validate every item before mutating anything. Row locks on
		// the batches hold until commit, so the sufficiency check cannot race
		// with a concurrent sale against the same batch. Each batch is loaded
		// once and the requested quantity accumulated across lines, so two
		// lines against the same batch are checked against the combined total.
		batches := make([]*model.InventoryBatch, len(req.Items))
		loaded := make(map[uuid.UUID]*model.InventoryBatch)
		requested := make(map[uuid.UUID]int)
		var itemErrs []*apperror.Error
		for i, item := range req.Items {
			field := fmt.Sprintf("items[%d]", i)

			batchID, parseErr := uuid.Parse(item.InventoryBatchID)
			if parseErr != nil {
				itemErrs = append(itemErrs, apperror.Validation(field+".inventory_batch_id", "invalid inventory batch id"))
				continue
			}

			batch, ok := loaded[batchID]
			if !ok {
				var findErr error
				batch, findErr = s.inventoryRepo.FindByIDForUpdate(txCtx, batchID)
				if findErr != nil {
					if errors.Is(findErr, gorm.ErrRecordNotFound) {
						itemErrs = append(itemErrs, apperror.NotFound(field+".inventory_batch_id", "inventory batch not found"))
						continue
					}
					return fmt.Errorf("failed to load inventory batch %s: %w", item.InventoryBatchID, findErr)
				}
				loaded[batchID] = batch
			}

			if batch.PharmacyID != pharmacyID {
				itemErrs = append(itemErrs, apperror.Validation(field+".inventory_batch_id", "inventory batch belongs to a different pharmacy"))
				continue
			}

			if batch.Quantity-requested[batchID] < item.Quantity {
				itemErrs = append(itemErrs, apperror.InsufficientStock(field+".quantity",
					"insufficient stock: available %d, requested %d", batch.Quantity-requested[batchID], item.Quantity))
				continue
			}

			requested[batchID] += item.Quantity
			batches[i] = batch
		}
		if err := apperror.Collect(itemErrs); err != nil {
			return err
		}

		// Totals. change_amount may be negative only for deferred payment
		// methods; cash and card sales must be paid in full.
		subtotal := decimal.Zero
		for _, item := range req.Items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		totalAmount := subtotal.Sub(req.Discount).Add(req.Tax)
		changeAmount := req.AmountPaid.Sub(totalAmount)
		if changeAmount.IsNegative() && (paymentMethod == model.PaymentCash || paymentMethod == model.PaymentCard) {
			return apperror.Validation("amount_paid",
				"amount paid %s is less than total %s for %s payment", req.AmountPaid, totalAmount, paymentMethod)
		}

		now := time.Now()
		seq, seqErr := s.counterRepo.Next(txCtx, "SALE", now)
		if seqErr != nil {
			return fmt.Errorf("failed to allocate sale number: %w", seqErr)
		}

		actorID := actor.ID
		sale = &model.Sale{
			PharmacyID:    pharmacyID,
			SaleNumber:    formatDailyNumber("SALE", now, seq),
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			PaymentMethod: paymentMethod,
			Subtotal:      subtotal,
			Discount:      req.Discount,
			Tax:           req.Tax,
			TotalAmount:   totalAmount,
			AmountPaid:    req.AmountPaid,
			ChangeAmount:  changeAmount,
			Notes:         req.Notes,
			CreatedBy:     &actorID,
		}
		if err := s.saleRepo.Create(txCtx, sale); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		customer := sale.CustomerName
		if customer == "" {
			customer = "Walk-in customer"
		}

		for i, item := range req.Items {
			batch := batches[i]

			saleItem := &model.SaleItem{
				SaleID:           sale.ID,
				InventoryBatchID: batch.ID,
				Quantity:         item.Quantity,
				UnitPrice:        item.UnitPrice,
				TotalPrice:       item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
			}
			if err := s.saleRepo.CreateItem(txCtx, saleItem); err != nil {
				return fmt.Errorf("failed to create sale item: %w", err)
			}

			newQuantity := batch.Quantity - item.Quantity
			if err := s.inventoryRepo.UpdateQuantity(txCtx, batch.ID, newQuantity); err != nil {
				return fmt.Errorf("failed to decrement inventory: %w", err)
			}

			movement := &model.StockMovement{
				InventoryBatchID: batch.ID,
				MovementType:     model.MovementOut,
				Quantity:         -item.Quantity,
				ReferenceNumber:  sale.SaleNumber,
				Notes:            "Sale to " + customer,
				CreatedBy:        &actorID,
			}
			if err := s.movementRepo.Create(txCtx, movement); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}

			batch.Quantity = newQuantity
		}

		for _, batch := range loaded {
			if batch.IsLowStock() {
				lowStock = append(lowStock, *batch)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"sale_number":  sale.SaleNumber,
			"pharmacy_id":  sale.PharmacyID.String(),
			"total_amount": sale.TotalAmount,
			"item_count":   len(req.Items),
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateSale,
			EntityID:   sale.ID.String(),
			EntityName: sale.SaleNumber,
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

	s.broadcastLowStock(lowStock)

	created, err := s.saleRepo.FindByIDWithItems(ctx, sale.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload sale: %w", err)
	}
	return created, nil
}

func (s *saleService) broadcastLowStock(batches []model.InventoryBatch) {
	if s.hub == nil {
		return
	}
	for _, batch := range batches {
		s.hub.BroadcastJSON("low_stock", map[string]interface{}{
			"inventory_batch_id": batch.ID.String(),
			"pharmacy_id":        batch.PharmacyID.String(),
			"batch_number":       batch.BatchNumber,
			"quantity":           batch.Quantity,
			"minimum_stock":      batch.MinimumStockLevel,
		})
	}
}

func (s *saleService) GetSale(ctx context.Context, scope PharmacyScope, id string) (*model.Sale, error) {
	saleID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("id", "invalid sale id")
	}

	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("id", "sale not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !scope.Contains(sale.PharmacyID) {
		return nil, apperror.NotFound("id", "sale not found")
	}

	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, scope PharmacyScope, filter ListSalesFilter) ([]model.Sale, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := scope.SaleFilter()
	if filter.PharmacyID != "" {
		pid, err := uuid.Parse(filter.PharmacyID)
		if err != nil {
			return nil, 0, apperror.Validation("pharmacy_id", "invalid pharmacy id")
		}
		repoFilter.PharmacyID = &pid
	}
	if filter.StartDate != "" {
		start, err := time.Parse("2006-01-02", filter.StartDate)
		if err != nil {
			return nil, 0, apperror.Validation("start_date", "invalid date %q, expected YYYY-MM-DD", filter.StartDate)
		}
		repoFilter.StartDate = &start
	}
	if filter.EndDate != "" {
		end, err := time.Parse("2006-01-02", filter.EndDate)
		if err != nil {
			return nil, 0, apperror.Validation("end_date", "invalid date %q, expected YYYY-MM-DD", filter.EndDate)
		}
		repoFilter.EndDate = &end
	}

	return s.saleRepo.List(ctx, repoFilter, filter.Page, filter.Limit)
}
