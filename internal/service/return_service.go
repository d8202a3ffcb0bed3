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
type ReturnItemRequest struct {
	SaleItemID     string `json:"sale_item_id" binding:"required"`
	ReturnQuantity int    `json:"return_quantity" binding:"required,gt=0"`
}

type CreateReturnRequest struct {
	OriginalSaleID string              `json:"original_sale_id" binding:"required"`
	Reason         string              `json:"reason" binding:"required,oneof=EXPIRED DAMAGED WRONG_ITEM CUSTOMER_REQUEST OTHER"`
	Notes          string              `json:"notes"`
	Items          []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ReturnService reverses prior sales item by item. Each item may be returned
// up to its sold quantity minus everything already returned against it; the
// credit, the IN stock movements, and the return rows commit together or not
// at all.
type ReturnService interface {
	CreateReturn(ctx context.Context, actor Actor, scope PharmacyScope, req CreateReturnRequest) (*model.SaleReturn, error)
	ListReturns(ctx context.Context, scope PharmacyScope, pharmacyID string, page, limit int) ([]model.SaleReturn, int64, error)
}

type returnService struct {
	returnRepo    repository.ReturnRepository
	saleRepo      repository.SaleRepository
	inventoryRepo repository.InventoryRepository
	movementRepo  repository.MovementRepository
	counterRepo   repository.CounterRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewReturnService(
	returnRepo repository.ReturnRepository,
	saleRepo repository.SaleRepository,
	inventoryRepo repository.InventoryRepository,
	movementRepo repository.MovementRepository,
	counterRepo repository.CounterRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ReturnService {
	return &returnService{
		returnRepo:    returnRepo,
		saleRepo:      saleRepo,
		inventoryRepo: inventoryRepo,
		movementRepo:  movementRepo,
		counterRepo:   counterRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

func (s *returnService) CreateReturn(ctx context.Context, actor Actor, scope PharmacyScope, req CreateReturnRequest) (*model.SaleReturn, error) {
	saleID, err := uuid.Parse(req.OriginalSaleID)
	if err != nil {
		return nil, apperror.Validation("original_sale_id", "invalid sale id")
	}

	sale, err := s.saleRepo.FindByIDWithItems(ctx, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("original_sale_id", "sale not found")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !scope.Contains(sale.PharmacyID) {
		return nil, apperror.NotFound("original_sale_id", "sale not found")
	}

	saleItems := make(map[uuid.UUID]*model.SaleItem, len(sale.Items))
	for i := range sale.Items {
		saleItems[sale.Items[i].ID] = &sale.Items[i]
	}

	var ret *model.SaleReturn

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Validate every item against the remaining returnable quantity
		// before mutating anything. Quantities requested earlier in this
		// request count against the same sale item, so two lines referencing
		// one sale item cannot together exceed what is still returnable.
		items := make([]*model.SaleItem, len(req.Items))
		pending := make(map[uuid.UUID]int64)
		var itemErrs []*apperror.Error
		for i, item := range req.Items {
			field := fmt.Sprintf("items[%d]", i)

			itemID, parseErr := uuid.Parse(item.SaleItemID)
			if parseErr != nil {
				itemErrs = append(itemErrs, apperror.Validation(field+".sale_item_id", "invalid sale item id"))
				continue
			}

			saleItem, ok := saleItems[itemID]
			if !ok {
				itemErrs = append(itemErrs, apperror.NotFound(field+".sale_item_id", "sale item does not belong to this sale"))
				continue
			}

			returned, sumErr := s.returnRepo.SumReturnedQuantity(txCtx, saleItem.ID)
			if sumErr != nil {
				return fmt.Errorf("failed to sum prior returns: %w", sumErr)
			}

			returnable := int64(saleItem.Quantity) - returned - pending[saleItem.ID]
			if int64(item.ReturnQuantity) > returnable {
				itemErrs = append(itemErrs, apperror.OverReturn(field+".return_quantity",
					"cannot return %d items, available for return: %d", item.ReturnQuantity, returnable))
				continue
			}

			pending[saleItem.ID] += int64(item.ReturnQuantity)
			items[i] = saleItem
		}
		if err := apperror.Collect(itemErrs); err != nil {
			return err
		}

		returnAmount := decimal.Zero
		for i, item := range req.Items {
			returnAmount = returnAmount.Add(items[i].UnitPrice.Mul(decimal.NewFromInt(int64(item.ReturnQuantity))))
		}

		now := time.Now()
		seq, seqErr := s.counterRepo.Next(txCtx, "RETURN", now)
		if seqErr != nil {
			return fmt.Errorf("failed to allocate return number: %w", seqErr)
		}

		actorID := actor.ID
		ret = &model.SaleReturn{
			OriginalSaleID: sale.ID,
			ReturnNumber:   formatDailyNumber("RET", now, seq),
			Reason:         req.Reason,
			ReturnAmount:   returnAmount,
			Notes:          req.Notes,
			CreatedBy:      &actorID,
		}
		if err := s.returnRepo.Create(txCtx, ret); err != nil {
			return fmt.Errorf("failed to create sale return: %w", err)
		}

		for i, item := range req.Items {
			saleItem := items[i]

			returnItem := &model.SaleReturnItem{
				SaleReturnID:   ret.ID,
				SaleItemID:     saleItem.ID,
				ReturnQuantity: item.ReturnQuantity,
				ReturnAmount:   saleItem.UnitPrice.Mul(decimal.NewFromInt(int64(item.ReturnQuantity))),
			}
			if err := s.returnRepo.CreateItem(txCtx, returnItem); err != nil {
				return fmt.Errorf("failed to create return item: %w", err)
			}

			// Lock the batch for the credit so the quantity and its movement
			// stay consistent under concurrent commits.
			batch, findErr := s.inventoryRepo.FindByIDForUpdate(txCtx, saleItem.InventoryBatchID)
			if findErr != nil {
				return fmt.Errorf("failed to load inventory batch: %w", findErr)
			}
			if err := s.inventoryRepo.UpdateQuantity(txCtx, batch.ID, batch.Quantity+item.ReturnQuantity); err != nil {
				return fmt.Errorf("failed to credit inventory: %w", err)
			}

			movement := &model.StockMovement{
				InventoryBatchID: batch.ID,
				MovementType:     model.MovementIn,
				Quantity:         item.ReturnQuantity,
				ReferenceNumber:  ret.ReturnNumber,
				Notes:            "Return from sale " + sale.SaleNumber,
				CreatedBy:        &actorID,
			}
			if err := s.movementRepo.Create(txCtx, movement); err != nil {
				return fmt.Errorf("failed to record stock movement: %w", err)
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"return_number": ret.ReturnNumber,
			"sale_number":   sale.SaleNumber,
			"reason":        req.Reason,
			"return_amount": ret.ReturnAmount,
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionCreateReturn,
			EntityID:   ret.ID.String(),
			EntityName: ret.ReturnNumber,
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

	created, err := s.returnRepo.FindByIDWithItems(ctx, ret.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload sale return: %w", err)
	}
	return created, nil
}

func (s *returnService) ListReturns(ctx context.Context, scope PharmacyScope, pharmacyID string, page, limit int) ([]model.SaleReturn, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter := scope.SaleFilter()
	if pharmacyID != "" {
		pid, err := uuid.Parse(pharmacyID)
		if err != nil {
			return nil, 0, apperror.Validation("pharmacy_id", "invalid pharmacy id")
		}
		filter.PharmacyID = &pid
	}

	return s.returnRepo.List(ctx, filter, page, limit)
}
