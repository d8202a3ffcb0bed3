package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/testutil"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires real repositories against an in-memory database so service
// tests exercise the same transactional paths as production.
type testEnv struct {
	db               *gorm.DB
	saleService      SaleService
	returnService    ReturnService
	inventoryService InventoryService
	movementRepo     repository.MovementRepository

	actor    Actor
	pharmacy model.Pharmacy
	medicine model.Medicine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)

	txManager := repository.NewTransactionManager(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	medicineRepo := repository.NewMedicineRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	env := &testEnv{
		db:               db,
		movementRepo:     movementRepo,
		saleService:      NewSaleService(saleRepo, inventoryRepo, movementRepo, counterRepo, auditRepo, txManager, nil),
		returnService:    NewReturnService(returnRepo, saleRepo, inventoryRepo, movementRepo, counterRepo, auditRepo, txManager),
		inventoryService: NewInventoryService(inventoryRepo, movementRepo, medicineRepo, auditRepo, txManager),
	}

	user := model.User{
		Username: "cashier",
		Email:    "cashier@example.com",
		Password: "hashed",
		Role:     model.RoleAdmin,
	}
	require.NoError(t, db.Create(&user).Error)
	env.actor = Actor{ID: user.ID, Role: user.Role}

	env.pharmacy = model.Pharmacy{Name: "Central Pharmacy", Location: "Main St"}
	require.NoError(t, db.Create(&env.pharmacy).Error)

	env.medicine = model.Medicine{
		Name:         "Paracetamol",
		Manufacturer: "Acme Pharma",
		Strength:     "500mg",
		DosageForm:   "tablet",
	}
	require.NoError(t, db.Create(&env.medicine).Error)

	return env
}

func (e *testEnv) adminScope() PharmacyScope {
	return PharmacyScope{All: true}
}

// seedBatch inserts a batch directly, bypassing the service, so tests control
// exact starting quantities.
func (e *testEnv) seedBatch(t *testing.T, quantity int, sellingPrice string) model.InventoryBatch {
	t.Helper()

	batch := model.InventoryBatch{
		PharmacyID:        e.pharmacy.ID,
		MedicineID:        e.medicine.ID,
		BatchNumber:       fmt.Sprintf("BATCH-%d", time.Now().UnixNano()),
		Quantity:          quantity,
		UnitPrice:         decimal.RequireFromString("1.00"),
		SellingPrice:      decimal.RequireFromString(sellingPrice),
		ExpiryDate:        time.Now().AddDate(1, 0, 0),
		ManufactureDate:   time.Now().AddDate(-1, 0, 0),
		MinimumStockLevel: 2,
	}
	require.NoError(t, e.db.Create(&batch).Error)
	return batch
}

func (e *testEnv) reloadBatch(t *testing.T, id interface{}) model.InventoryBatch {
	t.Helper()
	var batch model.InventoryBatch
	require.NoError(t, e.db.First(&batch, "id = ?", id).Error)
	return batch
}

func TestCreateSaleDecrementsStockAndRecordsMovement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID:   env.pharmacy.ID.String(),
		CustomerName: "John Doe",
		AmountPaid:   decimal.RequireFromString("8.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 4, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)

	assert.True(t, sale.Subtotal.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("8.00")))
	assert.True(t, sale.ChangeAmount.IsZero())
	assert.Equal(t, model.PaymentCash, sale.PaymentMethod)

	reloaded := env.reloadBatch(t, batch.ID)
	assert.Equal(t, 6, reloaded.Quantity)

	movements, total, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.MovementOut, movements[0].MovementType)
	assert.Equal(t, -4, movements[0].Quantity)
	assert.Equal(t, sale.SaleNumber, movements[0].ReferenceNumber)
}

func TestCreateSaleInsufficientStockLeavesBatchUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 6, "2.00")

	_, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("14.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 7, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	reloaded := env.reloadBatch(t, batch.ID)
	assert.Equal(t, 6, reloaded.Quantity)

	_, total, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	var saleCount int64
	require.NoError(t, env.db.Model(&model.Sale{}).Count(&saleCount).Error)
	assert.EqualValues(t, 0, saleCount)
}

func TestCreateSaleAllOrNothingAcrossItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	good := env.seedBatch(t, 10, "2.00")
	short := env.seedBatch(t, 1, "3.00")

	_, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("100.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: good.ID.String(), Quantity: 2, UnitPrice: decimal.RequireFromString("2.00")},
			{InventoryBatchID: short.ID.String(), Quantity: 5, UnitPrice: decimal.RequireFromString("3.00")},
		},
	})
	require.Error(t, err)

	var list apperror.List
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "items[1].quantity", list[0].Field)

	// Neither batch moved: the valid first line must not commit alone.
	assert.Equal(t, 10, env.reloadBatch(t, good.ID).Quantity)
	assert.Equal(t, 1, env.reloadBatch(t, short.ID).Quantity)
}

func TestCreateSaleStacksRepeatedBatchLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 20, "2.00")

	// Two lines against the same batch must both land: the decrements stack
	// and the movement sum matches the quantity change.
	sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("24.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 6, UnitPrice: decimal.RequireFromString("2.00")},
			{InventoryBatchID: batch.ID.String(), Quantity: 6, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)

	reloaded := env.reloadBatch(t, batch.ID)
	assert.Equal(t, 8, reloaded.Quantity)

	movements, total, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	for _, m := range movements {
		assert.Equal(t, model.MovementOut, m.MovementType)
		assert.Equal(t, -6, m.Quantity)
	}

	sum, err := env.movementRepo.SumByBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, reloaded.Quantity-batch.Quantity, sum)
}

func TestCreateSaleRejectsCombinedOversellOnOneBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	// Each line alone fits in stock, but the combined demand does not.
	_, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("24.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 6, UnitPrice: decimal.RequireFromString("2.00")},
			{InventoryBatchID: batch.ID.String(), Quantity: 6, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	var list apperror.List
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "items[1].quantity", list[0].Field)

	assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)

	_, total, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	var saleCount int64
	require.NoError(t, env.db.Model(&model.Sale{}).Count(&saleCount).Error)
	assert.EqualValues(t, 0, saleCount)
}

func TestCreateSaleTotalsWithDiscountAndTax(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 20, "5.00")

	sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		Discount:   decimal.RequireFromString("3.00"),
		Tax:        decimal.RequireFromString("1.50"),
		AmountPaid: decimal.RequireFromString("25.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 5, UnitPrice: decimal.RequireFromString("5.00")},
		},
	})
	require.NoError(t, err)

	// subtotal 25.00, total 25.00 - 3.00 + 1.50 = 23.50, change 1.50
	assert.True(t, sale.Subtotal.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("23.50")))
	assert.True(t, sale.ChangeAmount.Equal(decimal.RequireFromString("1.50")))
}

func TestCreateSaleRejectsUnderpaymentForCash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	_, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID:    env.pharmacy.ID.String(),
		PaymentMethod: model.PaymentCash,
		AmountPaid:    decimal.RequireFromString("3.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 4, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)
}

func TestCreateSaleAllowsDeferredPaymentShortfall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID:    env.pharmacy.ID.String(),
		PaymentMethod: model.PaymentInsurance,
		AmountPaid:    decimal.RequireFromString("3.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 4, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)
	assert.True(t, sale.ChangeAmount.Equal(decimal.RequireFromString("-5.00")))
}

func TestSaleNumbersAreDailySequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 100, "2.00")

	pattern := regexp.MustCompile(`^SALE-\d{8}-\d{4}$`)
	day := time.Now().Format("20060102")

	for i := 1; i <= 3; i++ {
		sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
			PharmacyID: env.pharmacy.ID.String(),
			AmountPaid: decimal.RequireFromString("2.00"),
			Items: []SaleItemRequest{
				{InventoryBatchID: batch.ID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
			},
		})
		require.NoError(t, err)
		assert.Regexp(t, pattern, sale.SaleNumber)
		assert.Equal(t, fmt.Sprintf("SALE-%s-%04d", day, i), sale.SaleNumber)
	}
}

func TestSaleNotVisibleOutsideScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	sale, err := env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("2.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)

	other := model.Pharmacy{Name: "Other", Location: "Elsewhere"}
	require.NoError(t, env.db.Create(&other).Error)

	_, err = env.saleService.GetSale(ctx, PharmacyScope{IDs: []uuid.UUID{other.ID}}, sale.ID.String())
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestListSalesRejectsMalformedDateFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.saleService.ListSales(ctx, env.adminScope(), ListSalesFilter{StartDate: "30-08-2026"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, _, err = env.saleService.ListSales(ctx, env.adminScope(), ListSalesFilter{EndDate: "not-a-date"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, _, err = env.saleService.ListSales(ctx, env.adminScope(), ListSalesFilter{
		StartDate: "2026-08-01",
		EndDate:   "2026-08-31",
	})
	require.NoError(t, err)
}

func TestLedgerReconstructsQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Create through the service so the initial IN movement is recorded.
	batch, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), CreateBatchRequest{
		PharmacyID:      env.pharmacy.ID.String(),
		MedicineID:      env.medicine.ID.String(),
		BatchNumber:     "LEDGER-1",
		Quantity:        50,
		UnitPrice:       decimal.RequireFromString("1.00"),
		SellingPrice:    decimal.RequireFromString("2.00"),
		ExpiryDate:      time.Now().AddDate(1, 0, 0).Format("2006-01-02"),
		ManufactureDate: time.Now().AddDate(-1, 0, 0).Format("2006-01-02"),
	})
	require.NoError(t, err)

	_, err = env.saleService.CreateSale(ctx, env.actor, env.adminScope(), CreateSaleRequest{
		PharmacyID: env.pharmacy.ID.String(),
		AmountPaid: decimal.RequireFromString("20.00"),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: 10, UnitPrice: decimal.RequireFromString("2.00")},
		},
	})
	require.NoError(t, err)

	_, err = env.inventoryService.AdjustStock(ctx, env.actor, env.adminScope(), AdjustStockRequest{
		InventoryBatchID: batch.ID.String(),
		MovementType:     model.MovementDamaged,
		Quantity:         5,
		Notes:            "dropped carton",
	})
	require.NoError(t, err)

	reloaded := env.reloadBatch(t, batch.ID)
	assert.Equal(t, 35, reloaded.Quantity)

	sum, err := env.movementRepo.SumByBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, reloaded.Quantity, sum)
}
