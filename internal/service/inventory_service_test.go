package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBatchRequest(env *testEnv, batchNumber string) CreateBatchRequest {
	return CreateBatchRequest{
		PharmacyID:      env.pharmacy.ID.String(),
		MedicineID:      env.medicine.ID.String(),
		BatchNumber:     batchNumber,
		Quantity:        30,
		UnitPrice:       decimal.RequireFromString("1.00"),
		SellingPrice:    decimal.RequireFromString("2.50"),
		ExpiryDate:      time.Now().AddDate(2, 0, 0).Format("2006-01-02"),
		ManufactureDate: time.Now().AddDate(0, -6, 0).Format("2006-01-02"),
		Supplier:        "MedSupply Co",
	}
}

func TestCreateBatchRecordsInitialMovement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	batch, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), validBatchRequest(env, "B-001"))
	require.NoError(t, err)
	assert.Equal(t, 30, batch.Quantity)
	assert.Equal(t, 10, batch.MinimumStockLevel) // default threshold

	movements, total, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, model.MovementIn, movements[0].MovementType)
	assert.Equal(t, 30, movements[0].Quantity)
	assert.Equal(t, "Initial stock entry", movements[0].Notes)
}

func TestCreateBatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("selling price must exceed unit price", func(t *testing.T) {
		req := validBatchRequest(env, "B-100")
		req.SellingPrice = decimal.RequireFromString("0.50")
		_, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), req)
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("expiry must be after manufacture", func(t *testing.T) {
		req := validBatchRequest(env, "B-101")
		req.ExpiryDate = time.Now().AddDate(-2, 0, 0).Format("2006-01-02")
		_, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), req)
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("duplicate batch identity conflicts", func(t *testing.T) {
		_, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), validBatchRequest(env, "B-102"))
		require.NoError(t, err)

		_, err = env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), validBatchRequest(env, "B-102"))
		require.Error(t, err)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))
	})

	t.Run("unknown medicine", func(t *testing.T) {
		req := validBatchRequest(env, "B-103")
		req.MedicineID = "3f9f6a2e-0000-0000-0000-000000000000"
		_, err := env.inventoryService.CreateBatch(ctx, env.actor, env.adminScope(), req)
		require.Error(t, err)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})
}

func TestAdjustStockSemantics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	adjust := func(t *testing.T, batchID, movementType string, quantity int) (*model.InventoryBatch, error) {
		return env.inventoryService.AdjustStock(ctx, env.actor, env.adminScope(), AdjustStockRequest{
			InventoryBatchID: batchID,
			MovementType:     movementType,
			Quantity:         quantity,
		})
	}

	t.Run("IN adds", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		got, err := adjust(t, batch.ID.String(), model.MovementIn, 5)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Quantity)
	})

	t.Run("OUT subtracts", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		got, err := adjust(t, batch.ID.String(), model.MovementOut, 4)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Quantity)
	})

	t.Run("OUT beyond stock fails", func(t *testing.T) {
		batch := env.seedBatch(t, 3, "2.00")
		_, err := adjust(t, batch.ID.String(), model.MovementOut, 4)
		require.Error(t, err)
		assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))
		assert.Equal(t, 3, env.reloadBatch(t, batch.ID).Quantity)
	})

	t.Run("EXPIRED deducts like OUT", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		got, err := adjust(t, batch.ID.String(), model.MovementExpired, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Quantity)
	})

	t.Run("ADJUSTMENT sets absolute quantity but records delta", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		got, err := adjust(t, batch.ID.String(), model.MovementAdjustment, 25)
		require.NoError(t, err)
		assert.Equal(t, 25, got.Quantity)

		movements, _, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, model.MovementAdjustment, movements[0].MovementType)
		assert.Equal(t, 15, movements[0].Quantity)
	})

	t.Run("ADJUSTMENT to zero writes the batch off", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		got, err := adjust(t, batch.ID.String(), model.MovementAdjustment, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Quantity)

		movements, _, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, -10, movements[0].Quantity)
	})

	t.Run("zero quantity rejected for relative types", func(t *testing.T) {
		batch := env.seedBatch(t, 10, "2.00")
		for _, movementType := range []string{model.MovementIn, model.MovementOut, model.MovementExpired, model.MovementDamaged} {
			_, err := adjust(t, batch.ID.String(), movementType, 0)
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		}
		assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := adjust(t, "11111111-2222-3333-4444-555555555555", model.MovementIn, 1)
		require.Error(t, err)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})
}

func TestAdjustStockOutOfScopeBatchHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")

	other := model.Pharmacy{Name: "Other", Location: "Elsewhere"}
	require.NoError(t, env.db.Create(&other).Error)

	_, err := env.inventoryService.AdjustStock(ctx, env.actor, PharmacyScope{IDs: []uuid.UUID{other.ID}}, AdjustStockRequest{
		InventoryBatchID: batch.ID.String(),
		MovementType:     model.MovementIn,
		Quantity:         5,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)
}

func TestLowStockAndExpiredListings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	low := env.seedBatch(t, 2, "2.00") // minimum level is 2, so 2 <= 2 alerts
	env.seedBatch(t, 50, "2.00")

	expired := model.InventoryBatch{
		PharmacyID:        env.pharmacy.ID,
		MedicineID:        env.medicine.ID,
		BatchNumber:       "OLD-1",
		Quantity:          5,
		UnitPrice:         decimal.RequireFromString("1.00"),
		SellingPrice:      decimal.RequireFromString("2.00"),
		ExpiryDate:        time.Now().AddDate(0, -1, 0),
		ManufactureDate:   time.Now().AddDate(-2, 0, 0),
		MinimumStockLevel: 2,
	}
	require.NoError(t, env.db.Create(&expired).Error)

	lowStock, err := env.inventoryService.LowStockAlerts(ctx, env.adminScope())
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, b := range lowStock {
		ids[b.ID.String()] = true
	}
	assert.True(t, ids[low.ID.String()])

	expiredList, err := env.inventoryService.ExpiredBatches(ctx, env.adminScope())
	require.NoError(t, err)
	require.Len(t, expiredList, 1)
	assert.Equal(t, expired.ID, expiredList[0].ID)
}
