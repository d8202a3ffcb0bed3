package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) seedSale(t *testing.T, batch model.InventoryBatch, quantity int) *model.Sale {
	t.Helper()

	price := decimal.RequireFromString("2.00")
	sale, err := e.saleService.CreateSale(context.Background(), e.actor, e.adminScope(), CreateSaleRequest{
		PharmacyID:   e.pharmacy.ID.String(),
		CustomerName: "Jane Doe",
		AmountPaid:   price.Mul(decimal.NewFromInt(int64(quantity))),
		Items: []SaleItemRequest{
			{InventoryBatchID: batch.ID.String(), Quantity: quantity, UnitPrice: price},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	return sale
}

func TestCreateReturnCreditsInventory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")
	sale := env.seedSale(t, batch, 4)

	ret, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonCustomerRequest,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, ret.Items, 1)

	assert.True(t, ret.ReturnAmount.Equal(decimal.RequireFromString("6.00")))
	assert.Equal(t, 3, ret.Items[0].ReturnQuantity)

	reloaded := env.reloadBatch(t, batch.ID)
	assert.Equal(t, 9, reloaded.Quantity) // 10 - 4 + 3

	// The credit shows up as an IN movement referencing the return number.
	movements, _, err := env.movementRepo.ListByBatch(ctx, batch.ID, 1, 10)
	require.NoError(t, err)
	var credit *model.StockMovement
	for i := range movements {
		if movements[i].ReferenceNumber == ret.ReturnNumber {
			credit = &movements[i]
		}
	}
	require.NotNil(t, credit)
	assert.Equal(t, model.MovementIn, credit.MovementType)
	assert.Equal(t, 3, credit.Quantity)
}

func TestCreateReturnRejectsOverReturn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")
	sale := env.seedSale(t, batch, 4)

	// A prior partial return consumes 1 of the 4 sold.
	_, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonDamaged,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 1},
		},
	})
	require.NoError(t, err)

	// Only 3 remain returnable; 4 must be rejected outright.
	_, err = env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonDamaged,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 4},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindOverReturn, apperror.KindOf(err))
	assert.Equal(t, 7, env.reloadBatch(t, batch.ID).Quantity) // 10 - 4 + 1

	// The remaining 3 still go through.
	ret, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonDamaged,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 3},
		},
	})
	require.NoError(t, err)
	assert.True(t, ret.ReturnAmount.Equal(decimal.RequireFromString("6.00")))
	assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)
}

func TestCreateReturnAggregatesRepeatedSaleItemLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 10, "2.00")
	sale := env.seedSale(t, batch, 4)

	// Two lines of 3 against a 4-unit sale item exceed the sold quantity
	// together, even though either line alone would pass.
	_, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonCustomerRequest,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 3},
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 3},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindOverReturn, apperror.KindOf(err))
	assert.Equal(t, 6, env.reloadBatch(t, batch.ID).Quantity) // 10 - 4, nothing credited

	var returnCount int64
	require.NoError(t, env.db.Model(&model.SaleReturn{}).Count(&returnCount).Error)
	assert.EqualValues(t, 0, returnCount)

	// Split lines that fit within the sold quantity still commit together.
	ret, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonCustomerRequest,
		Items: []ReturnItemRequest{
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 2},
			{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, ret.Items, 2)
	assert.True(t, ret.ReturnAmount.Equal(decimal.RequireFromString("8.00")))
	assert.Equal(t, 10, env.reloadBatch(t, batch.ID).Quantity)
}

func TestCreateReturnRejectsForeignSaleItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 20, "2.00")
	sale := env.seedSale(t, batch, 2)
	otherSale := env.seedSale(t, batch, 2)

	_, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
		OriginalSaleID: sale.ID.String(),
		Reason:         model.ReturnReasonWrongItem,
		Items: []ReturnItemRequest{
			{SaleItemID: otherSale.Items[0].ID.String(), ReturnQuantity: 1},
		},
	})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	assert.Equal(t, 16, env.reloadBatch(t, batch.ID).Quantity)
}

func TestReturnNumbersAreDailySequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batch := env.seedBatch(t, 20, "2.00")
	sale := env.seedSale(t, batch, 4)

	day := time.Now().Format("20060102")
	for i := 1; i <= 2; i++ {
		ret, err := env.returnService.CreateReturn(ctx, env.actor, env.adminScope(), CreateReturnRequest{
			OriginalSaleID: sale.ID.String(),
			Reason:         model.ReturnReasonOther,
			Items: []ReturnItemRequest{
				{SaleItemID: sale.Items[0].ID.String(), ReturnQuantity: 1},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("RET-%s-%04d", day, i), ret.ReturnNumber)
	}
}
