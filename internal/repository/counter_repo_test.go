package repository

import (
	"context"
	"testing"
	"time"

	"backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterNextIsSequential(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()
	day := time.Now()

	for want := int64(1); want <= 5; want++ {
		got, err := repo.Next(ctx, "SALE", day)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCounterScopesAndDaysAreIndependent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCounterRepository(db)
	ctx := context.Background()

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	v, err := repo.Next(ctx, "SALE", today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	v, err = repo.Next(ctx, "SALE", today)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)

	// A different scope on the same day starts from 1.
	v, err = repo.Next(ctx, "RETURN", today)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)

	// The same scope on a different day starts from 1.
	v, err = repo.Next(ctx, "SALE", yesterday)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}
