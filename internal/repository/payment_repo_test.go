package repository

import (
	"context"
	"testing"
	"time"

	"restobook/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRepository_StatusTransitions(t *testing.T) {
	repo := NewPaymentRepository(setupTestDB(t))
	ctx := context.Background()

	p := &domain.Payment{BookingID: "b1", UserID: "u1", Amount: 400000, Method: domain.MethodMock, Status: domain.PaymentRecordPending}
	require.NoError(t, repo.Create(ctx, p))
	require.NotEmpty(t, p.ID)

	pending, err := repo.FindLatestPending(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, p.ID, pending.ID)

	success, err := repo.FindSuccessByBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, success)

	changed, err := repo.MarkSuccessIdempotent(ctx, p.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkSuccessIdempotent(ctx, p.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, changed)

	moved, err := repo.UpdateStatusIfPending(ctx, p.ID, domain.PaymentRecordFailed, "late")
	require.NoError(t, err)
	assert.False(t, moved, "a successful payment never goes back to failed")

	success, err = repo.FindSuccessByBooking(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, success)
	assert.NotNil(t, success.PaidAt)
}

func TestPaymentRepository_Listings(t *testing.T) {
	repo := NewPaymentRepository(setupTestDB(t))
	ctx := context.Background()

	for i, booking := range []string{"b1", "b1", "b2"} {
		p := &domain.Payment{BookingID: booking, UserID: "u1", Amount: int64(100 * (i + 1)), Method: domain.MethodMock, Status: domain.PaymentRecordFailed}
		require.NoError(t, repo.Create(ctx, p))
	}

	byBooking, err := repo.ListByBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, byBooking, 2)

	byUser, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 3)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartRepository_SetQuantitySemantics(t *testing.T) {
	repo := NewCartRepository(setupTestDB(t))
	ctx := context.Background()

	empty, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	require.NoError(t, repo.SetItem(ctx, "b1", "u1", domain.CartItem{ProductID: "p1", Name: "Soup", Price: 50000, Quantity: 1}))
	require.NoError(t, repo.SetItem(ctx, "b1", "u1", domain.CartItem{ProductID: "p1", Name: "Soup", Price: 50000, Quantity: 2}))
	require.NoError(t, repo.SetItem(ctx, "b1", "u1", domain.CartItem{ProductID: "p2", Name: "Tea", Price: 20000, Quantity: 1}))

	cart, err := repo.Get(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "u1", cart.UserID)
	for _, it := range cart.Items {
		if it.ProductID == "p1" {
			assert.Equal(t, 2, it.Quantity, "quantity is replaced, not added")
		}
	}

	require.NoError(t, repo.RemoveItem(ctx, "b1", "p1"))
	cart, err = repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	require.NoError(t, repo.Clear(ctx, "b1"))
	cart, err = repo.Get(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
