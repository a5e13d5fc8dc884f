package pgrepo

import (
	"context"
	"os"
	"testing"
	"time"

	"krume-backend/config"
	"krume-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DB_DSN and skips when it is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := NewPgxPool(ctx, &config.Config{DBUrl: dsn, DBMaxConns: 4, DBMaxConnIdleTime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

func requestedOrder() *domain.Order {
	delivered := time.Now().Add(-24 * time.Hour).UTC()
	return &domain.Order{
		ID:     "ord-" + uuid.NewString()[:8],
		UserID: "u1",
		Items:           []domain.OrderItem{{ProductID: "shirt", Size: "M", Quantity: 1, Price: 1080}},
		ShippingAddress: domain.ShippingAddress{FullName: "Asha", City: "Pune", PostalCode: "411001", Country: "India"},
		PaymentMethod: domain.PaymentMethodCOD,
		ItemsPrice:    1080,
		TaxPrice:      130,
		TotalPrice:    1210,
		OrderStatus:   domain.OrderStatusReturnApproved,
		IsPaid:        true,
		IsDelivered:   true,
		DeliveredAt:   &delivered,
		ReturnInfo:    &domain.ReturnInfo{
			Requested:   true,
			Reason:      "Too small",
			Type:        domain.DefaultReturnType,
			RequestedAt: time.Now().UTC(),
			Status:      domain.ReturnStatusApproved,
		},
	}
}

func TestOrderRepository_UpdateKeepsExternalReturnID(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool(t))

	order := requestedOrder()
	require.NoError(t, repo.Create(ctx, order))

	// Loaded before the pickup id lands.
	stale, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NoError(t, repo.SetReturnExternalID(ctx, order.ID, "RET-42"))

	stale.ReturnInfo.Status = domain.ReturnStatusRefunded
	stale.OrderStatus = domain.OrderStatusReturned
	stale.IsPaid = false
	require.NoError(t, repo.Update(ctx, stale, domain.OrderStatusReturnApproved))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusReturned, got.OrderStatus)
	assert.Equal(t, domain.ReturnStatusRefunded, got.ReturnInfo.Status)
	assert.Equal(t, "RET-42", got.ReturnInfo.ExternalReturnID)
}

func TestOrderRepository_UpdateIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool(t))

	order := requestedOrder()
	require.NoError(t, repo.Create(ctx, order))

	order.OrderStatus = domain.OrderStatusReturned
	require.NoError(t, repo.Update(ctx, order, domain.OrderStatusReturnApproved))
	assert.ErrorIs(t, repo.Update(ctx, order, domain.OrderStatusReturnApproved), domain.ErrNotFound)
}
