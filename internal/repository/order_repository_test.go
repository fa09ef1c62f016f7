package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"vapestore/internal/model"
	"vapestore/internal/testutil"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrder(id, email string, created time.Time) *model.Order {
	items := []model.OrderItem{
		{
			Product: model.Product{
				ID:       1,
				Name:     "BALI 12 K Nicotina Free",
				Category: "Pod Desechable",
				Price:    2500,
				Stock:    50,
				Features: []string{"12000 puffs"},
				Reviews:  []model.Review{{ID: "1", Author: "Ana", Rating: 5, Comment: "Great", Date: "01/02/2025"}},
			},
			Quantity: 3,
		},
		{
			Product:  model.Product{ID: 7, Name: "Ignite V80", Price: 890},
			Quantity: 1,
		},
	}
	return &model.Order{
		ID:            id,
		CreatedAt:     created,
		UpdatedAt:     created,
		CustomerName:  "Ana Perez",
		CustomerEmail: email,
		Items:         items,
		Total:         model.ItemsTotal(items),
		Currency:      "UYU",
		Status:        model.StatusPending,
	}
}

func TestOrderRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewOrderRepository(db.Pool, zerolog.Nop())
	ctx := context.Background()

	t.Run("round trip keeps the snapshot", func(t *testing.T) {
		db.Truncate(t)
		created := time.Now().UTC().Truncate(time.Microsecond)
		order := newOrder("ABC123XYZ", "ana@example.com", created)

		require.NoError(t, repo.Create(ctx, order))

		got, err := repo.GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, order.ID, got.ID)
		assert.Equal(t, model.Money(8390), got.Total)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.Equal(t, "UYU", got.Currency)
		assert.True(t, created.Equal(got.CreatedAt))
		require.Len(t, got.Items, 2)
		assert.Equal(t, order.Items[0].Product.ID, got.Items[0].Product.ID)
		assert.Equal(t, order.Items[0].Product.Price, got.Items[0].Product.Price)
		assert.Equal(t, order.Items[0].Product.Features, got.Items[0].Product.Features)
		assert.Equal(t, order.Items[0].Product.Reviews, got.Items[0].Product.Reviews)
		assert.Equal(t, 3, got.Items[0].Quantity)
		assert.Equal(t, "Ignite V80", got.Items[1].Product.Name)
		assert.Equal(t, got.Total, model.ItemsTotal(got.Items))
	})

	t.Run("unknown order is nil", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lists are newest first", func(t *testing.T) {
		db.Truncate(t)
		base := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.Create(ctx, newOrder("OLDEST001", "ana@example.com", base.Add(-2*time.Hour))))
		require.NoError(t, repo.Create(ctx, newOrder("NEWEST001", "ana@example.com", base)))
		require.NoError(t, repo.Create(ctx, newOrder("OTHER0001", "bob@example.com", base.Add(-time.Hour))))

		mine, err := repo.ListByCustomer(ctx, "ana@example.com")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "NEWEST001", mine[0].ID)
		assert.Equal(t, "OLDEST001", mine[1].ID)
		assert.Len(t, mine[0].Items, 2)

		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "NEWEST001", all[0].ID)
		assert.Equal(t, "OTHER0001", all[1].ID)

		none, err := repo.ListByCustomer(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("transition is conditional and idempotent", func(t *testing.T) {
		db.Truncate(t)
		require.NoError(t, repo.Create(ctx, newOrder("PAYME0001", "ana@example.com", time.Now())))

		changed, err := repo.TransitionStatus(ctx, "PAYME0001", model.StatusProcessing, "123456", model.StatusPending)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.TransitionStatus(ctx, "PAYME0001", model.StatusProcessing, "123456", model.StatusPending)
		require.NoError(t, err)
		assert.False(t, changed, "second approval must be a no-op")

		got, err := repo.GetByID(ctx, "PAYME0001")
		require.NoError(t, err)
		assert.Equal(t, model.StatusProcessing, got.Status)
		assert.Equal(t, "123456", got.PaymentID)

		changed, err = repo.TransitionStatus(ctx, "PAYME0001", model.StatusShipped, "")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.TransitionStatus(ctx, "PAYME0001", model.StatusCancelled, "999", model.StatusPending, model.StatusProcessing)
		require.NoError(t, err)
		assert.False(t, changed, "gateway must not cancel a shipped order")

		got, err = repo.GetByID(ctx, "PAYME0001")
		require.NoError(t, err)
		assert.Equal(t, model.StatusShipped, got.Status)
		assert.Equal(t, "123456", got.PaymentID)

		changed, err = repo.TransitionStatus(ctx, "MISSING01", model.StatusProcessing, "", model.StatusPending)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("writes notify listeners", func(t *testing.T) {
		db.Truncate(t)

		conn, err := db.Pool.Acquire(ctx)
		require.NoError(t, err)
		defer conn.Release()

		_, err = conn.Exec(ctx, "LISTEN "+OrderChangesChannel)
		require.NoError(t, err)

		require.NoError(t, repo.Create(ctx, newOrder("NOTIFY001", "ana@example.com", time.Now())))

		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		n, err := conn.Conn().WaitForNotification(waitCtx)
		require.NoError(t, err)

		var payload ChangeNotification
		require.NoError(t, json.Unmarshal([]byte(n.Payload), &payload))
		assert.Equal(t, "NOTIFY001", payload.ID)
		assert.Equal(t, "ana@example.com", payload.Email)

		_, err = repo.TransitionStatus(ctx, "NOTIFY001", model.StatusCancelled, "", model.StatusPending)
		require.NoError(t, err)

		n, err = conn.Conn().WaitForNotification(waitCtx)
		require.NoError(t, err)
		assert.Contains(t, n.Payload, "NOTIFY001")
	})
}
