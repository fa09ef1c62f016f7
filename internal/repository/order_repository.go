package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"vapestore/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `id, customer_name, customer_email, total, currency, status, payment_id, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// ChangeNotification is the payload sent on OrderChangesChannel.
type ChangeNotification struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// notifyChange announces an order write inside the writing transaction, so
// listeners only hear about committed changes.
func notifyChange(ctx context.Context, tx pgx.Tx, id, email string) error {
	payload, err := json.Marshal(ChangeNotification{ID: id, Email: email})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, OrderChangesChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify order change: %w", err)
	}
	return nil
}

// Create persists an order and its item snapshots in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := r.createOrder(ctx, tx, order); err != nil {
		return err
	}
	if err := r.createOrderItems(ctx, tx, order.ID, order.Items); err != nil {
		return err
	}
	if err := notifyChange(ctx, tx, order.ID, order.CustomerEmail); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to notify order change")
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to commit order")
		return fmt.Errorf("failed to commit order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID).
		Int("items", len(order.Items)).
		Msg("order created successfully")

	return nil
}

func (r *orderRepository) createOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, customer_name, customer_email, total, currency, status, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.CustomerName,
		order.CustomerEmail,
		order.Total,
		order.Currency,
		order.Status,
		order.PaymentID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) createOrderItems(ctx context.Context, tx pgx.Tx, orderID string, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (order_id, position, product_id, product, quantity)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, orderID, i, item.Product.ID, item.Product, item.Quantity)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := range items {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", orderID).
				Int("product_id", items[i].Product.ID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.Total,
		&o.Currency,
		&o.Status,
		&o.PaymentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	orders := []model.Order{order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByCustomer retrieves a customer's orders, newest first.
func (r *orderRepository) ListByCustomer(ctx context.Context, email string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_email = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, email)
}

// ListAll retrieves every order, newest first.
func (r *orderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the item snapshots of the given orders in one query.
func (r *orderRepository) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Items = []model.OrderItem{}
	}

	query := `
		SELECT order_id, product, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("orders", len(ids)).Msg("failed to query order items")
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			item    model.OrderItem
		)
		if err := rows.Scan(&orderID, &item.Product, &item.Quantity); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return fmt.Errorf("error iterating order items: %w", err)
	}
	return nil
}

// TransitionStatus applies a conditional status update and notifies listeners
// when a row changed.
func (r *orderRepository) TransitionStatus(ctx context.Context, id string, to model.OrderStatus, paymentID string, from ...model.OrderStatus) (bool, error) {
	var allowed []string
	if len(from) > 0 {
		allowed = make([]string, len(from))
		for i, s := range from {
			allowed[i] = string(s)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	query := `
		UPDATE orders
		SET status = $2,
		    payment_id = CASE WHEN $3 <> '' THEN $3 ELSE payment_id END,
		    updated_at = now()
		WHERE id = $1
		  AND status <> $2
		  AND ($4::text[] IS NULL OR status = ANY($4::text[]))
		RETURNING customer_email
	`

	var email string
	err = tx.QueryRow(ctx, query, id, string(to), paymentID, allowed).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().
				Str("order_id", id).
				Str("status", string(to)).
				Msg("status transition not applicable")
			return false, nil
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := notifyChange(ctx, tx, id, email); err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to notify order change")
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to commit status change")
		return false, fmt.Errorf("failed to commit status change: %w", err)
	}

	r.logger.Info().
		Str("order_id", id).
		Str("status", string(to)).
		Msg("order status changed")
	return true, nil
}
