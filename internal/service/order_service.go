package service

import (
	"context"
	"strings"

	"vapestore/internal/events"
	"vapestore/internal/model"
	"vapestore/internal/repository"

	"github.com/rs/zerolog"
)

const ordersUnavailable = "Orders are not available right now, please try again later"

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// GetByID retrieves an order with its items.
func (s *orderService) GetByID(ctx context.Context, id string) (*model.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.ErrOrderNotFound
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, model.Upstream("get order", ordersUnavailable, err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// ListByCustomer retrieves a customer's orders, newest first.
func (s *orderService) ListByCustomer(ctx context.Context, email string) ([]model.Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, model.ErrUnauthenticated
	}

	orders, err := s.orderRepo.ListByCustomer(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list customer orders")
		return nil, model.Upstream("list orders", ordersUnavailable, err)
	}
	return orders, nil
}

// ListAll retrieves every order, newest first.
func (s *orderService) ListAll(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, model.Upstream("list orders", ordersUnavailable, err)
	}
	return orders, nil
}

// SetStatus moves an order to any status of the closed set. Setting the
// status an order already has is a no-op.
func (s *orderService) SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	changed, err := s.orderRepo.TransitionStatus(ctx, id, status, "")
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to set order status")
		return nil, model.Upstream("set order status", "Could not update the order", err)
	}

	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info().
			Str("order_id", id).
			Str("status", string(status)).
			Msg("order status set by admin")
		s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderStatusChanged, order, "admin"))
	}
	return order, nil
}
