package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"vapestore/internal/events"
	"vapestore/internal/model"
	"vapestore/internal/payment"
	"vapestore/internal/repository"
	"vapestore/internal/session"

	"github.com/rs/zerolog"
)

const paymentLinkFailed = "Could not create the payment link, please try again"

// CheckoutConfig holds the store settings sent to the gateway.
type CheckoutConfig struct {
	PublicURL           string
	Currency            string
	StatementDescriptor string
	WebhookSecret       string
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	publisher events.Publisher
	cfg       CheckoutConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewCheckoutService creates the checkout orchestrator.
func NewCheckoutService(
	orderRepo repository.OrderRepository,
	gateway PaymentGateway,
	publisher events.Publisher,
	cfg CheckoutConfig,
	logger zerolog.Logger,
) CheckoutService {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &checkoutService{
		orderRepo: orderRepo,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout stores a pending order for the session cart and returns the
// hosted payment link.
func (s *checkoutService) Checkout(ctx context.Context, st *session.State, c Customer) (*CheckoutResult, error) {
	order, err := s.placeOrder(ctx, st, c)
	if err != nil {
		return nil, err
	}

	items := make([]payment.PreferenceItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = payment.PreferenceItem{
			ID:         strconv.Itoa(it.Product.ID),
			Title:      it.Product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.Product.Price,
			CurrencyID: order.Currency,
			PictureURL: it.Product.ImageURL,
		}
	}

	initPoint, err := s.createPreference(ctx, items, order.ID, &payment.Payer{Name: order.CustomerName, Email: order.CustomerEmail})
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{OrderID: order.ID, InitPoint: initPoint}, nil
}

// CreatePreference creates a payment link for an order that already exists
// and is still waiting for payment.
func (s *checkoutService) CreatePreference(ctx context.Context, items []payment.PreferenceItem, orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if len(items) == 0 || orderID == "" {
		return "", model.InvalidRequest("Missing required fields: items or orderId")
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return "", model.ErrInvalidQuantity
		}
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to look up order for preference")
		return "", model.Upstream("get order", ordersUnavailable, err)
	}
	if order == nil {
		return "", model.ErrOrderNotFound
	}
	if order.Status != model.StatusPending {
		return "", model.ErrOrderNotPending
	}

	for i := range items {
		if items[i].CurrencyID == "" {
			items[i].CurrencyID = s.cfg.Currency
		}
	}

	return s.createPreference(ctx, items, orderID, &payment.Payer{Name: order.CustomerName, Email: order.CustomerEmail})
}

func (s *checkoutService) createPreference(ctx context.Context, items []payment.PreferenceItem, orderID string, payer *payment.Payer) (string, error) {
	pref, err := s.gateway.CreatePreference(ctx, payment.PreferenceRequest{
		Items:             items,
		Payer:             payer,
		ExternalReference: orderID,
		BackURLs: payment.BackURLs{
			Success: s.cfg.PublicURL + "/success",
			Failure: s.cfg.PublicURL + "/failure",
			Pending: s.cfg.PublicURL + "/pending",
		},
		AutoReturn:          payment.AutoReturnApproved,
		NotificationURL:     s.cfg.PublicURL + "/api/payments/webhook",
		StatementDescriptor: s.cfg.StatementDescriptor,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to create payment preference")
		return "", model.Upstream("create preference", paymentLinkFailed, err)
	}
	if pref.InitPoint == "" {
		s.logger.Error().
			Str("order_id", orderID).
			Str("preference_id", pref.ID).
			Msg("payment preference has no init point")
		return "", model.ErrMissingInitPoint
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("preference_id", pref.ID).
		Msg("payment link created")
	return pref.InitPoint, nil
}

// PayDirect stores a pending order and charges a card token for it.
func (s *checkoutService) PayDirect(ctx context.Context, st *session.State, c Customer, form DirectPaymentForm) (*DirectPaymentResult, error) {
	if strings.TrimSpace(form.Token) == "" || strings.TrimSpace(form.PaymentMethodID) == "" {
		return nil, model.InvalidRequest("Missing card token or payment method")
	}
	if form.Installments <= 0 {
		form.Installments = 1
	}

	order, err := s.placeOrder(ctx, st, c)
	if err != nil {
		return nil, err
	}

	payer := payment.Payer{Email: order.CustomerEmail}
	if form.Payer != nil {
		payer = *form.Payer
		if payer.Email == "" {
			payer.Email = order.CustomerEmail
		}
	}

	p, err := s.gateway.CreatePayment(ctx, payment.PaymentRequest{
		Token:               form.Token,
		IssuerID:            form.IssuerID,
		PaymentMethodID:     form.PaymentMethodID,
		TransactionAmount:   payment.Amount(order.Total),
		Installments:        form.Installments,
		Payer:               payer,
		Description:         "Compra en " + s.cfg.StatementDescriptor + " - Pedido " + order.ID,
		StatementDescriptor: s.cfg.StatementDescriptor,
		ExternalReference:   order.ID,
		NotificationURL:     s.cfg.PublicURL + "/api/payments/webhook",
	}, "")
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("direct payment failed")
		message := "Could not process the payment, please try again"
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.Error()
		}
		return nil, model.Upstream("create payment", message, err)
	}

	result := &DirectPaymentResult{
		OrderID:      order.ID,
		PaymentID:    p.IDString(),
		Status:       p.Status,
		StatusDetail: p.StatusDetail,
		OrderStatus:  order.Status,
	}

	// The card is charged once the gateway approves. A failed or no-op
	// store write does not change that; the webhook settles the order.
	to, moves := payment.OrderStatusFor(p.Status)
	approved := moves && to == model.StatusProcessing

	updated, err := s.reconcile(ctx, order, p, "direct")
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("payment accepted, order left for the webhook")
	case updated != nil:
		result.OrderStatus = updated.Status
	case moves:
		current, err := s.orderRepo.GetByID(ctx, order.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to re-read order after payment")
		} else if current != nil {
			result.OrderStatus = current.Status
		}
	}

	if approved {
		st.Cart.Clear()
	}
	return result, nil
}

// placeOrder validates the cart and contact data and writes the pending
// order. Nothing is stored when validation fails.
func (s *checkoutService) placeOrder(ctx context.Context, st *session.State, c Customer) (*model.Order, error) {
	if st.Cart.IsEmpty() {
		return nil, model.ErrEmptyCart
	}
	name := strings.TrimSpace(c.Name)
	email := strings.TrimSpace(c.Email)
	if name == "" || email == "" {
		return nil, model.ErrMissingContact
	}

	// Total is derived from the stored lines so the two never disagree.
	items := st.Cart.Snapshot()
	now := s.now().UTC()
	order := &model.Order{
		ID:            model.NewOrderID(),
		CreatedAt:     now,
		UpdatedAt:     now,
		CustomerName:  name,
		CustomerEmail: email,
		Items:         items,
		Total:         model.ItemsTotal(items),
		Currency:      s.cfg.Currency,
		Status:        model.StatusPending,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to store order")
		return nil, model.Upstream("create order", "Could not save your order, please try again", err)
	}

	st.RecordOrder(*order)
	s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderCreated, order, "checkout"))

	s.logger.Info().
		Str("order_id", order.ID).
		Int("items", len(order.Items)).
		Int64("total", int64(order.Total)).
		Msg("order placed")
	return order, nil
}

// HandleWebhook verifies and applies a gateway notification.
func (s *checkoutService) HandleWebhook(ctx context.Context, req WebhookRequest) error {
	if req.Signature != "" {
		if err := payment.VerifySignature(s.cfg.WebhookSecret, req.DataID, req.RequestID, req.Signature); err != nil {
			s.logger.Warn().
				Err(err).
				Str("data_id", req.DataID).
				Str("request_id", req.RequestID).
				Msg("webhook signature rejected")
			return model.ErrInvalidSignature
		}
	} else {
		s.logger.Warn().Str("data_id", req.DataID).Msg("webhook received without signature")
	}

	if req.Type != "payment" || req.DataID == "" {
		s.logger.Debug().Str("type", req.Type).Msg("ignoring webhook")
		return nil
	}

	p, err := s.gateway.GetPayment(ctx, req.DataID)
	if err != nil {
		s.logger.Error().Err(err).Str("payment_id", req.DataID).Msg("failed to fetch notified payment")
		return model.Upstream("get payment", "Could not fetch the payment", err)
	}

	_, err = s.reconcileByReference(ctx, p, "webhook")
	return err
}

// ReconcileRedirect applies the gateway's view of a redirected payment. The
// outcome in the URL is never trusted on its own.
func (s *checkoutService) ReconcileRedirect(ctx context.Context, outcome, orderID, paymentID string) (*model.Order, error) {
	if paymentID != "" && paymentID != "null" {
		p, err := s.gateway.GetPayment(ctx, paymentID)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("outcome", outcome).
				Str("payment_id", paymentID).
				Msg("failed to fetch redirected payment")
		} else {
			if orderID == "" {
				orderID = p.ExternalReference
			}
			if p.ExternalReference == orderID {
				if _, err := s.reconcileByReference(ctx, p, "redirect"); err != nil {
					return nil, err
				}
			} else {
				s.logger.Warn().
					Str("order_id", orderID).
					Str("external_reference", p.ExternalReference).
					Msg("redirect payment belongs to another order")
			}
		}
	}

	if orderID == "" {
		return nil, nil
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to read redirected order")
		return nil, model.Upstream("get order", ordersUnavailable, err)
	}
	return order, nil
}

func (s *checkoutService) reconcileByReference(ctx context.Context, p *payment.Payment, source string) (*model.Order, error) {
	if p.ExternalReference == "" {
		s.logger.Warn().Int64("payment_id", p.ID).Msg("payment has no external reference")
		return nil, nil
	}

	order, err := s.orderRepo.GetByID(ctx, p.ExternalReference)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", p.ExternalReference).Msg("failed to look up paid order")
		return nil, model.Upstream("get order", ordersUnavailable, err)
	}
	if order == nil {
		s.logger.Warn().
			Str("order_id", p.ExternalReference).
			Int64("payment_id", p.ID).
			Msg("payment references an unknown order")
		return nil, nil
	}
	return s.reconcile(ctx, order, p, source)
}

// reconcile moves the order to the status the payment implies. It returns
// the updated order, or nil when nothing changed.
func (s *checkoutService) reconcile(ctx context.Context, order *model.Order, p *payment.Payment, source string) (*model.Order, error) {
	log := s.logger.With().
		Str("order_id", order.ID).
		Int64("payment_id", p.ID).
		Str("payment_status", p.Status).
		Str("source", source).
		Logger()

	to, ok := payment.OrderStatusFor(p.Status)
	if !ok {
		log.Debug().Msg("payment status does not move the order")
		return nil, nil
	}
	from := model.GatewayTransition(to)
	if len(from) == 0 {
		return nil, nil
	}

	if to == model.StatusProcessing && !p.PaidAmountMatches(order.Total) {
		log.Error().
			Str("paid", p.TransactionAmount.String()).
			Int64("total", int64(order.Total)).
			Msg("paid amount does not match order total, leaving order pending")
		return nil, nil
	}

	changed, err := s.orderRepo.TransitionStatus(ctx, order.ID, to, p.IDString(), from...)
	if err != nil {
		log.Error().Err(err).Msg("failed to apply payment status")
		return nil, model.Upstream("update order status", ordersUnavailable, err)
	}
	if !changed {
		log.Debug().Msg("order already reconciled")
		return nil, nil
	}

	updated := *order
	updated.Status = to
	updated.PaymentID = p.IDString()
	updated.UpdatedAt = s.now().UTC()

	log.Info().Str("status", string(to)).Msg("order reconciled with payment")
	s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderStatusChanged, &updated, source))
	return &updated, nil
}
