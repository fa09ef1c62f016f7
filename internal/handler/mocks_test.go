package handler

import (
	"context"
	"net/http"
	"time"

	"vapestore/internal/advisor"
	"vapestore/internal/model"
	"vapestore/internal/payment"
	"vapestore/internal/service"
	"vapestore/internal/session"

	"github.com/stretchr/testify/mock"
)

// MockProductService is a mock implementation of service.ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) List(ctx context.Context, f service.Filter) ([]model.Product, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductService) GetByID(ctx context.Context, id int) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Create(ctx context.Context, p *model.Product) (*model.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, p *model.Product) (*model.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) SetImage(ctx context.Context, id int, upload service.ImageUpload) (*model.Product, error) {
	args := m.Called(ctx, id, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) AddReview(ctx context.Context, productID int, user *model.User, rating int, comment string) (*model.Product, error) {
	args := m.Called(ctx, productID, user, rating, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) SeedIfEmpty(ctx context.Context, products []model.Product) (bool, error) {
	args := m.Called(ctx, products)
	return args.Bool(0), args.Error(1)
}

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListByCustomer(ctx context.Context, email string) ([]model.Order, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockCheckoutService is a mock implementation of service.CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, st *session.State, c service.Customer) (*service.CheckoutResult, error) {
	args := m.Called(ctx, st, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CheckoutResult), args.Error(1)
}

func (m *MockCheckoutService) CreatePreference(ctx context.Context, items []payment.PreferenceItem, orderID string) (string, error) {
	args := m.Called(ctx, items, orderID)
	return args.String(0), args.Error(1)
}

func (m *MockCheckoutService) PayDirect(ctx context.Context, st *session.State, c service.Customer, form service.DirectPaymentForm) (*service.DirectPaymentResult, error) {
	args := m.Called(ctx, st, c, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DirectPaymentResult), args.Error(1)
}

func (m *MockCheckoutService) HandleWebhook(ctx context.Context, req service.WebhookRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockCheckoutService) ReconcileRedirect(ctx context.Context, outcome, orderID, paymentID string) (*model.Order, error) {
	args := m.Called(ctx, outcome, orderID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockAdvisor is a mock implementation of Advisor.
type MockAdvisor struct {
	mock.Mock
}

func (m *MockAdvisor) Recommend(ctx context.Context, answers advisor.Answers, products []model.Product) ([]advisor.Recommendation, error) {
	args := m.Called(ctx, answers, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]advisor.Recommendation), args.Error(1)
}

func (m *MockAdvisor) Upsell(ctx context.Context, cartNames []string, products []model.Product) *advisor.Recommendation {
	args := m.Called(ctx, cartNames, products)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*advisor.Recommendation)
}

func (m *MockAdvisor) Chat(ctx context.Context, products []model.Product, history []advisor.Message, message string, onDelta func(string) error) (*advisor.ChatResult, error) {
	args := m.Called(ctx, products, history, message, onDelta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*advisor.ChatResult), args.Error(1)
}

// fakeStream is an OrderStream fed by the test.
type fakeStream struct {
	ch    chan []model.Order
	email string
	err   error
}

func (f *fakeStream) Subscribe(_ context.Context, email string) (<-chan []model.Order, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.email = email
	return f.ch, func() {}, nil
}

// bind attaches a fresh session to the request.
func bind(r *http.Request) (*http.Request, *session.Session) {
	sess := session.New(time.Hour)
	return r.WithContext(session.WithSession(r.Context(), sess)), sess
}

// loggedIn attaches a session with a logged in user.
func loggedIn(r *http.Request, name, email string) (*http.Request, *session.Session) {
	r, sess := bind(r)
	_ = sess.Do(func(st *session.State) error { return st.Login(name, email) })
	return r, sess
}

var mockCtx = mock.Anything
