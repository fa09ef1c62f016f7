package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vapestore/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func catalogFixture() []model.Product {
	return []model.Product{
		{ID: 1, Name: "BALI 12 K Nicotina Free", Category: "Pod Desechable", Price: 1450},
		{ID: 2, Name: "ELFBAR 14k Touch", Category: "Pod Desechable", Price: 1100},
		{ID: 3, Name: "Vaporesso GTX Coil", Category: "Resistencias", Price: 450},
		{ID: 4, Name: "elfbar 40K Ice King", Category: "Pod Desechable", Price: 1800},
	}
}

func ids(products []model.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []int
	}{
		{name: "no filter keeps id order", filter: Filter{}, wantIDs: []int{1, 2, 3, 4}},
		{name: "category", filter: Filter{Category: "Resistencias"}, wantIDs: []int{3}},
		{name: "brand is case insensitive", filter: Filter{Brand: "ELFBAR"}, wantIDs: []int{2, 4}},
		{name: "max price", filter: Filter{MaxPrice: 1200}, wantIDs: []int{2, 3}},
		{name: "price ascending", filter: Filter{Sort: SortByPriceAsc}, wantIDs: []int{3, 2, 1, 4}},
		{name: "price descending", filter: Filter{Sort: SortByPriceDesc}, wantIDs: []int{4, 1, 2, 3}},
		{name: "name", filter: Filter{Sort: SortByName}, wantIDs: []int{1, 2, 4, 3}},
		{name: "combined", filter: Filter{Category: "Pod Desechable", MaxPrice: 1500, Sort: SortByPriceDesc}, wantIDs: []int{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			repo.On("List", ctx).Return(catalogFixture(), nil)

			products, err := NewProductService(repo, nil, zerolog.Nop()).List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(products))
		})
	}
}

func TestProductService_List_StoreError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	repo.On("List", ctx).Return(nil, errors.New("connection refused"))

	_, err := NewProductService(repo, nil, zerolog.Nop()).List(ctx, Filter{})

	var ue *model.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, catalogUnavailable, ue.Message)
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		id        int
		mockSetup func(*MockProductRepository)
		wantErr   error
	}{
		{
			name: "found",
			id:   1,
			mockSetup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, 1).Return(&model.Product{ID: 1, Name: "BALI"}, nil)
			},
		},
		{
			name: "not found",
			id:   9,
			mockSetup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, 9).Return(nil, nil)
			},
			wantErr: model.ErrProductNotFound,
		},
		{
			name:      "non-positive id",
			id:        0,
			mockSetup: func(m *MockProductRepository) {},
			wantErr:   model.ErrProductNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			tt.mockSetup(repo)

			p, err := NewProductService(repo, nil, zerolog.Nop()).GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.id, p.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates id through the store", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Create", ctx, mock.AnythingOfType("*model.Product")).
			Run(func(args mock.Arguments) { args.Get(1).(*model.Product).ID = 13 }).
			Return(nil)

		p, err := NewProductService(repo, nil, zerolog.Nop()).Create(ctx, &model.Product{Name: "New", Price: 100})
		require.NoError(t, err)
		assert.Equal(t, 13, p.ID)
	})

	t.Run("invalid product never reaches the store", func(t *testing.T) {
		repo := new(MockProductRepository)
		_, err := NewProductService(repo, nil, zerolog.Nop()).Create(ctx, &model.Product{Name: "", Price: 100})

		var de *model.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, model.ErrCodeInvalidProduct, de.Code)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestProductService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	repo.On("Update", ctx, mock.MatchedBy(func(p *model.Product) bool { return p.ID == 1 })).Return(true, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(p *model.Product) bool { return p.ID == 2 })).Return(false, nil)
	repo.On("Delete", ctx, 1).Return(true, nil)
	repo.On("Delete", ctx, 2).Return(false, nil)

	svc := NewProductService(repo, nil, zerolog.Nop())

	_, err := svc.Update(ctx, &model.Product{ID: 1, Name: "A", Price: 1})
	assert.NoError(t, err)
	_, err = svc.Update(ctx, &model.Product{ID: 2, Name: "B", Price: 1})
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	_, err = svc.Update(ctx, &model.Product{ID: 1, Name: "A", Price: 1, Stock: -1})
	assert.Error(t, err)

	assert.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 2), model.ErrProductNotFound)
}

func TestProductService_AddReview(t *testing.T) {
	ctx := context.Background()
	user := &model.User{Name: "Ana G", Email: "ana@example.com", Avatar: model.AvatarURL("Ana G")}
	now := time.Date(2025, 3, 7, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		user    *model.User
		rating  int
		comment string
		wantErr error
	}{
		{name: "anonymous", user: nil, rating: 5, comment: "great", wantErr: model.ErrUnauthenticated},
		{name: "rating too low", user: user, rating: 0, comment: "meh", wantErr: model.ErrInvalidRating},
		{name: "rating too high", user: user, rating: 6, comment: "wow", wantErr: model.ErrInvalidRating},
		{name: "blank comment", user: user, rating: 4, comment: "   ", wantErr: model.InvalidRequest("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockProductRepository)
			_, err := NewProductService(repo, nil, zerolog.Nop()).AddReview(ctx, 1, tt.user, tt.rating, tt.comment)
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "PrependReview", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("prepends a dated review", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo, nil, zerolog.Nop()).(*productService)
		svc.now = func() time.Time { return now }

		want := model.NewReview("Ana G", user.Avatar, 5, "Excelente", now)
		repo.On("PrependReview", ctx, 1, want).
			Return(&model.Product{ID: 1, Reviews: []model.Review{want}}, nil)

		p, err := svc.AddReview(ctx, 1, user, 5, "  Excelente ")
		require.NoError(t, err)
		assert.Equal(t, "07/03/2025", p.Reviews[0].Date)
		assert.Equal(t, model.RatingSummary{Average: 5, Count: 1}, p.Rating())
	})

	t.Run("unknown product", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("PrependReview", ctx, 99, mock.Anything).Return(nil, nil)

		_, err := NewProductService(repo, nil, zerolog.Nop()).AddReview(ctx, 99, user, 3, "ok")
		assert.ErrorIs(t, err, model.ErrProductNotFound)
	})
}

func TestProductService_SetImage(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		_, err := NewProductService(new(MockProductRepository), nil, zerolog.Nop()).
			SetImage(ctx, 1, ImageUpload{Filename: "a.png"})
		assert.ErrorIs(t, err, model.ErrImageStoreDisabled)
	})

	t.Run("uploads and stores the url", func(t *testing.T) {
		repo := new(MockProductRepository)
		images := new(MockImageStore)
		body := strings.NewReader("png")

		repo.On("GetByID", ctx, 1).Return(&model.Product{ID: 1, Name: "BALI"}, nil)
		images.On("Upload", ctx, 1, "a.png", "image/png", body).Return("https://cdn/products/1/x.png", nil)
		repo.On("SetImageURL", ctx, 1, "https://cdn/products/1/x.png").Return(true, nil)

		p, err := NewProductService(repo, images, zerolog.Nop()).
			SetImage(ctx, 1, ImageUpload{Filename: "a.png", ContentType: "image/png", Body: body})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/products/1/x.png", p.ImageURL)
		images.AssertExpectations(t)
	})

	t.Run("unknown product is not uploaded", func(t *testing.T) {
		repo := new(MockProductRepository)
		images := new(MockImageStore)
		repo.On("GetByID", ctx, 5).Return(nil, nil)

		_, err := NewProductService(repo, images, zerolog.Nop()).SetImage(ctx, 5, ImageUpload{Filename: "a.png"})
		assert.ErrorIs(t, err, model.ErrProductNotFound)
		images.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestProductService_SeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	products := catalogFixture()

	repo := new(MockProductRepository)
	repo.On("SeedIfEmpty", ctx, products).Return(true, nil).Once()
	repo.On("SeedIfEmpty", ctx, products).Return(false, nil).Once()
	svc := NewProductService(repo, nil, zerolog.Nop())

	seeded, err := svc.SeedIfEmpty(ctx, products)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = svc.SeedIfEmpty(ctx, products)
	require.NoError(t, err)
	assert.False(t, seeded)

	_, err = svc.SeedIfEmpty(ctx, []model.Product{{Name: "no id", Price: 1}})
	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "SeedIfEmpty", 2)
}
