package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) ListVariants(ctx context.Context, productID uuid.UUID) ([]model.Variant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Variant), args.Error(1)
}

func TestProductService_GetByID(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	productID := uuid.New()
	product := &model.Product{ID: productID, Name: "Linen Shirt", Status: "active"}
	variants := []model.Variant{
		{ID: uuid.New(), ProductID: productID, SKU: "LS-M", Price: 999, Quantity: 4, IsActive: true},
	}

	tests := []struct {
		name         string
		setup        func(m *MockProductRepository)
		expectedCode string
	}{
		{
			name: "Product with variants",
			setup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, productID).Return(product, nil)
				m.On("ListVariants", ctx, productID).Return(variants, nil)
			},
		},
		{
			name: "Product not found",
			setup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, productID).Return(nil, nil)
			},
			expectedCode: model.ErrCodeProductNotFound,
		},
		{
			name: "Repository error",
			setup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, productID).Return(nil, errors.New("database error"))
			},
			expectedCode: model.ErrCodeInternalError,
		},
		{
			name: "Variant query error",
			setup: func(m *MockProductRepository) {
				m.On("GetByID", ctx, productID).Return(product, nil)
				m.On("ListVariants", ctx, productID).Return(nil, errors.New("database error"))
			},
			expectedCode: model.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockProductRepository)
			tt.setup(mockRepo)
			svc := NewProductService(mockRepo, logger)

			resp, err := svc.GetByID(ctx, productID)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.True(t, model.HasCode(err, tt.expectedCode), "got %v", err)
				assert.Nil(t, resp)
			} else {
				require.NoError(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, "Linen Shirt", resp.Name)
				assert.Equal(t, variants, resp.Variants)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}
