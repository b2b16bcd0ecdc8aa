package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductService is a mock implementation of ProductService.
type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetByID(ctx context.Context, id uuid.UUID) (*model.ProductResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductResponse), args.Error(1)
}

func TestProductHandler_GetByID(t *testing.T) {
	logger := zerolog.Nop()

	productID := uuid.New()
	testProduct := &model.ProductResponse{
		Product: model.Product{
			ID:        productID,
			Name:      "Linen Shirt",
			Status:    "active",
			CreatedAt: time.Now(),
		},
		Variants: []model.Variant{
			{ID: uuid.New(), ProductID: productID, SKU: "LS-M", Price: 499, Quantity: 5, IsActive: true},
		},
	}

	tests := []struct {
		name           string
		id             string
		mockReturn     *model.ProductResponse
		mockError      error
		expectedStatus int
		expectService  bool
	}{
		{
			name:           "Success",
			id:             productID.String(),
			mockReturn:     testProduct,
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "Product not found",
			id:             uuid.NewString(),
			mockError:      model.NewProductNotFoundError("x"),
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "Service error",
			id:             uuid.NewString(),
			mockError:      errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectService:  true,
		},
		{
			name:           "Invalid product ID",
			id:             "P001",
			expectedStatus: http.StatusBadRequest,
			expectService:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockProductService)
			handler := NewProductHandler(mockService, logger)

			if tt.expectService {
				mockService.On("GetByID", mock.Anything, uuid.MustParse(tt.id)).
					Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/products/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.GetByID(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var got model.ProductResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, productID, got.ID)
				require.Len(t, got.Variants, 1)
				assert.Equal(t, 5, got.Variants[0].Quantity)
			}

			if tt.expectService {
				mockService.AssertExpectations(t)
			}
		})
	}
}
