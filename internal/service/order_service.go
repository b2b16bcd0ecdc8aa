package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/ordernumber"
	"storefront/internal/repository"
	"storefront/internal/serviceability"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	orderCreatedNote = "Order created"

	defaultDeliveryWindow = 48 * time.Hour
	defaultMaxAttempts    = 3
)

// Repositories groups the stores the order workflow writes to.
type Repositories struct {
	Orders    repository.OrderRepository
	Customers repository.CustomerRepository
	Products  repository.ProductRepository
	Variants  repository.VariantRepository
}

// OrderServiceConfig tunes the order workflow.
type OrderServiceConfig struct {
	// Location decides the calendar day an order number belongs to.
	Location *time.Location

	// DeliveryWindow is added to the placement time when the request carries
	// no expected delivery date.
	DeliveryWindow time.Duration

	// MaxAttempts bounds how often a placement is run after write conflicts.
	MaxAttempts int
}

// orderService implements OrderService.
type orderService struct {
	repos     Repositories
	checker   serviceability.Checker
	metrics   *metrics.Metrics
	validator *requestValidator
	cfg       OrderServiceConfig
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service. checker and m may be nil.
func NewOrderService(
	repos Repositories,
	checker serviceability.Checker,
	m *metrics.Metrics,
	cfg OrderServiceConfig,
	logger zerolog.Logger,
) OrderService {
	if checker == nil {
		checker = serviceability.AllowAll()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DeliveryWindow <= 0 {
		cfg.DeliveryWindow = defaultDeliveryWindow
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	return &orderService{
		repos:     repos,
		checker:   checker,
		metrics:   m,
		validator: newRequestValidator(),
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// placement is a validated order request with parsed identifiers.
type placement struct {
	customerID       uuid.UUID
	items            []model.OrderItem
	req              *model.PlaceOrderRequest
	expectedDelivery *time.Time
}

// PlaceOrder places an order. Write conflicts with concurrent placements are
// retried from scratch; once attempts run out the caller gets ORDER_CONFLICT.
func (s *orderService) PlaceOrder(ctx context.Context, actor model.Actor, req *model.PlaceOrderRequest) (*model.Order, error) {
	order, err := s.placeOrder(ctx, actor, req)
	if err != nil {
		s.metrics.PlacementFailed(errorCode(err))
		return nil, err
	}

	s.metrics.OrderPlaced()

	return order, nil
}

func (s *orderService) placeOrder(ctx context.Context, actor model.Actor, req *model.PlaceOrderRequest) (*model.Order, error) {
	p, err := s.preparePlacement(req)
	if err != nil {
		s.logger.Debug().Err(err).Msg("order request rejected")
		return nil, err
	}

	if err := s.checker.Check(ctx, req.ShippingAddress.Pincode); err != nil {
		s.logger.Info().
			Str("customer_id", p.customerID.String()).
			Str("pincode", req.ShippingAddress.Pincode).
			Msg("pincode not serviceable")
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		order, err := s.placeOnce(ctx, actor, p)
		if err == nil {
			s.logger.Info().
				Str("order_id", order.ID.String()).
				Str("order_number", order.OrderNumber).
				Str("customer_id", order.CustomerID.String()).
				Int("item_count", len(order.Items)).
				Str("actor", actor.Name()).
				Msg("order placed successfully")
			return order, nil
		}

		if !repository.IsRetryable(err) {
			return nil, toDomainError(err, "Failed to place order")
		}

		if attempt >= s.cfg.MaxAttempts {
			s.logger.Warn().
				Err(err).
				Int("attempts", attempt).
				Str("customer_id", p.customerID.String()).
				Msg("order placement conflicted on every attempt")
			return nil, model.ErrOrderConflict
		}

		s.metrics.PlacementRetried()
		s.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Msg("order placement conflicted, retrying")
	}
}

// preparePlacement validates req, applies defaults and parses identifiers.
func (s *orderService) preparePlacement(req *model.PlaceOrderRequest) (*placement, error) {
	if req == nil {
		return nil, model.NewInvalidRequestError("order request is required")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	if req.Status == "" {
		req.Status = model.StatusPlaced
	}
	if req.Status == model.StatusCancelled {
		return nil, model.NewInvalidRequestError("an order cannot be created as cancelled")
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = model.PaymentMethodCOD
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = model.PaymentStatusPending
	}

	p := &placement{
		customerID: uuid.MustParse(req.CustomerID),
		items:      make([]model.OrderItem, len(req.Items)),
		req:        req,
	}

	for i, item := range req.Items {
		p.items[i] = model.OrderItem{
			ProductID:   uuid.MustParse(item.ProductID),
			VariantID:   uuid.MustParse(item.VariantID),
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			Price:       item.Price,
			SalePrice:   item.SalePrice,
			TotalPrice:  item.TotalPrice,
		}
	}

	if req.ExpectedDeliveryDate != nil && *req.ExpectedDeliveryDate != "" {
		t, err := parseDeliveryDate(*req.ExpectedDeliveryDate, s.cfg.Location)
		if err != nil {
			return nil, err
		}
		p.expectedDelivery = &t
	}

	return p, nil
}

// placeOnce runs one placement transaction.
func (s *orderService) placeOnce(ctx context.Context, actor model.Actor, p *placement) (order *model.Order, err error) {
	tx, err := s.repos.Orders.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	exists, err := s.repos.Customers.Exists(ctx, tx, p.customerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.ErrCustomerNotFound
	}

	for _, item := range p.items {
		if err = s.reserveStock(ctx, tx, item); err != nil {
			return nil, err
		}
	}

	now := s.now()
	orderNumber, err := s.allocateOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	order = s.buildOrder(actor, p, orderNumber, now)

	if err = s.repos.Orders.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	// The customer's address book is overwritten with the shipping address.
	err = s.repos.Customers.ReplaceAddresses(ctx, tx, p.customerID, []model.ShippingAddress{order.ShippingAddress})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	return order, nil
}

// reserveStock checks the item's product and variant and takes its quantity
// from stock. The variant row stays locked until the transaction ends.
func (s *orderService) reserveStock(ctx context.Context, tx pgx.Tx, item model.OrderItem) error {
	product, err := s.repos.Products.GetByIDTx(ctx, tx, item.ProductID)
	if err != nil {
		return err
	}
	if product == nil {
		return model.NewProductNotFoundError(item.ProductID.String())
	}

	variant, err := s.repos.Variants.GetForUpdate(ctx, tx, item.VariantID)
	if err != nil {
		return err
	}
	if variant == nil {
		return model.NewVariantNotFoundError(item.VariantID.String())
	}

	if variant.Quantity < item.Quantity {
		s.logger.Info().
			Str("variant_id", item.VariantID.String()).
			Str("sku", item.SKU).
			Int("available", variant.Quantity).
			Int("requested", item.Quantity).
			Msg("insufficient stock")
		return model.NewInsufficientStockError(item.ProductName, item.SKU, variant.Quantity, item.Quantity)
	}

	ok, err := s.repos.Variants.DecrementStock(ctx, tx, item.VariantID, item.Quantity)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewInsufficientStockError(item.ProductName, item.SKU, variant.Quantity, item.Quantity)
	}

	return nil
}

func (s *orderService) allocateOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	local := now.In(s.cfg.Location)

	seq, err := s.repos.Orders.NextSequence(ctx, tx, local, ordernumber.Prefix(local))
	if err != nil {
		return "", err
	}

	orderNumber, err := ordernumber.Format(local, seq)
	if err != nil {
		s.logger.Error().Err(err).Int("sequence", seq).Msg("daily order number space exhausted")
		return "", model.NewInternalError("Order numbers for today are exhausted", err)
	}

	return orderNumber, nil
}

func (s *orderService) buildOrder(actor model.Actor, p *placement, orderNumber string, now time.Time) *model.Order {
	req := p.req
	now = now.UTC()

	expected := now.Add(s.cfg.DeliveryWindow)
	if p.expectedDelivery != nil {
		expected = *p.expectedDelivery
	}

	return &model.Order{
		ID:              uuid.New(),
		OrderNumber:     orderNumber,
		CustomerID:      p.customerID,
		Items:           p.items,
		Subtotal:        req.Subtotal,
		ShippingCost:    valueOrZero(req.ShippingCost),
		Tax:             valueOrZero(req.Tax),
		Discount:        valueOrZero(req.Discount),
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   req.PaymentStatus,
		ShippingAddress: *req.ShippingAddress,
		Status:          req.Status,
		StatusHistory: []model.StatusHistoryEntry{
			{
				Status:    req.Status,
				Timestamp: now,
				Note:      orderCreatedNote,
				ChangedBy: actor.Name(),
			},
		},
		ExpectedDeliveryDate: expected,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// GetOrder retrieves an order by its ID.
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.repos.Orders.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, model.NewInternalError("Failed to get order", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// GetOrderByNumber retrieves an order by its order number.
func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	if _, _, err := ordernumber.Parse(orderNumber); err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("invalid order number %q", orderNumber))
	}

	order, err := s.repos.Orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to get order")
		return nil, model.NewInternalError("Failed to get order", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// GetCustomerOrder hides orders of other customers behind ORDER_NOT_FOUND.
func (s *orderService) GetCustomerOrder(ctx context.Context, customerID, id uuid.UUID) (*model.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		s.logger.Debug().
			Str("order_id", id.String()).
			Str("customer_id", customerID.String()).
			Msg("order belongs to another customer")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// UpdateStatus applies a status transition. Cancelling an order returns its
// stock to the variants in the same transaction.
func (s *orderService) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateStatusRequest) (*model.Order, error) {
	if req == nil {
		return nil, model.NewInvalidRequestError("status request is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var expected *time.Time
	if req.ExpectedDeliveryDate != nil && *req.ExpectedDeliveryDate != "" {
		t, err := parseDeliveryDate(*req.ExpectedDeliveryDate, s.cfg.Location)
		if err != nil {
			return nil, err
		}
		expected = &t
	}

	var order *model.Order
	err := s.retryConflicts("update status", func() error {
		var err error
		order, err = s.updateStatus(ctx, actor, id, req, expected)
		return err
	})
	if err != nil {
		return nil, toDomainError(err, "Failed to update order status")
	}

	s.metrics.StatusChanged(string(order.Status))

	return order, nil
}

func (s *orderService) updateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateStatusRequest, expected *time.Time) (order *model.Order, err error) {
	tx, err := s.repos.Orders.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err = s.repos.Orders.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	from := order.Status
	if !from.CanTransitionTo(req.Status) {
		return nil, model.NewInvalidStatusTransitionError(from, req.Status)
	}

	now := s.now().UTC()
	note := req.Note
	if note == "" {
		note = fmt.Sprintf("Status changed to %s", req.Status)
	}

	order.StatusHistory = append(order.StatusHistory, model.StatusHistoryEntry{
		Status:    req.Status,
		Timestamp: now,
		Note:      note,
		ChangedBy: actor.Name(),
	})
	order.Status = req.Status
	order.UpdatedAt = now
	if expected != nil {
		order.ExpectedDeliveryDate = *expected
	}

	if from.HoldsStock() && !order.Status.HoldsStock() {
		if err = s.restoreStock(ctx, tx, order); err != nil {
			return nil, err
		}
	}

	if err = s.repos.Orders.UpdateStatus(ctx, tx, order); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(order.Status)).
		Str("actor", actor.Name()).
		Msg("order status updated")

	return order, nil
}

// DeleteOrder deletes a placed or cancelled order. A placed order still holds
// its stock, which is returned; a cancelled one gave it back already.
func (s *orderService) DeleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	err := s.retryConflicts("delete order", func() error {
		return s.deleteOrder(ctx, actor, id)
	})
	if err != nil {
		return toDomainError(err, "Failed to delete order")
	}
	return nil
}

func (s *orderService) deleteOrder(ctx context.Context, actor model.Actor, id uuid.UUID) (err error) {
	tx, err := s.repos.Orders.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.repos.Orders.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return model.ErrOrderNotFound
	}

	if !order.Status.Deletable() {
		return model.ErrCannotDeleteOrder
	}

	if order.Status.HoldsStock() {
		if err = s.restoreStock(ctx, tx, order); err != nil {
			return err
		}
	}

	if err = s.repos.Orders.Delete(ctx, tx, id); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("order_number", order.OrderNumber).
		Str("status", string(order.Status)).
		Str("actor", actor.Name()).
		Msg("order deleted")

	return nil
}

func (s *orderService) restoreStock(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	for _, item := range order.Items {
		if err := s.repos.Variants.RestoreStock(ctx, tx, item.VariantID, item.Quantity); err != nil {
			return err
		}
	}

	s.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Msg("stock restored")

	return nil
}

// retryConflicts runs fn again while it fails with a retryable write conflict,
// up to MaxAttempts runs.
func (s *orderService) retryConflicts(op string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !repository.IsRetryable(err) {
			return err
		}

		if attempt >= s.cfg.MaxAttempts {
			s.logger.Warn().Err(err).Str("operation", op).Int("attempts", attempt).Msg("write conflict on every attempt")
			return model.ErrOrderConflict
		}

		s.logger.Debug().Err(err).Str("operation", op).Int("attempt", attempt).Msg("write conflict, retrying")
	}
}

// toDomainError passes domain errors through and wraps anything else as an
// internal error carrying message.
func toDomainError(err error, message string) error {
	if _, ok := model.AsDomainError(err); ok {
		return err
	}
	return model.NewInternalError(message, err)
}

func errorCode(err error) string {
	var de *model.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return model.ErrCodeInternalError
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
