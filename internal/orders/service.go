// Package orders manages the order lifecycle: placement, payment, shipment and cancellation.
package orders

import (
	"context"
	"fmt"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
)

// Order lifecycle transitions reported to metrics.
const (
	transitionPlaced   = "placed"
	transitionPaid     = "paid"
	transitionShipped  = "shipped"
	transitionCanceled = "canceled"
)

// Service implements order business logic.
type Service struct {
	repo Repository
}

// NewService creates a new orders service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PlaceOrderInput holds the customer-supplied order fields.
type PlaceOrderInput struct {
	Email    string
	Name     string
	PartID   string
	PartName string
	Quantity int
	Amount   float64
	Address  string
	Phone    string
}

// PaymentInput holds the details of a completed payment.
type PaymentInput struct {
	TransactionID string
	Amount        float64
	Method        string
}

// PlaceOrder stores a new unpaid order. The order belongs to caller unless
// the input names another email.
func (s *Service) PlaceOrder(ctx context.Context, caller string, input PlaceOrderInput) (*domain.Order, error) {
	email := input.Email
	if email == "" {
		email = caller
	}

	order := &domain.Order{
		Email:    domain.NormalizeEmail(email),
		Name:     input.Name,
		PartID:   input.PartID,
		PartName: input.PartName,
		Quantity: input.Quantity,
		Amount:   input.Amount,
		Address:  input.Address,
		Phone:    input.Phone,
		Status:   domain.OrderStatusUnpaid,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrderTransitions.WithLabelValues(transitionPlaced).Inc()
	ctxlog.FromContext(ctx).Info("order placed", "order_id", order.ID, "email", order.Email, "amount", order.Amount)

	return order, nil
}

// GetOrder returns an order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrdersByEmail returns the orders placed for email.
func (s *Service) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return s.repo.ListOrdersByEmail(ctx, domain.NormalizeEmail(email))
}

// ListOrders returns every order.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx)
}

// ConfirmPayment records a payment for an unpaid order and moves it to pending.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string, input PaymentInput) (*domain.Payment, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaid() {
		return nil, ErrOrderAlreadyPaid
	}

	amount := input.Amount
	if amount == 0 {
		amount = order.Amount
	}

	payment := &domain.Payment{
		OrderID:       order.ID,
		TransactionID: input.TransactionID,
		Amount:        amount,
		Method:        input.Method,
		Email:         order.Email,
		Status:        domain.PaymentStatusRecorded,
	}

	if err := s.repo.ConfirmPayment(ctx, order.ID, payment); err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(transitionPaid).Inc()
	ctxlog.FromContext(ctx).Info("order paid",
		"order_id", order.ID,
		"payment_id", payment.ID,
		"transaction_id", payment.TransactionID,
	)

	return payment, nil
}

// ShipOrder marks an order shipped. Repeating it is a no-op.
func (s *Service) ShipOrder(ctx context.Context, id string) error {
	changed, err := s.repo.SetStatus(ctx, id, domain.OrderStatusShipped)
	if err != nil {
		return err
	}
	if changed {
		metrics.OrderTransitions.WithLabelValues(transitionShipped).Inc()
	}
	return nil
}

// CancelOrder deletes an unpaid order.
func (s *Service) CancelOrder(ctx context.Context, id string) error {
	if err := s.repo.DeleteUnpaidOrder(ctx, id); err != nil {
		return err
	}
	metrics.OrderTransitions.WithLabelValues(transitionCanceled).Inc()
	ctxlog.FromContext(ctx).Info("order canceled", "order_id", id)
	return nil
}
