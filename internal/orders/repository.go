package orders

import (
	"context"

	"github.com/partsinc/parts-server/internal/domain"
)

// Repository defines the interface for order storage.
type Repository interface {
	// CreateOrder stores a new unpaid order and fills in its ID and CreatedAt.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)

	// ConfirmPayment records payment and marks the order paid with its
	// transaction id and pending status. Returns ErrOrderNotFound or
	// ErrOrderAlreadyPaid without recording anything when the order
	// cannot be paid. Fills in payment.ID and payment.CreatedAt.
	ConfirmPayment(ctx context.Context, orderID string, payment *domain.Payment) error

	// SetStatus sets the order status regardless of its current value and
	// reports whether the stored status changed.
	SetStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error)

	// DeleteUnpaidOrder removes an order that has not been paid.
	// Returns ErrOrderPaid if the order exists but is paid.
	DeleteUnpaidOrder(ctx context.Context, id string) error
}
