package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/metrics"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	orders     map[string]*domain.Order
	seq        []string
	payments   []domain.Payment
	createErr  error
	confirmErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{orders: make(map[string]*domain.Order)}
}

func (m *mockRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	order.ID = fmt.Sprintf("order-%d", len(m.seq)+1)
	stored := *order
	m.orders[order.ID] = &stored
	m.seq = append(m.seq, order.ID)
	return nil
}

func (m *mockRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	if id == "bad" {
		return nil, domain.ErrInvalidID
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockRepository) ListOrdersByEmail(_ context.Context, email string) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	for _, id := range m.seq {
		if o, ok := m.orders[id]; ok && o.Email == email {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockRepository) ListOrders(_ context.Context) ([]domain.Order, error) {
	result := make([]domain.Order, 0)
	for _, id := range m.seq {
		if o, ok := m.orders[id]; ok {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockRepository) ConfirmPayment(_ context.Context, orderID string, payment *domain.Payment) error {
	if m.confirmErr != nil {
		return m.confirmErr
	}
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Paid {
		return ErrOrderAlreadyPaid
	}
	payment.ID = fmt.Sprintf("payment-%d", len(m.payments)+1)
	m.payments = append(m.payments, *payment)
	o.Paid = true
	o.TransactionID = payment.TransactionID
	o.Status = domain.OrderStatusPending
	return nil
}

func (m *mockRepository) SetStatus(_ context.Context, id string, status domain.OrderStatus) (bool, error) {
	o, ok := m.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	changed := o.Status != status
	o.Status = status
	return changed, nil
}

func (m *mockRepository) DeleteUnpaidOrder(_ context.Context, id string) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Paid {
		return ErrOrderPaid
	}
	delete(m.orders, id)
	return nil
}

func TestPlaceOrder_DefaultsEmailToCaller(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)

	order, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{Amount: 42})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "buyer@example.com", order.Email)
	assert.False(t, order.Paid)
	assert.Empty(t, order.TransactionID)
	assert.Equal(t, domain.OrderStatusUnpaid, order.Status)
}

func TestPlaceOrder_AppearsInCustomerListing(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)

	order, err := s.PlaceOrder(context.Background(), "caller@example.com", PlaceOrderInput{Email: "A@X.com", Amount: 42})
	require.NoError(t, err)

	list, err := s.ListOrdersByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, order.ID, list[0].ID)
	assert.Equal(t, 42.0, list[0].Amount)
}

func TestPlaceOrder_RepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = errors.New("database error")
	s := NewService(repo)

	_, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{})
	assert.Error(t, err)
}

func TestConfirmPayment(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)
	order, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{Amount: 19.99})
	require.NoError(t, err)

	payment, err := s.ConfirmPayment(context.Background(), order.ID, PaymentInput{TransactionID: "pi_123", Method: "card"})
	require.NoError(t, err)

	stored := repo.orders[order.ID]
	assert.True(t, stored.Paid)
	assert.Equal(t, "pi_123", stored.TransactionID)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)

	require.Len(t, repo.payments, 1)
	assert.Equal(t, "pi_123", payment.TransactionID)
	assert.Equal(t, order.ID, payment.OrderID)
	assert.Equal(t, 19.99, payment.Amount, "amount defaults to the order amount")
	assert.Equal(t, "buyer@example.com", payment.Email)
	assert.Equal(t, domain.PaymentStatusRecorded, payment.Status)
}

func TestConfirmPayment_Errors(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)
	order, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{Amount: 10})
	require.NoError(t, err)
	_, err = s.ConfirmPayment(context.Background(), order.ID, PaymentInput{TransactionID: "pi_1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		orderID string
		wantErr error
	}{
		{name: "unknown order", orderID: "missing", wantErr: ErrOrderNotFound},
		{name: "already paid", orderID: order.ID, wantErr: ErrOrderAlreadyPaid},
		{name: "malformed id", orderID: "bad", wantErr: domain.ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ConfirmPayment(context.Background(), tt.orderID, PaymentInput{TransactionID: "pi_2"})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Len(t, repo.payments, 1, "failed confirmations must not record payments")
	assert.Equal(t, "pi_1", repo.orders[order.ID].TransactionID, "transaction id is never overwritten")
}

func TestShipOrder_IsIdempotent(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)
	order, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{})
	require.NoError(t, err)

	shipped := metrics.OrderTransitions.WithLabelValues(transitionShipped)
	before := promtest.ToFloat64(shipped)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.ShipOrder(context.Background(), order.ID))
		assert.Equal(t, domain.OrderStatusShipped, repo.orders[order.ID].Status)
	}
	assert.Equal(t, before+1, promtest.ToFloat64(shipped), "repeat shipments are not counted")

	assert.ErrorIs(t, s.ShipOrder(context.Background(), "missing"), ErrOrderNotFound)
}

func TestCancelOrder(t *testing.T) {
	repo := newMockRepository()
	s := NewService(repo)

	unpaid, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{})
	require.NoError(t, err)
	paid, err := s.PlaceOrder(context.Background(), "buyer@example.com", PlaceOrderInput{})
	require.NoError(t, err)
	_, err = s.ConfirmPayment(context.Background(), paid.ID, PaymentInput{TransactionID: "pi_9"})
	require.NoError(t, err)

	require.NoError(t, s.CancelOrder(context.Background(), unpaid.ID))
	assert.NotContains(t, repo.orders, unpaid.ID)

	assert.ErrorIs(t, s.CancelOrder(context.Background(), paid.ID), ErrOrderPaid)
	assert.Contains(t, repo.orders, paid.ID)

	assert.ErrorIs(t, s.CancelOrder(context.Background(), unpaid.ID), ErrOrderNotFound)
}
