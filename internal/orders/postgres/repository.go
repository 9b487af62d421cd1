// Package postgres provides the PostgreSQL implementation of the orders repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/orders"
	pgutil "github.com/partsinc/parts-server/internal/pkg/postgres"
)

const orderColumns = `id, email, name, part_id, part_name, quantity, amount, address, phone, paid, transaction_id, status, created_at`

// Repository implements the orders.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateOrder inserts a new order.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (email, name, part_id, part_name, quantity, amount, address, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		order.Email,
		order.Name,
		order.PartID,
		order.PartName,
		order.Quantity,
		order.Amount,
		order.Address,
		order.Phone,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// GetOrder retrieves an order by its ID.
func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := pgutil.ParseID(id)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orders.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// ListOrdersByEmail retrieves orders placed for email.
func (r *Repository) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE email = $1 ORDER BY seq`, email)
}

// ListOrders retrieves all orders.
func (r *Repository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY seq`)
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return result, nil
}

// ConfirmPayment records a payment and marks the order paid in one transaction.
func (r *Repository) ConfirmPayment(ctx context.Context, orderID string, payment *domain.Payment) error {
	id, err := pgutil.ParseID(orderID)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var paid bool
	err = tx.QueryRow(ctx, `SELECT paid FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&paid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return orders.ErrOrderNotFound
		}
		return fmt.Errorf("lock order: %w", err)
	}
	if paid {
		return orders.ErrOrderAlreadyPaid
	}

	insertQuery := `
		INSERT INTO payments (order_id, transaction_id, amount, method, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, insertQuery,
		id,
		payment.TransactionID,
		payment.Amount,
		payment.Method,
		payment.Email,
		string(domain.PaymentStatusRecorded),
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	updateQuery := `
		UPDATE orders
		SET paid = TRUE, transaction_id = $2, status = $3
		WHERE id = $1 AND paid = FALSE
	`
	if _, err := tx.Exec(ctx, updateQuery, id, payment.TransactionID, string(domain.OrderStatusPending)); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	payment.Status = domain.PaymentStatusRecorded
	return nil
}

// SetStatus sets the order status and reports whether it changed.
func (r *Repository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	orderID, err := pgutil.ParseID(id)
	if err != nil {
		return false, err
	}

	result, err := r.db.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status IS DISTINCT FROM $2`,
		orderID, string(status))
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return false, orders.ErrOrderNotFound
	}
	return false, nil
}

// DeleteUnpaidOrder removes an order that has not been paid.
func (r *Repository) DeleteUnpaidOrder(ctx context.Context, id string) error {
	orderID, err := pgutil.ParseID(id)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1 AND paid = FALSE`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return orders.ErrOrderNotFound
	}
	return orders.ErrOrderPaid
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	var status string
	err := row.Scan(
		&order.ID,
		&order.Email,
		&order.Name,
		&order.PartID,
		&order.PartName,
		&order.Quantity,
		&order.Amount,
		&order.Address,
		&order.Phone,
		&order.Paid,
		&order.TransactionID,
		&status,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	return &order, nil
}
