package domain

import "time"

// PaymentStatus describes the bookkeeping state of a payment record.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusRecorded PaymentStatus = "recorded"
	// PaymentStatusOrphaned marks a payment whose order update did not go through.
	PaymentStatusOrphaned PaymentStatus = "orphaned"
)

// Payment is an append-only log entry written when an order is paid.
type Payment struct {
	ID            string        `json:"_id"`
	OrderID       string        `json:"orderId"`
	TransactionID string        `json:"transactionId"`
	Amount        float64       `json:"amount"`
	Method        string        `json:"method,omitempty"`
	Email         string        `json:"email,omitempty"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}
