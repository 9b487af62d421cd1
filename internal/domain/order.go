package domain

import "time"

// OrderStatus represents the shipment state of an order.
// An empty status means the order has not been paid yet.
type OrderStatus string

// Order statuses.
const (
	OrderStatusUnpaid  OrderStatus = ""
	OrderStatusPending OrderStatus = "pending"
	OrderStatusShipped OrderStatus = "shipped"
)

// Order is a purchase placed by a customer.
// Paid and TransactionID are set together by payment confirmation and never unset.
type Order struct {
	ID            string      `json:"_id"`
	Email         string      `json:"email"`
	Name          string      `json:"name,omitempty"`
	PartID        string      `json:"partId,omitempty"`
	PartName      string      `json:"partName,omitempty"`
	Quantity      int         `json:"quantity,omitempty"`
	Amount        float64     `json:"amount"`
	Address       string      `json:"address,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	Paid          bool        `json:"paid"`
	TransactionID string      `json:"transactionId,omitempty"`
	Status        OrderStatus `json:"status,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// IsPaid returns true once payment has been confirmed.
func (o *Order) IsPaid() bool {
	return o.Paid
}
