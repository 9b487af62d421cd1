// Package mongo provides the MongoDB implementation of the orders repository.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/orders"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
	"github.com/partsinc/parts-server/internal/pkg/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type orderDocument struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Email         string             `bson:"email"`
	Name          string             `bson:"name,omitempty"`
	PartID        string             `bson:"partId,omitempty"`
	PartName      string             `bson:"partName,omitempty"`
	Quantity      int                `bson:"quantity,omitempty"`
	Amount        float64            `bson:"amount"`
	Address       string             `bson:"address,omitempty"`
	Phone         string             `bson:"phone,omitempty"`
	Paid          bool               `bson:"paid"`
	TransactionID string             `bson:"transactionId,omitempty"`
	Status        string             `bson:"status,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

func (d *orderDocument) toDomain() domain.Order {
	return domain.Order{
		ID:            d.ID.Hex(),
		Email:         d.Email,
		Name:          d.Name,
		PartID:        d.PartID,
		PartName:      d.PartName,
		Quantity:      d.Quantity,
		Amount:        d.Amount,
		Address:       d.Address,
		Phone:         d.Phone,
		Paid:          d.Paid,
		TransactionID: d.TransactionID,
		Status:        domain.OrderStatus(d.Status),
		CreatedAt:     d.CreatedAt,
	}
}

type paymentDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	OrderID       primitive.ObjectID `bson:"orderId"`
	TransactionID string             `bson:"transactionId"`
	Amount        float64            `bson:"amount"`
	Method        string             `bson:"method,omitempty"`
	Email         string             `bson:"email,omitempty"`
	Status        string             `bson:"status"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

// Repository implements the orders.Repository interface using MongoDB.
type Repository struct {
	client       *mongo.Client
	orders       *mongo.Collection
	payments     *mongo.Collection
	transactions bool

	// afterRecord runs between the payment insert and the order update.
	afterRecord func(ctx context.Context)
}

// NewRepository creates a new MongoDB repository. With transactions enabled,
// payment confirmation runs in a multi-document transaction, which requires a
// replica set; otherwise it uses a compensating write on failure.
func NewRepository(db *mongo.Database, transactions bool) *Repository {
	return &Repository{
		client:       db.Client(),
		orders:       db.Collection(mongodb.OrdersCollection),
		payments:     db.Collection(mongodb.PaymentsCollection),
		transactions: transactions,
	}
}

// CreateOrder inserts a new order.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	doc := orderDocument{
		ID:        primitive.NewObjectID(),
		Email:     order.Email,
		Name:      order.Name,
		PartID:    order.PartID,
		PartName:  order.PartName,
		Quantity:  order.Quantity,
		Amount:    order.Amount,
		Address:   order.Address,
		Phone:     order.Phone,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := r.orders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	order.ID = doc.ID.Hex()
	order.CreatedAt = doc.CreatedAt
	return nil
}

// GetOrder retrieves an order by its hex ObjectID.
func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOrder(ctx, oid)
}

func (r *Repository) findOrder(ctx context.Context, oid primitive.ObjectID) (*domain.Order, error) {
	var doc orderDocument
	if err := r.orders.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, orders.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	order := doc.toDomain()
	return &order, nil
}

// ListOrdersByEmail retrieves orders placed for email.
func (r *Repository) ListOrdersByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, bson.M{"email": email}, options.Find().SetCollation(mongodb.EmailCollation))
}

// ListOrders retrieves all orders.
func (r *Repository) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, bson.M{}, options.Find())
}

func (r *Repository) list(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Order, error) {
	cursor, err := r.orders.Find(ctx, filter, opts.SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	defer cursor.Close(ctx)

	result := make([]domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		result = append(result, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return result, nil
}

// ConfirmPayment records a payment and marks the order paid.
func (r *Repository) ConfirmPayment(ctx context.Context, orderID string, payment *domain.Payment) error {
	oid, err := mongodb.ParseID(orderID)
	if err != nil {
		return err
	}

	if !r.transactions {
		return r.confirmWithCompensation(ctx, oid, payment)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		paymentID, err := r.recordPayment(sc, oid, payment)
		if err != nil {
			return nil, err
		}
		r.runAfterRecord(sc)
		return paymentID, r.markPaid(sc, oid, payment.TransactionID)
	})
	return err
}

// confirmWithCompensation inserts the payment first. If the order update then
// fails, the payment is flagged orphaned so it can be reconciled.
func (r *Repository) confirmWithCompensation(ctx context.Context, oid primitive.ObjectID, payment *domain.Payment) error {
	paymentID, err := r.recordPayment(ctx, oid, payment)
	if err != nil {
		return err
	}

	r.runAfterRecord(ctx)
	if err := r.markPaid(ctx, oid, payment.TransactionID); err != nil {
		r.orphanPayment(ctx, paymentID, err)
		payment.Status = domain.PaymentStatusOrphaned
		return err
	}
	return nil
}

// recordPayment checks the order is payable and appends the payment record.
func (r *Repository) recordPayment(ctx context.Context, oid primitive.ObjectID, payment *domain.Payment) (primitive.ObjectID, error) {
	order, err := r.findOrder(ctx, oid)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if order.IsPaid() {
		return primitive.NilObjectID, orders.ErrOrderAlreadyPaid
	}

	doc := paymentDocument{
		ID:            primitive.NewObjectID(),
		OrderID:       oid,
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		Method:        payment.Method,
		Email:         payment.Email,
		Status:        string(domain.PaymentStatusRecorded),
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := r.payments.InsertOne(ctx, doc); err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert payment: %w", err)
	}

	payment.ID = doc.ID.Hex()
	payment.Status = domain.PaymentStatusRecorded
	payment.CreatedAt = doc.CreatedAt
	return doc.ID, nil
}

func (r *Repository) runAfterRecord(ctx context.Context) {
	if r.afterRecord != nil {
		r.afterRecord(ctx)
	}
}

// markPaid sets the payment fields on an order that is still unpaid. When
// nothing matches, the order was either paid or removed in the meantime.
func (r *Repository) markPaid(ctx context.Context, oid primitive.ObjectID, transactionID string) error {
	filter := bson.M{"_id": oid, "paid": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{
		"paid":          true,
		"transactionId": transactionID,
		"status":        string(domain.OrderStatusPending),
	}}

	result, err := r.orders.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	if _, err := r.findOrder(ctx, oid); err != nil {
		return err
	}
	return orders.ErrOrderAlreadyPaid
}

func (r *Repository) orphanPayment(ctx context.Context, paymentID primitive.ObjectID, cause error) {
	log := ctxlog.FromContext(ctx)

	_, err := r.payments.UpdateOne(context.WithoutCancel(ctx),
		bson.M{"_id": paymentID},
		bson.M{"$set": bson.M{"status": string(domain.PaymentStatusOrphaned)}},
	)
	if err != nil {
		log.Error("failed to mark payment orphaned", "payment_id", paymentID.Hex(), "cause", cause, "error", err)
		return
	}
	log.Warn("payment orphaned", "payment_id", paymentID.Hex(), "cause", cause)
}

// SetStatus sets the order status and reports whether it changed.
func (r *Repository) SetStatus(ctx context.Context, id string, status domain.OrderStatus) (bool, error) {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return false, err
	}

	result, err := r.orders.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return false, orders.ErrOrderNotFound
	}
	return result.ModifiedCount > 0, nil
}

// DeleteUnpaidOrder removes an order that has not been paid.
func (r *Repository) DeleteUnpaidOrder(ctx context.Context, id string) error {
	oid, err := mongodb.ParseID(id)
	if err != nil {
		return err
	}

	result, err := r.orders.DeleteOne(ctx, bson.M{"_id": oid, "paid": bson.M{"$ne": true}})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if result.DeletedCount > 0 {
		return nil
	}

	if _, err := r.findOrder(ctx, oid); err != nil {
		return err
	}
	return orders.ErrOrderPaid
}
