package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the orders module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new orders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/order", h.PlaceOrder)
	r.Get("/order/user/{email}", h.ListUserOrders)
	r.Get("/order/{id}", h.GetOrderOrList)
	r.Put("/order/{id}", h.ConfirmPayment)
	r.Patch("/order/{id}", h.ShipOrder)
	r.Delete("/order/{id}", h.CancelOrder)
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/order", h.ListOrders)
}

// PlaceOrderRequest represents the request body for placing an order.
// Payment fields sent by clients are ignored.
type PlaceOrderRequest struct {
	Email    string  `json:"email" validate:"omitempty,email"`
	Name     string  `json:"name" validate:"max=255"`
	PartID   string  `json:"partId" validate:"max=64"`
	PartName string  `json:"partName" validate:"max=255"`
	Quantity int     `json:"quantity" validate:"gte=0"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Address  string  `json:"address" validate:"max=512"`
	Phone    string  `json:"phone" validate:"max=64"`
}

// ToInput converts the request to a service input.
func (r *PlaceOrderRequest) ToInput() PlaceOrderInput {
	return PlaceOrderInput{
		Email:    r.Email,
		Name:     r.Name,
		PartID:   r.PartID,
		PartName: r.PartName,
		Quantity: r.Quantity,
		Amount:   r.Amount,
		Address:  r.Address,
		Phone:    r.Phone,
	}
}

// ConfirmPaymentRequest represents the request body for PUT /order/{id}.
type ConfirmPaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required,max=255"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Method        string  `json:"method" validate:"max=64"`
}

// PlaceOrder handles POST /order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), httputil.GetEmail(r.Context()), req.ToInput())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Order Confirmed! Pay Now",
		"insertedId": order.ID,
	})
}

// GetOrderOrList handles GET /order/{id}. A value containing "@" is treated
// as an email and lists that customer's orders; otherwise the single order is
// returned, or null if it does not exist.
func (h *Handler) GetOrderOrList(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return
	}

	if strings.Contains(key, "@") {
		h.listByEmail(w, r, key)
		return
	}

	order, err := h.service.GetOrder(r.Context(), key)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			httputil.JSON(w, http.StatusOK, (*domain.Order)(nil))
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// ListUserOrders handles GET /order/user/{email}.
func (h *Handler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid email")
		return
	}
	h.listByEmail(w, r, email)
}

func (h *Handler) listByEmail(w http.ResponseWriter, r *http.Request, email string) {
	if h.validator.Var(email, "required,email") != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid email")
		return
	}

	orders, err := h.service.ListOrdersByEmail(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, orders)
}

// ListOrders handles GET /order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, orders)
}

// ConfirmPayment handles PUT /order/{id}.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ConfirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	_, err := h.service.ConfirmPayment(r.Context(), id, PaymentInput{
		TransactionID: req.TransactionID,
		Amount:        req.Amount,
		Method:        req.Method,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Payment confirmed")
}

// ShipOrder handles PATCH /order/{id}.
func (h *Handler) ShipOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ShipOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Order shipped")
}

// CancelOrder handles DELETE /order/{id}.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Order canceled")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: domain.ErrInvalidID, Status: http.StatusBadRequest},
		{Error: ErrOrderNotFound, Status: http.StatusNotFound},
		{Error: ErrOrderAlreadyPaid, Status: http.StatusConflict},
		{Error: ErrOrderPaid, Status: http.StatusConflict},
	})
}
