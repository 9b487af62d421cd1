package payments

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the payments module.
type Handler struct {
	bridge    Bridge
	validator *validator.Validate
}

// NewHandler creates a new payments handler. A nil bridge answers 503.
func NewHandler(bridge Bridge) *Handler {
	return &Handler{
		bridge:    bridge,
		validator: validator.New(),
	}
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/create-payment-intent", h.CreatePaymentIntent)
}

// CreateIntentRequest represents the request body for creating a payment intent.
type CreateIntentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
}

// CreatePaymentIntent handles POST /create-payment-intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h.bridge == nil {
		httputil.Error(w, http.StatusServiceUnavailable, ErrNotConfigured.Error())
		return
	}

	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	secret, err := h.bridge.CreateIntent(r.Context(), req.Amount)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
			{Error: ErrInvalidAmount, Status: http.StatusBadRequest},
			{Error: ErrNotConfigured, Status: http.StatusServiceUnavailable},
			{Error: ErrProcessor, Status: http.StatusBadGateway, Message: ErrProcessor.Error()},
		})
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"clientSecret": secret})
}
