package reviews

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the reviews module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new reviews handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers routes available without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/review", h.ListReviews)
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/review", h.CreateReview)
}

// CreateReviewRequest represents the request body for posting a review.
type CreateReviewRequest struct {
	Name   string `json:"name" validate:"max=255"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"required,max=4000"`
}

// ListReviews handles GET /review.
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reviews)
}

// CreateReview handles POST /review.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	review, err := h.service.CreateReview(r.Context(), httputil.GetEmail(r.Context()), CreateReviewInput{
		Name:   req.Name,
		Rating: req.Rating,
		Text:   req.Text,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"insertedId": review.ID,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrInvalidRating, Status: http.StatusBadRequest},
		{Error: ErrMissingAuthor, Status: http.StatusUnauthorized, Message: "unauthorized access"},
	})
}
