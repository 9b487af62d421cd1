package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the catalog module.
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers catalog routes. They require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/parts", h.ListParts)
	r.Get("/parts/{id}", h.GetPart)
}

// ListParts handles GET /parts?page=P&size=S.
func (h *Handler) ListParts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "page must be a non-negative integer")
		return
	}

	size, err := queryInt(r, "size")
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "size must be a non-negative integer")
		return
	}

	result, err := h.service.ListParts(r.Context(), page, size)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Parts,
		"count":   result.Total,
	})
}

// GetPart handles GET /parts/{id}. Unknown parts yield null.
func (h *Handler) GetPart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	part, err := h.service.GetPart(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPartNotFound) {
			httputil.JSON(w, http.StatusOK, (*domain.Part)(nil))
			return
		}
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, part)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, ErrInvalidPaging
	}
	return v, nil
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrInvalidPaging, Status: http.StatusBadRequest},
		{Error: domain.ErrInvalidID, Status: http.StatusBadRequest},
		{Error: ErrPartNotFound, Status: http.StatusNotFound},
	})
}
