package identity

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterLoginRoutes registers the token issuance route. It is public.
func (h *Handler) RegisterLoginRoutes(r chi.Router) {
	r.Put("/user/{email}", h.Login)
}

// RegisterRoutes registers routes that require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/user/{email}", h.GetUser)
	r.Patch("/user/{email}", h.UpdateName)
	r.Put("/user/update/{email}", h.UpdateProfile)
	r.Get("/admin/{email}", h.CheckAdmin)
}

// RegisterAdminRoutes registers routes that require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/user", h.ListUsers)
	r.Patch("/user/admin/{email}", h.MakeAdmin)
	r.Delete("/user/{email}", h.DeleteUser)
}

// ProfileRequest represents the profile fields a client may set.
type ProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=255"`
	Image     *string `json:"image" validate:"omitempty,max=2048"`
	Phone     *string `json:"phone" validate:"omitempty,max=64"`
	Address   *string `json:"address" validate:"omitempty,max=512"`
	Education *string `json:"education" validate:"omitempty,max=255"`
	LinkedIn  *string `json:"linkedin" validate:"omitempty,max=2048"`
}

// ToProfile converts the request to a partial profile update.
func (r *ProfileRequest) ToProfile() Profile {
	return Profile{
		Name:      r.Name,
		Image:     r.Image,
		Phone:     r.Phone,
		Address:   r.Address,
		Education: r.Education,
		LinkedIn:  r.LinkedIn,
	}
}

// LoginRequest represents the body of PUT /user/{email}.
type LoginRequest struct {
	ProfileRequest
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

// UpdateNameRequest represents the body of PATCH /user/{email}.
type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Login handles PUT /user/{email}: upserts the profile and returns an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	var req LoginRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), LoginInput{
		Email:    email,
		Password: req.Password,
		Profile:  req.ToProfile(),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// GetUser handles GET /user/{email}. Unknown users yield {"user": null}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]*domain.User{"user": user})
}

// UpdateName handles PATCH /user/{email}.
func (h *Handler) UpdateName(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	var req UpdateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), email, Profile{Name: &req.Name}); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Profile updated!")
}

// UpdateProfile handles PUT /user/update/{email}.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.service.UpdateProfile(r.Context(), email, req.ToProfile()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Profile updated!")
}

// CheckAdmin handles GET /admin/{email}.
func (h *Handler) CheckAdmin(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	isAdmin, err := h.service.IsAdmin(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"admin": isAdmin})
}

// ListUsers handles GET /user.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}

// MakeAdmin handles PATCH /user/admin/{email}.
func (h *Handler) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	if err := h.service.MakeAdmin(r.Context(), email); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "Made admin")
}

// DeleteUser handles DELETE /user/{email}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email, ok := h.emailParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), email); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.Message(w, http.StatusOK, "User deleted")
}

// emailParam extracts and validates the {email} path parameter.
func (h *Handler) emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil || h.validator.Var(email, "required,email") != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid email")
		return "", false
	}
	return domain.NormalizeEmail(email), true
}

// decodeOptionalJSON decodes the body into v, accepting an empty body.
func decodeOptionalJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrUserNotFound, Status: http.StatusNotFound},
		{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	})
}
