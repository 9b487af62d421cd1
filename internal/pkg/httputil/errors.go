package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/partsinc/parts-server/internal/domain"
	"github.com/partsinc/parts-server/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, the sentinel's own text is used
}

// commonMappings apply to every handler after its own mappings.
var commonMappings = []ErrorMapping{
	{Error: domain.ErrInvalidID, Status: http.StatusBadRequest},
	{Error: context.DeadlineExceeded, Status: http.StatusServiceUnavailable, Message: "request timed out"},
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// Wrapping context is never shown to clients. Unmapped errors are logged
// and answered with 500 Internal Server Error.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, set := range [][]ErrorMapping{mappings, commonMappings} {
		for _, m := range set {
			if !errors.Is(err, m.Error) {
				continue
			}
			msg := m.Message
			if msg == "" {
				msg = m.Error.Error()
			}
			if m.Status >= http.StatusInternalServerError {
				ctxlog.FromContext(ctx).Warn("request failed", "status", m.Status, "error", err)
			}
			Error(w, m.Status, msg)
			return
		}
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
