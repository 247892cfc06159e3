package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/medigrid-hms/backend/internal/middleware"
	"github.com/medigrid-hms/backend/internal/scope"
	"github.com/medigrid-hms/backend/pkg/response"
)

// Store builds dashboard summaries.
type Store interface {
	Build(ctx context.Context, sc scope.Scope) (*Summary, error)
}

var _ Store = (*Repository)(nil)

// Handler serves the dashboard endpoint.
type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Get handles GET /dashboard.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.store.Build(c.Request.Context(), middleware.MustScope(c))
	if err != nil {
		h.logger.Error("dashboard build failed", zap.Error(err))
		response.Internal(c, "failed to build dashboard")
		return
	}
	response.OK(c, s)
}
