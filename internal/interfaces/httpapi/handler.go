package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/smashcc/analytics/internal/usecase"
)

// HandlerDefaults fill in query parameters the client left out.
// SearchTimeout bounds the on-demand compute handlers; zero disables the
// per-request deadline.
type HandlerDefaults struct {
	VideogameID         int
	MonthsBack          int
	LargeEventThreshold int
	SearchTimeout       time.Duration
}

type Handler struct {
	queryService  *usecase.QueryService
	searchService *usecase.SearchService
	defaults      HandlerDefaults
	logger        *slog.Logger
	validator     *validator.Validate
}

func NewHandler(
	queryService *usecase.QueryService,
	searchService *usecase.SearchService,
	defaults HandlerDefaults,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		queryService:  queryService,
		searchService: searchService,
		defaults:      defaults,
		logger:        logger,
		validator:     validator.New(),
	}
}

// searchContext caps how long one on-demand compute request may run. The
// server's read and write timeouts do not cancel in-flight handler work, so
// the deadline has to live on the context the pipeline threads through.
func (h *Handler) searchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.defaults.SearchTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.defaults.SearchTimeout)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
