package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"donormatch/internal/matching/models"
	"donormatch/internal/matching/notify"
	"donormatch/internal/matching/ports"
	"donormatch/pkg/platform/httputil"
)

// Service defines the interface for match searches.
type Service interface {
	FindMatches(ctx context.Context, criteria models.MatchCriteria) (map[models.DonorID]models.MatchResult, error)
}

// Handler wires search endpoints to the match service.
type Handler struct {
	service   Service
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() uuid.UUID
}

type Option func(*Handler)

// WithPublisher sets where search completion events go.
func WithPublisher(p notify.Publisher) Option {
	return func(h *Handler) {
		if p != nil {
			h.publisher = p
		}
	}
}

// New constructs a search handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		service:   service,
		publisher: notify.NopPublisher{},
		logger:    logger,
		now:       time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts search endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/searches", h.HandleSearch)
}

// HandleSearch handles POST /v1/searches requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	searchID := h.newID()
	start := h.now()

	req, err := httputil.Decode[SearchRequest](w, r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	criteria, err := req.ToCriteria()
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_criteria", err.Error())
		return
	}

	results, err := h.service.FindMatches(ctx, criteria)
	duration := h.now().Sub(start)
	h.publish(ctx, searchID, criteria, len(results), duration, err)
	if err != nil {
		h.logger.ErrorContext(ctx, "match search failed",
			"request_id", requestID,
			"search_id", searchID,
			"error", err,
		)
		h.writeSearchError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "match search completed",
		"request_id", requestID,
		"search_id", searchID,
		"donor_type", criteria.DonorType,
		"results", len(results),
		"duration_ms", duration.Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResults(searchID, results))
}

func (h *Handler) writeSearchError(w http.ResponseWriter, err error) {
	var se *ports.SourceError
	switch {
	case errors.Is(err, models.ErrPreconditionViolation):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_criteria", err.Error())
	case errors.As(err, &se):
		w.Header().Set("Retry-After", "5")
		httputil.WriteError(w, http.StatusServiceUnavailable, "source_unavailable", "")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// publish is best effort: a failed notification never fails the search.
func (h *Handler) publish(ctx context.Context, searchID uuid.UUID, criteria models.MatchCriteria, count int, duration time.Duration, searchErr error) {
	event := notify.SearchCompleted{
		SearchID:    searchID,
		DonorType:   string(criteria.DonorType),
		Succeeded:   searchErr == nil,
		ResultCount: count,
		DurationMS:  duration.Milliseconds(),
		CompletedAt: h.now().UTC(),
	}
	if searchErr != nil {
		event.Error = string(ports.GetCategory(searchErr))
		if errors.Is(searchErr, models.ErrPreconditionViolation) {
			event.Error = "invalid_criteria"
		}
	}
	if err := h.publisher.PublishSearchCompleted(context.WithoutCancel(ctx), event); err != nil {
		h.logger.WarnContext(ctx, "failed to publish search event",
			"search_id", searchID,
			"error", err,
		)
	}
}
