package observability

import (
	"context"
	"log/slog"

	"donormatch/internal/matching/service"
)

// LoggingObserver writes one debug line per finished phase and a warning for
// failed searches.
type LoggingObserver struct {
	logger *slog.Logger
}

func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) PhaseStarted(ctx context.Context, _ service.Phase) context.Context {
	return ctx
}

func (o *LoggingObserver) PhaseCompleted(ctx context.Context, phase service.Phase, outcome service.PhaseOutcome) {
	attrs := []any{
		"phase", string(phase),
		"candidates", outcome.Candidates,
		"duration_ms", outcome.Duration.Milliseconds(),
	}
	if outcome.Err != nil {
		if phase == service.PhaseSearch {
			o.logger.WarnContext(ctx, "match search failed", append(attrs, "error", outcome.Err)...)
		}
		return
	}
	o.logger.DebugContext(ctx, "match phase completed", attrs...)
}
