package reflection

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/reflections-api/internal/domain"
	"github.com/phrazzld/reflections-api/internal/platform/batchapi"
	"github.com/phrazzld/reflections-api/internal/redact"
	"github.com/phrazzld/reflections-api/internal/store"
)

// BuilderConfig holds the generation parameters applied to every request.
type BuilderConfig struct {
	Model     string
	MaxTokens int
	Endpoint  string
}

// BuildStats summarizes one Build call.
type BuildStats struct {
	Eligible int `json:"eligible"`
	Included int `json:"included"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// RequestBuilder turns eligible users' weekly activity into batch requests.
type RequestBuilder struct {
	source  store.ActivitySource
	prompts *Prompts
	cfg     BuilderConfig
	logger  *slog.Logger
}

// NewRequestBuilder creates a RequestBuilder. A nil prompts uses the
// embedded templates.
func NewRequestBuilder(
	source store.ActivitySource,
	prompts *Prompts,
	cfg BuilderConfig,
	logger *slog.Logger,
) *RequestBuilder {
	if source == nil {
		panic("activity source cannot be nil")
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestBuilder{
		source:  source,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "request_builder")),
	}
}

// Build creates one request per user who completed at least one todo in week.
// Users without completed todos are skipped. A user whose activity cannot be
// read or rendered is logged and counted as failed; the rest of the batch is
// still built.
func (b *RequestBuilder) Build(
	ctx context.Context,
	week domain.Week,
	userIDs []string,
) ([]batchapi.Request, BuildStats) {
	stats := BuildStats{Eligible: len(userIDs)}
	requests := make([]batchapi.Request, 0, len(userIDs))

	for _, userID := range userIDs {
		log := b.logger.With(slog.String("user_id", userID), slog.String("week", week.String()))

		activity, err := b.source.WeeklyActivity(ctx, userID, week)
		if err != nil {
			log.WarnContext(ctx, "failed to read weekly activity", slog.String("error", redact.Error(err)))
			stats.Failed++
			continue
		}
		if !activity.HasCompleted() {
			stats.Skipped++
			continue
		}

		system, user, err := b.prompts.Render(activity)
		if err != nil {
			log.WarnContext(ctx, "failed to render prompt", slog.String("error", redact.Error(err)))
			stats.Failed++
			continue
		}

		requests = append(requests, batchapi.Request{
			CustomID: domain.ReflectionID(userID, week),
			Method:   http.MethodPost,
			URL:      b.cfg.Endpoint,
			Body: batchapi.ChatBody{
				Model:     b.cfg.Model,
				MaxTokens: b.cfg.MaxTokens,
				Messages: []batchapi.Message{
					{Role: "system", Content: system},
					{Role: "user", Content: user},
				},
			},
		})
		stats.Included++
	}

	b.logger.InfoContext(ctx, "built batch requests",
		slog.String("week", week.String()),
		slog.Int("eligible", stats.Eligible),
		slog.Int("included", stats.Included),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))

	return requests, stats
}
