package summarize

import (
	"context"
	"errors"
	"net/http"
	"time"

	"summarize-gateway/middleware/ratelimit"
	rldomain "summarize-gateway/middleware/ratelimit/domain"
	"summarize-gateway/middleware/ratelimit/infra"
	"summarize-gateway/summarize/application"
	"summarize-gateway/summarize/domain"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "summarize-gateway/summarize"

type Options struct {
	Service application.Service
	KeyFn   ratelimit.KeyFunc
	// Stats recebe um evento por decisão (best-effort). Pode ser nil.
	Stats rldomain.StatsStore
	// MemoryStats, quando presente, é exposto em GET /api/stats.
	MemoryStats *infra.MemoryStatsStore
	// AddRateLimitHeaders escreve X-RateLimit-* também nas respostas admitidas.
	AddRateLimitHeaders bool
	Clock               rldomain.Clock
	Logger              zerolog.Logger
}

type Handler struct {
	opts     Options
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewHandler(opts Options) *Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = ratelimit.DefaultKeyFunc("", true)
	}
	if opts.Clock == nil {
		opts.Clock = infra.SystemClock{}
	}

	h := &Handler{opts: opts, tracer: otel.Tracer(instrumentationName)}

	meter := otel.Meter(instrumentationName)
	var err error
	if h.requests, err = meter.Int64Counter("summarize.requests",
		metric.WithDescription("summarize requests by outcome")); err != nil {
		opts.Logger.Warn().Err(err).Msg("summarize.requests counter unavailable")
	}
	if h.duration, err = meter.Float64Histogram("summarize.duration",
		metric.WithDescription("summarize request duration"), metric.WithUnit("ms")); err != nil {
		opts.Logger.Warn().Err(err).Msg("summarize.duration histogram unavailable")
	}
	return h
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := h.tracer.Start(r.Context(), "summarize", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	log := zerolog.Ctx(ctx)

	var payload domain.Payload
	if err := readJSON(r, &payload); err != nil {
		h.finish(ctx, span, start, "invalid")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := h.opts.KeyFn(r)
	span.SetAttributes(attribute.String("client.identity", string(key)))

	// um único outcome por requisição: admitted, rejected ou failed
	out, err := h.opts.Service.Summarize(ctx, key, payload)
	if h.opts.AddRateLimitHeaders && out.Decision.Limit > 0 {
		ratelimit.WriteHeaders(w, out.Decision)
	}

	var (
		rateErr *domain.RateLimitExceededError
		genErr  *domain.GenerationError
	)
	switch {
	case err == nil:
		h.record(ctx, r, key, rldomain.OutcomeAdmitted)
		h.finish(ctx, span, start, "ok")
		writeJSON(w, http.StatusOK, out.Result)

	case domain.IsInvalidPayload(err):
		h.finish(ctx, span, start, "invalid")
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &rateErr):
		h.record(ctx, r, key, rldomain.OutcomeRejected)
		ratelimit.WriteHeaders(w, out.Decision)
		log.Info().Str("identity", string(key)).Int("limit", rateErr.Limit).
			Dur("retry_after", rateErr.RetryAfter).Msg("rate limit exceeded")
		h.finish(ctx, span, start, "rate_limited")
		writeError(w, http.StatusTooManyRequests, err.Error())

	case errors.As(err, &genErr):
		h.record(ctx, r, key, rldomain.OutcomeFailed)
		log.Error().Err(genErr.Err).Str("identity", string(key)).Msg("generation failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		h.finish(ctx, span, start, "failed")
		writeError(w, http.StatusInternalServerError, err.Error())

	default:
		if out.Admitted {
			h.record(ctx, r, key, rldomain.OutcomeFailed)
		}
		log.Error().Err(err).Str("identity", string(key)).Msg("summarize failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
		h.finish(ctx, span, start, "error")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	s := h.opts.MemoryStats
	writeJSON(w, http.StatusOK, statsResponse{
		Total:   s.Total(),
		ByRoute: s.ByRoute(),
		ByKey:   s.ByKey(),
	})
}

type statsResponse struct {
	Total   infra.Counters            `json:"total"`
	ByRoute map[string]infra.Counters `json:"by_route"`
	ByKey   map[string]infra.Counters `json:"by_key,omitempty"`
}

func (h *Handler) record(ctx context.Context, r *http.Request, key rldomain.Key, outcome rldomain.Outcome) {
	if h.opts.Stats == nil {
		return
	}
	if err := ratelimit.Record(ctx, h.opts.Stats, r, key, outcome, h.opts.Clock.Now()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("outcome", string(outcome)).Msg("stats record failed")
	}
}

func (h *Handler) finish(ctx context.Context, span trace.Span, start time.Time, outcome string) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	span.SetAttributes(attribute.String("summarize.outcome", outcome))
	if h.requests != nil {
		h.requests.Add(ctx, 1, attrs)
	}
	if h.duration != nil {
		h.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}
}
