package ratelimit

import (
	"context"
	"net/http"
	"time"

	"summarize-gateway/middleware/ratelimit/domain"
)

// WriteHeaders traduz a decisão em headers HTTP.
// Retry-After só é escrito quando a requisição foi bloqueada.
func WriteHeaders(w http.ResponseWriter, dec domain.Decision) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	h.Set("X-RateLimit-Window", formatInt(int(dec.Window/time.Second)))
	if !dec.Allowed && dec.RetryAfter > 0 {
		h.Set("Retry-After", formatInt(retryAfterSeconds(dec.RetryAfter)))
	}
}

// retryAfterSeconds arredonda para cima: Retry-After=0 faria o cliente
// tentar de novo antes da vaga abrir.
func retryAfterSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// Record grava um evento de estatística em modo best-effort.
func Record(ctx context.Context, stats domain.StatsStore, r *http.Request, key domain.Key, outcome domain.Outcome, at time.Time) error {
	if stats == nil {
		return nil
	}
	return stats.Record(ctx, domain.StatsEvent{
		Key:     key,
		Outcome: outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      at,
	})
}
