package infra

import (
	"context"
	"fmt"

	"summarize-gateway/summarize/domain"

	"golang.org/x/time/rate"
)

// ThrottledGenerator limita a taxa de chamadas ao provedor para o processo inteiro
// (token bucket), independente do limite por cliente.
type ThrottledGenerator struct {
	next domain.TextGenerator
	lim  *rate.Limiter
}

// NewThrottledGenerator devolve `next` sem wrapper quando rps <= 0.
func NewThrottledGenerator(next domain.TextGenerator, rps float64, burst int) domain.TextGenerator {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &ThrottledGenerator{next: next, lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *ThrottledGenerator) RPS() float64 { return float64(t.lim.Limit()) }
func (t *ThrottledGenerator) Burst() int { return t.lim.Burst() }

// Generate espera um token (respeitando ctx) e delega.
func (t *ThrottledGenerator) Generate(ctx context.Context, systemInstruction, userQuery string) (string, error) {
	if err := t.lim.Wait(ctx); err != nil {
		return "", fmt.Errorf("provider throttle: %w", err)
	}
	return t.next.Generate(ctx, systemInstruction, userQuery)
}
