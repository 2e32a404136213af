package application

import (
	"time"

	"summarize-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas traduz o Verdict da
// janela em uma Decision com limite, vagas restantes e Retry-After.
type Service struct {
	Store  domain.Admitter
	Limit  int
	Window time.Duration
}

func (s Service) Decide(key domain.Key, now time.Time) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true, Limit: s.Limit, Window: s.Window, Remaining: s.Limit}
	}
	if key == "" {
		key = domain.UnknownKey
	}

	v := s.Store.Decide(key, now)
	dec := domain.Decision{
		Allowed:   v.Allowed,
		Limit:     s.Limit,
		Window:    s.Window,
		Remaining: s.Limit - v.Count,
	}
	if dec.Remaining < 0 {
		dec.Remaining = 0
	}
	if v.Allowed {
		return dec
	}

	// a vaga reabre quando a entrada mais antiga completa a janela
	dec.RetryAfter = time.Second
	if !v.OldestAt.IsZero() {
		if wait := v.OldestAt.Add(s.Window).Sub(now); wait > dec.RetryAfter {
			dec.RetryAfter = wait
		}
	}
	return dec
}
