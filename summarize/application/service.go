package application

import (
	"context"
	"errors"
	"time"

	rldomain "summarize-gateway/middleware/ratelimit/domain"
	"summarize-gateway/summarize/domain"
)

// Admission é a parte do rate limit que o resumo precisa
// (implementada por ratelimit/application.Service).
type Admission interface {
	Decide(key rldomain.Key, now time.Time) rldomain.Decision
}

type Service struct {
	Limiter   Admission
	Generator domain.TextGenerator
	Clock     rldomain.Clock
}

// Outcome devolve a decisão tomada junto com o resultado, para o adapter HTTP
// escrever os headers de rate limit mesmo em caso de erro.
type Outcome struct {
	Result   domain.Result
	Decision rldomain.Decision
	// Admitted é false quando a requisição nem chegou ao limiter ou foi rejeitada.
	Admitted bool
}

// Summarize executa: validação -> admissão -> formatação -> geração.
//
// Erros possíveis: domain.ErrInvalidPayload, *domain.RateLimitExceededError,
// *domain.GenerationError.
func (s Service) Summarize(ctx context.Context, identity rldomain.Key, p domain.Payload) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}
	if s.Generator == nil {
		return Outcome{}, errors.New("summarize service without generator")
	}

	var out Outcome
	if s.Limiter != nil {
		out.Decision = s.Limiter.Decide(identity, s.now())
		if !out.Decision.Allowed {
			return out, &domain.RateLimitExceededError{
				Limit:      out.Decision.Limit,
				Window:     out.Decision.Window,
				RetryAfter: out.Decision.RetryAfter,
			}
		}
	}
	out.Admitted = true

	instruction := domain.SystemInstruction(domain.FormatContext(p.Context))
	text, err := s.Generator.Generate(ctx, instruction, p.Question)
	if err != nil {
		return out, &domain.GenerationError{Err: err}
	}

	out.Result = domain.Result{Content: text}
	return out, nil
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
