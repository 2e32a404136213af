package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPayload indica corpo malformado ou campo obrigatório ausente.
type ErrInvalidPayload struct {
	Field  string
	Reason string
}

func (e ErrInvalidPayload) Error() string {
	if e.Field == "" {
		return "invalid payload: " + e.Reason
	}
	return fmt.Sprintf("invalid payload: %s %s", e.Field, e.Reason)
}

// RateLimitExceededError carrega o limite e a janela configurados para a mensagem.
type RateLimitExceededError struct {
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: max %d requests per %d seconds", e.Limit, int(e.Window/time.Second))
}

// GenerationError embrulha a falha do gerador; nunca é engolido.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "generation failed"
	}
	return "generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

func IsInvalidPayload(err error) bool {
	var target ErrInvalidPayload
	return errors.As(err, &target)
}

func IsRateLimited(err error) bool {
	var target *RateLimitExceededError
	return errors.As(err, &target)
}

func IsGenerationError(err error) bool {
	var target *GenerationError
	return errors.As(err, &target)
}
