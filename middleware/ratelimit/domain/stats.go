package domain

import (
	"context"
	"time"
)

// Outcome é o desfecho de uma requisição do ponto de vista do limiter.
type Outcome string

// Cada requisição registra exatamente um desfecho.
const (
	// OutcomeAdmitted: passou pelo limiter e foi atendida.
	OutcomeAdmitted Outcome = "admitted"
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed: passou pelo limiter, mas a geração falhou.
	OutcomeFailed Outcome = "failed"
)

// StatsEvent representa um evento de decisão do rate limit.
//
// Ele é propositalmente "agnóstico de HTTP": Method/Path são strings genéricas.
//
// Observação: cuidado com cardinalidade (ex.: salvar Key/Path sem controle pode
// explodir o número de chaves em uma base como Redis).
type StatsEvent struct {
	Key     Key
	Outcome Outcome

	Method string
	Path   string

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas do rate limit.
//
// O chamador deve tratar erro como best-effort (não derrubar request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
