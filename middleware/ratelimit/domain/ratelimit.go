package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o cliente (IP, header de API, "unknown").
type Key string

// UnknownKey é usada quando não há nenhuma informação de endereço do cliente.
const UnknownKey Key = "unknown"

// Verdict é o resultado bruto de uma janela deslizante para uma chave.
type Verdict struct {
	Allowed bool
	// Count é quantas entradas ficaram na janela após a decisão
	// (inclui a requisição atual quando Allowed=true).
	Count int
	// OldestAt é o instante da entrada mais antiga ainda na janela.
	// Zero quando a janela está vazia.
	OldestAt time.Time
}

// Admitter decide se uma nova requisição de uma chave pode seguir em `now`,
// registrando-a quando admitida.
//
// A implementação de referência é uma janela deslizante (infra.WindowStore),
// mas a camada de aplicação não depende disso.
type Admitter interface {
	Decide(key Key, now time.Time) Verdict
}

type Decision struct {
	Allowed   bool
	Limit     int
	Window    time.Duration
	Remaining int
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
