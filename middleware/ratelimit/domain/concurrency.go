package domain

import "context"

// SlotPool limita quantas gerações podem estar em andamento ao mesmo tempo.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar; a função de
// release devolvida deve ser chamada exatamente uma vez.
// InFlight informa quantas vagas estão ocupadas agora (usado em logs/headers).
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
	InFlight() int
	Cap() int
}
