package infra

import (
	"math"
	"sync"
	"time"

	"summarize-gateway/middleware/ratelimit/domain"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// WindowStore é a implementação de janela deslizante por chave.
//
// Cada chave guarda os instantes das requisições admitidas dentro da janela,
// em ordem de chegada. Um único mutex protege tudo: o get-or-create, a
// compactação, a decisão e o append acontecem na mesma seção crítica.
//
// As chaves ficam numa LRU ordenada pela admissão mais recente. Com maxKeys
// cheio, a chave nova toma o lugar da que admitiu há mais tempo: se alguma
// janela está vazia, é essa. Se todas ainda têm entradas vivas, a descartada
// recomeça do zero e pode passar do limite dentro da janela atual; é o custo
// de manter a memória limitada.
type WindowStore struct {
	mu      sync.Mutex
	windows *simplelru.LRU[string, *clientWindow]

	limit        int
	window       time.Duration
	maxKeys      int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	clock        domain.Clock
}

type clientWindow struct {
	stamps   []time.Time
	lastSeen time.Time
}

type WindowOption func(*WindowStore)

// WithMaxKeys limita quantas chaves ficam em memória. <= 0 desativa o limite.
func WithMaxKeys(n int) WindowOption {
	return func(s *WindowStore) { s.maxKeys = n }
}

func WithWindowIdleTTL(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.idleTTL = d }
}

func WithWindowCleanupEvery(d time.Duration) WindowOption {
	return func(s *WindowStore) { s.cleanupEvery = d }
}

// WithClock troca o relógio usado pelo janitor (Sweep periódico).
func WithClock(c domain.Clock) WindowOption {
	return func(s *WindowStore) { s.clock = c }
}

func NewWindowStore(limit int, window time.Duration, opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		limit:        limit,
		window:       window,
		maxKeys:      100_000,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
		clock:        SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	size := s.maxKeys
	if size <= 0 {
		size = math.MaxInt
	}
	// só falha com size <= 0
	s.windows, _ = simplelru.NewLRU[string, *clientWindow](size, nil)
	return s
}

func (s *WindowStore) Limit() int { return s.limit }
func (s *WindowStore) Window() time.Duration { return s.window }
func (s *WindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

// Admit registra e admite a requisição se a chave ainda tem vaga na janela
// (now-window, now]. Rejeições não alteram o estado guardado.
func (s *WindowStore) Admit(key domain.Key, now time.Time) bool {
	return s.Decide(key, now).Allowed
}

// Decide implementa domain.Admitter.
func (s *WindowStore) Decide(key domain.Key, now time.Time) domain.Verdict {
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Peek não mexe na ordem da LRU: rejeições não "renovam" a chave
	cw, ok := s.windows.Peek(k)
	if !ok {
		cw = &clientWindow{}
		s.windows.Add(k, cw)
	}
	cw.lastSeen = now
	cw.evict(now, s.window)

	if len(cw.stamps) >= s.limit {
		v := domain.Verdict{Allowed: false, Count: len(cw.stamps)}
		if len(cw.stamps) > 0 {
			v.OldestAt = cw.stamps[0]
		}
		return v
	}

	cw.stamps = append(cw.stamps, now)
	s.windows.Get(k)
	return domain.Verdict{Allowed: true, Count: len(cw.stamps), OldestAt: cw.stamps[0]}
}

// Count devolve quantas entradas da chave ainda estão na janela em `now`,
// sem registrar nada.
func (s *WindowStore) Count(key domain.Key, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cw, ok := s.windows.Peek(string(key))
	if !ok {
		return 0
	}
	n := 0
	for _, t := range cw.stamps {
		if now.Sub(t) < s.window {
			n++
		}
	}
	return n
}

// Len devolve quantas chaves estão em memória.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows.Len()
}

// Sweep remove chaves sem nenhuma entrada na janela e sem atividade há mais
// de idleTTL. Retorna quantas chaves foram removidas.
func (s *WindowStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, k := range s.windows.Keys() {
		cw, ok := s.windows.Peek(k)
		if !ok {
			continue
		}
		cw.evict(now, s.window)
		if len(cw.stamps) == 0 && now.Sub(cw.lastSeen) >= s.idleTTL {
			s.windows.Remove(k)
			removed++
		}
	}
	return removed
}

// evict remove do início as entradas com idade >= window.
func (cw *clientWindow) evict(now time.Time, window time.Duration) {
	i := 0
	for i < len(cw.stamps) && now.Sub(cw.stamps[i]) >= window {
		i++
	}
	if i == 0 {
		return
	}
	n := copy(cw.stamps, cw.stamps[i:])
	cw.stamps = cw.stamps[:n]
}

// StartJanitor inicia uma goroutine que remove chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *WindowStore) StartJanitor(ctx DoneContext) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(s.clock.Now())
			}
		}
	}()
}

// DoneContext é o mínimo necessário para aceitar context.Context sem importar context aqui.
type DoneContext interface {
	Done() <-chan struct{}
}

// SystemClock é o relógio real do processo.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
