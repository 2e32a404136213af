package summarize

import (
	"net/http"
	"time"

	"summarize-gateway/middleware/origin"
	"summarize-gateway/middleware/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	Origin         *origin.Guard
	ConcurrencyMax int
	// ConcurrencyTimeout <= 0 espera até o cliente desistir.
	ConcurrencyTimeout time.Duration
}

// Router monta o http.Handler completo do gateway.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestContext)
	r.Use(h.accessLog)

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		if opts.Origin != nil {
			r.Use(opts.Origin.Middleware)
		}

		guard := ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Max:            opts.ConcurrencyMax,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: opts.ConcurrencyTimeout,
			OnReject: func(w http.ResponseWriter, _ *http.Request, status int) {
				writeError(w, status, "server busy, try again later")
			},
		})
		r.With(guard).Post("/api/summarize", h.summarize)
		r.With(guard).Post("/summarize", h.summarize)
		r.Options("/api/summarize", preflight)
		r.Options("/summarize", preflight)

		if h.opts.MemoryStats != nil {
			r.Get("/api/stats", h.stats)
			r.Options("/api/stats", preflight)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// preflight só roda para requisições sem Origin ou quando não há guard;
// com Origin permitido o guard já responde 204.
func preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// requestContext propaga X-Request-Id (ou gera um) e coloca no contexto um
// logger com esse id.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		logger := h.opts.Logger.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		ev := zerolog.Ctx(r.Context()).Info()
		if status >= 500 {
			ev = zerolog.Ctx(r.Context()).Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
