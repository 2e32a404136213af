// Package origin restringe quais origens de navegador podem chamar a API e
// responde os headers de CORS para as origens permitidas.
package origin

import (
	"net/http"
	"strings"
)

type Options struct {
	// AllowedOrigins aceita "*" para liberar qualquer origem.
	AllowedOrigins   []string
	AllowCredentials bool
	AllowMethods     []string
	AllowHeaders     []string
	// OnReject escreve a resposta 403. Se nil, usa http.Error.
	OnReject func(w http.ResponseWriter, r *http.Request)
}

// Guard guarda a lista normalizada de origens permitidas.
type Guard struct {
	opts     Options
	allowAll bool
	allowed  map[string]struct{}
}

func New(opts Options) *Guard {
	g := &Guard{opts: opts, allowed: make(map[string]struct{}, len(opts.AllowedOrigins))}
	for _, o := range opts.AllowedOrigins {
		o = normalize(o)
		switch o {
		case "":
		case "*":
			g.allowAll = true
		default:
			g.allowed[o] = struct{}{}
		}
	}
	if len(g.opts.AllowMethods) == 0 {
		g.opts.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	if len(g.opts.AllowHeaders) == 0 {
		g.opts.AllowHeaders = []string{"Content-Type", "Authorization", "X-Request-Id"}
	}
	if g.opts.OnReject == nil {
		g.opts.OnReject = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
		}
	}
	return g
}

// Allowed informa se a origem pode chamar a API. Requisições sem Origin
// (curl, servidor-a-servidor) não passam por aqui.
func (g *Guard) Allowed(origin string) bool {
	if g.allowAll {
		return true
	}
	_, ok := g.allowed[normalize(origin)]
	return ok
}

// Middleware aplica a regra: sem Origin segue; Origin fora da lista recebe 403;
// Origin permitida recebe os headers de CORS e preflight responde 204.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !g.Allowed(origin) {
			g.opts.OnReject(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Origin", origin)
		if g.opts.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", strings.Join(g.opts.AllowMethods, ", "))
			h.Set("Access-Control-Allow-Headers", strings.Join(g.opts.AllowHeaders, ", "))
			h.Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func normalize(origin string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
}
