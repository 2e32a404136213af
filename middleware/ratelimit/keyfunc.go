package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"summarize-gateway/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) domain.Key

// DefaultKeyFunc resolve a identidade do cliente, nesta ordem:
// header configurado, primeiro IP do X-Forwarded-For (se confiável),
// host do RemoteAddr e, por fim, "unknown".
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) domain.Key {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return domain.Key(v)
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return domain.Key(ip)
				}
			}
		}

		// fallback: RemoteAddr
		addr := strings.TrimSpace(r.RemoteAddr)
		host, _, err := net.SplitHostPort(addr)
		if err == nil && host != "" {
			return domain.Key(host)
		}
		if addr != "" {
			return domain.Key(addr)
		}
		return domain.UnknownKey
	}
}
