package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// routePattern usa el patrón de chi (/consents/{code}/claimed) en vez del path
// real, para no escribir códigos ni session ids en los logs.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
