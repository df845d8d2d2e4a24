// Package httpx escribe las respuestas JSON de la API: el cuerpo de éxito y
// el sobre de error {"error": kind, "message": ...} que usan todos los módulos.
package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Kind es el tipo de error que los clientes usan para elegir el mensaje en UI.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindExpired        Kind = "expired"
	KindAlreadyClaimed Kind = "already_claimed"
	KindRevoked        Kind = "revoked"
	KindUnauthorized   Kind = "unauthorized"
	KindAlreadyExists  Kind = "already_exists"
	KindCollision      Kind = "collision"
	KindSessionEnded   Kind = "session_ended"
	KindInvalidInput   Kind = "invalid_input"
	KindInternal       Kind = "internal"
)

type ErrorBody struct {
	Error   Kind   `json:"error"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, kind Kind, msg string) {
	WriteJSON(w, status, ErrorBody{Error: kind, Message: msg})
}

// Unauthenticated es la respuesta común cuando no hay claims.
func Unauthenticated(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, KindUnauthorized, "unauthorized")
}

// Internal oculta el detalle del error de infraestructura.
func Internal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, KindInternal, "internal error")
}

// Page lee page/limit (page 1-based). limit se acota a [1, maxLimit].
func Page(r *http.Request, defLimit, maxLimit int) (page, limit int) {
	page, limit = 1, defLimit
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
