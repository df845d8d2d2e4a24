package sessions

import (
	"net/http"
	"strings"
	"time"

	"health-consent/internal/middleware"
	"health-consent/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Planas: records cuelga /sessions/{sessionID}/records del mismo router.
	r.Get("/sessions/{sessionID}", getSessionHandler(svc))
	r.Post("/sessions/{sessionID}/finish", finishSessionHandler(svc))

	r.Get("/me/sessions", listMySessionsHandler(svc))
}

type sessionResponse struct {
	SessionID string     `json:"session_id"`
	Owner     string     `json:"owner"`
	Holder    string     `json:"holder"`
	Provider  string     `json:"provider,omitempty"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// getSessionHandler godoc
// @Summary Ver una sesión
// @Description Owner o holder de la sesión pueden verla.
// @Tags sessions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK/id del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param sessionID path string true "ID de la sesión"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /sessions/{sessionID} [get]
func getSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		sess, err := svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		if sess.Owner != claims.UserID && sess.Holder != claims.UserID {
			writeSessionError(w, ErrForbidden)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
	}
}

// finishSessionHandler godoc
// @Summary Terminar una sesión
// @Description Solo el owner. Efecto inmediato: toda lectura posterior bajo la sesión falla con `session_ended`. Idempotente.
// @Tags sessions
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param sessionID path string true "ID de la sesión"
// @Success 204
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /sessions/{sessionID}/finish [post]
func finishSessionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		if _, err := svc.Finish(r.Context(), claims.UserID, chi.URLParam(r, "sessionID")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listMySessionsHandler godoc
// @Summary Listar mis sesiones
// @Description role=owner (default) lista las sesiones sobre mis registros; role=holder las que yo obtuve.
// @Tags sessions
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK/id del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param role query string false "owner | holder"
// @Param status query string false "active | ended"
// @Success 200 {array} sessionResponse
// @Failure 401 {object} httpx.ErrorBody
// @Router /me/sessions [get]
func listMySessionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var (
			items []Session
			err   error
		)
		switch strings.TrimSpace(r.URL.Query().Get("role")) {
		case "", "owner":
			items, err = svc.ListByOwner(r.Context(), claims.UserID)
		case "holder":
			items, err = svc.ListByHolder(r.Context(), claims.UserID)
		default:
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "role must be owner or holder")
			return
		}
		if err != nil {
			httpx.Internal(w)
			return
		}

		status := Status(strings.TrimSpace(r.URL.Query().Get("status")))

		out := make([]sessionResponse, 0, len(items))
		for _, s := range items {
			if status != "" && s.Status != status {
				continue
			}
			out = append(out, toSessionResponse(s))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
	case ErrNotFound:
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, err.Error())
	case ErrForbidden:
		httpx.WriteError(w, http.StatusForbidden, httpx.KindUnauthorized, err.Error())
	case ErrSessionEnded:
		httpx.WriteError(w, http.StatusGone, httpx.KindSessionEnded, err.Error())
	default:
		httpx.Internal(w)
	}
}

func toSessionResponse(s Session) sessionResponse {
	return sessionResponse{
		SessionID: s.ID,
		Owner:     s.Owner,
		Holder:    s.Holder,
		Provider:  s.Scope.Provider,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		EndedAt:   s.EndedAt,
	}
}
