package consent

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"health-consent/internal/middleware"
	"health-consent/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/consents", func(cr chi.Router) {
		cr.Post("/", issueConsentHandler(svc))
		cr.Post("/claim", claimConsentHandler(svc))
		cr.Post("/revoke", revokeConsentHandler(svc))
		cr.Get("/{code}/claimed", isConsentClaimedHandler(svc))
	})

	r.Get("/me/consents", listMyConsentsHandler(svc))
}

type issueConsentResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type claimConsentRequest struct {
	Code string `json:"code"`
}

type claimConsentResponse struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
}

type revokeConsentRequest struct {
	Codes []string `json:"codes"`
}

// consentRecord es la vista del ledger que ve el owner.
type consentRecord struct {
	Code        string     `json:"code"`
	Owner       string     `json:"owner"`
	State       State      `json:"state" enums:"pending,claimed,expired,revoked"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ClaimedBy   string     `json:"claimed_by,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
	GroupOrigin string     `json:"group_origin,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

type isConsentClaimedResponse struct {
	Claimed bool           `json:"claimed"`
	Info    *consentRecord `json:"info,omitempty"`
}

// issueConsentHandler godoc
// @Summary Emitir código de consentimiento
// @Description El paciente autenticado obtiene un código corto de un solo uso que vence a los pocos segundos. Lo comparte fuera de banda con quien va a leer sus registros.
// @Tags consents
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Success 201 {object} issueConsentResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 409 {object} httpx.ErrorBody "collision: reintentar"
// @Router /consents [post]
func issueConsentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		c, err := svc.Issue(r.Context(), claims.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, issueConsentResponse{
			Code:      c.Code,
			ExpiresAt: c.ExpiresAt,
		})
	}
}

// claimConsentHandler godoc
// @Summary Reclamar código de consentimiento
// @Description Canjea un código por una sesión sobre los registros del owner. Un solo claim gana; el resto recibe `already_claimed`. Un código vencido siempre responde `expired`.
// @Tags consents
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, id del claimant"
// @Param X-Debug-Provider header string false "Solo en modo dev, contexto de proveedor"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body claimConsentRequest true "Código"
// @Success 200 {object} claimConsentResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody "not_found"
// @Failure 409 {object} httpx.ErrorBody "already_claimed"
// @Failure 410 {object} httpx.ErrorBody "expired / revoked"
// @Router /consents/claim [post]
func claimConsentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req claimConsentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		res, err := svc.Claim(r.Context(), Claimant{
			ID:       claims.UserID,
			Provider: claims.Provider,
		}, req.Code)
		if err != nil {
			WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, claimConsentResponse{
			SessionID: res.SessionID,
			Name:      res.OwnerName,
		})
	}
}

// isConsentClaimedHandler godoc
// @Summary ¿Ya reclamaron mi código?
// @Description Lectura pura pensada para polling a intervalo fijo por el cliente que emitió el código.
// @Tags consents
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param code path string true "Código"
// @Success 200 {object} isConsentClaimedResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /consents/{code}/claimed [get]
func isConsentClaimedHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		st, err := svc.IsClaimed(r.Context(), claims.UserID, chi.URLParam(r, "code"))
		if err != nil {
			WriteError(w, err)
			return
		}

		rec := toConsentRecord(st.Info)
		httpx.WriteJSON(w, http.StatusOK, isConsentClaimedResponse{
			Claimed: st.Claimed,
			Info:    &rec,
		})
	}
}

// revokeConsentHandler godoc
// @Summary Revocar códigos
// @Description Revoca de inmediato los códigos pending indicados. Idempotente. No termina sesiones ya abiertas: usar /sessions/{sessionID}/finish.
// @Tags consents
// @Accept json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body revokeConsentRequest true "Códigos a revocar"
// @Success 204
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Router /consents/revoke [post]
func revokeConsentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req revokeConsentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		if _, err := svc.Revoke(r.Context(), claims.UserID, req.Codes); err != nil {
			WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listMyConsentsHandler godoc
// @Summary Listar mis códigos
// @Tags consents
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param state query string false "pending | claimed | expired | revoked"
// @Success 200 {array} consentRecord
// @Failure 401 {object} httpx.ErrorBody
// @Router /me/consents [get]
func listMyConsentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}

		state := State(r.URL.Query().Get("state"))
		out := make([]consentRecord, 0, len(items))
		for _, c := range items {
			if state != "" && c.State != state {
				continue
			}
			out = append(out, toConsentRecord(c))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// WriteError traduce los errores del ledger a kinds. Lo reusa groups para
// add_group_member, que propaga los mismos fallos del claim.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrSelfClaim), errors.Is(err, ErrGroupCode):
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, httpx.KindUnauthorized, err.Error())
	case errors.Is(err, ErrCodeNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, err.Error())
	case errors.Is(err, ErrCodeAlreadyClaimed):
		httpx.WriteError(w, http.StatusConflict, httpx.KindAlreadyClaimed, err.Error())
	case errors.Is(err, ErrCodeExpired):
		httpx.WriteError(w, http.StatusGone, httpx.KindExpired, err.Error())
	case errors.Is(err, ErrCodeRevoked):
		httpx.WriteError(w, http.StatusGone, httpx.KindRevoked, err.Error())
	case errors.Is(err, ErrCodeCollision):
		httpx.WriteError(w, http.StatusConflict, httpx.KindCollision, err.Error())
	default:
		httpx.Internal(w)
	}
}

func toConsentRecord(c ConsentCode) consentRecord {
	return consentRecord{
		Code:        c.Code,
		Owner:       c.Owner,
		State:       c.State,
		IssuedAt:    c.IssuedAt,
		ExpiresAt:   c.ExpiresAt,
		ClaimedBy:   c.ClaimedBy,
		ClaimedAt:   c.ClaimedAt,
		SessionID:   c.SessionID,
		GroupOrigin: c.GroupOrigin,
		RevokedAt:   c.RevokedAt,
	}
}
