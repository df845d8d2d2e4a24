package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"health-consent/internal/domain/sessions"
	"health-consent/internal/middleware"
	"health-consent/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Proveedor con sesión activa.
	r.Get("/sessions/{sessionID}/records", listSessionRecordsHandler(svc))
	r.Post("/sessions/{sessionID}/records", appendSessionRecordHandler(svc))
	r.Get("/sessions/{sessionID}/records/{recordID}", getSessionRecordHandler(svc))

	// Paciente propio o miembro con grant de grupo.
	r.Get("/patients/{nik}/records", listPatientRecordsHandler(svc))
	r.Get("/patients/{nik}/records/{recordID}", getPatientRecordHandler(svc))

	r.Post("/me/records", appendOwnRecordHandler(svc))
	r.Post("/me/records/{recordID}/void", voidRecordHandler(svc))
}

type appendRecordRequest struct {
	Type       RecordType `json:"type" enums:"NOTE,MEDICAL_VISIT,DIAGNOSIS,PRESCRIPTION,LAB_RESULT,IMMUNIZATION,VITAL_SIGNS"`
	OccurredAt string     `json:"occurred_at"` // RFC3339
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	Source     Source     `json:"source"` // opcional
}

type recordResponse struct {
	ID         string     `json:"id"`
	PatientID  string     `json:"patient_id"`
	Type       RecordType `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`
	RecordedAt time.Time  `json:"recorded_at"`
	Title      string     `json:"title"`
	Notes      string     `json:"notes"`
	AuthorType AuthorType `json:"author_type"`
	AuthorID   string     `json:"author_id"`
	SessionID  string     `json:"session_id,omitempty"`
	Source     Source     `json:"source"`
	Status     Status     `json:"status"`
}

// listSessionRecordsHandler godoc
// @Summary Leer historia bajo una sesión
// @Description El holder de la sesión lee la historia del owner. Si el owner terminó la sesión responde `session_ended`.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, id del holder"
// @Param Authorization header string false "Bearer token en producción"
// @Param sessionID path string true "ID de la sesión"
// @Param limit query int false "Máximo de registros (1-200). Por defecto 50"
// @Param offset query int false "Registros a saltear"
// @Param types query string false "Lista CSV de tipos (ej: DIAGNOSIS,LAB_RESULT)"
// @Param from query string false "occurred_at mínimo (RFC3339)"
// @Param to query string false "occurred_at máximo (RFC3339)"
// @Param q query string false "Texto libre en título/notas"
// @Success 200 {array} recordResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Failure 410 {object} httpx.ErrorBody "session_ended"
// @Router /sessions/{sessionID}/records [get]
func listSessionRecordsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
			return
		}

		items, err := svc.ListViaSession(r.Context(), claims.UserID, chi.URLParam(r, "sessionID"), filter)
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponses(items))
	}
}

// getSessionRecordHandler godoc
// @Summary Leer un registro bajo una sesión
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, id del holder"
// @Param Authorization header string false "Bearer token en producción"
// @Param sessionID path string true "ID de la sesión"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Failure 410 {object} httpx.ErrorBody "session_ended"
// @Router /sessions/{sessionID}/records/{recordID} [get]
func getSessionRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		rec, err := svc.GetViaSession(r.Context(), claims.UserID, chi.URLParam(r, "sessionID"), chi.URLParam(r, "recordID"))
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// appendSessionRecordHandler godoc
// @Summary Registrar en la historia bajo una sesión
// @Description El proveedor agrega una entrada (visita, diagnóstico, receta...) a la historia del owner de la sesión.
// @Tags records
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, id del holder"
// @Param Authorization header string false "Bearer token en producción"
// @Param sessionID path string true "ID de la sesión"
// @Param payload body appendRecordRequest true "Registro; occurred_at en RFC3339"
// @Success 201 {object} recordResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 410 {object} httpx.ErrorBody "session_ended"
// @Router /sessions/{sessionID}/records [post]
func appendSessionRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		in, err := decodeAppend(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
			return
		}

		rec, err := svc.AppendViaSession(r.Context(), claims.UserID, chi.URLParam(r, "sessionID"), in)
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

// listPatientRecordsHandler godoc
// @Summary Leer historia de un paciente
// @Description El propio paciente, o un miembro de su grupo al que le dio acceso con un grant.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param nik path string true "NIK del paciente"
// @Param limit query int false "Máximo de registros (1-200). Por defecto 50"
// @Param offset query int false "Registros a saltear"
// @Param types query string false "Lista CSV de tipos"
// @Param from query string false "occurred_at mínimo (RFC3339)"
// @Param to query string false "occurred_at máximo (RFC3339)"
// @Param q query string false "Texto libre en título/notas"
// @Success 200 {array} recordResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Router /patients/{nik}/records [get]
func listPatientRecordsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		filter, err := parseListFilter(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
			return
		}

		items, err := svc.ListForPatient(r.Context(), claims.UserID, chi.URLParam(r, "nik"), filter)
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponses(items))
	}
}

// getPatientRecordHandler godoc
// @Summary Leer un registro de un paciente
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param nik path string true "NIK del paciente"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /patients/{nik}/records/{recordID} [get]
func getPatientRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		rec, err := svc.GetForPatient(r.Context(), claims.UserID, chi.URLParam(r, "nik"), chi.URLParam(r, "recordID"))
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// appendOwnRecordHandler godoc
// @Summary Registrar en mi historia
// @Tags records
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body appendRecordRequest true "Registro; occurred_at en RFC3339"
// @Success 201 {object} recordResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Router /me/records [post]
func appendOwnRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		in, err := decodeAppend(r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
			return
		}

		rec, err := svc.AppendOwn(r.Context(), claims.UserID, in)
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

// voidRecordHandler godoc
// @Summary Anular un registro de mi historia
// @Description Marca el registro como voided; no se borra. Idempotente.
// @Tags records
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /me/records/{recordID}/void [post]
func voidRecordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		rec, err := svc.Void(r.Context(), claims.UserID, chi.URLParam(r, "recordID"))
		if err != nil {
			writeRecordError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

func decodeAppend(r *http.Request) (AppendInput, error) {
	var req appendRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return AppendInput{}, errors.New("invalid json")
	}

	t, err := time.Parse(time.RFC3339, req.OccurredAt)
	if err != nil {
		return AppendInput{}, errors.New("occurred_at must be RFC3339")
	}

	return AppendInput{
		Type:       req.Type,
		OccurredAt: t,
		Title:      req.Title,
		Notes:      req.Notes,
		Source:     req.Source,
	}, nil
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()

	filter := ListFilter{Limit: DefaultListLimit}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= MaxListLimit {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	// types=DIAGNOSIS,LAB_RESULT
	if v := strings.TrimSpace(q.Get("types")); v != "" {
		for _, p := range strings.Split(v, ",") {
			t := RecordType(strings.TrimSpace(p))
			if t == "" {
				continue
			}
			if !t.Valid() {
				return ListFilter{}, errors.New("unknown record type: " + string(t))
			}
			filter.Types = append(filter.Types, t)
		}
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = &t
	}

	filter.Query = strings.TrimSpace(q.Get("q"))
	return filter, nil
}

func writeRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, sessions.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, sessions.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, err.Error())
	case errors.Is(err, ErrForbidden), errors.Is(err, sessions.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, httpx.KindUnauthorized, err.Error())
	case errors.Is(err, sessions.ErrSessionEnded):
		httpx.WriteError(w, http.StatusGone, httpx.KindSessionEnded, err.Error())
	default:
		httpx.Internal(w)
	}
}

func toRecordResponses(items []Record) []recordResponse {
	out := make([]recordResponse, 0, len(items))
	for _, rec := range items {
		out = append(out, toRecordResponse(rec))
	}
	return out
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:         rec.ID,
		PatientID:  rec.PatientID,
		Type:       rec.Type,
		OccurredAt: rec.OccurredAt,
		RecordedAt: rec.RecordedAt,
		Title:      rec.Title,
		Notes:      rec.Notes,
		AuthorType: rec.Author.Type,
		AuthorID:   rec.Author.ID,
		SessionID:  rec.SessionID,
		Source:     rec.Source,
		Status:     rec.Status,
	}
}
