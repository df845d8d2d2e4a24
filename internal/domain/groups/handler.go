package groups

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/patients"
	"health-consent/internal/middleware"
	"health-consent/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/groups", func(gr chi.Router) {
		gr.Post("/", createGroupHandler(svc))

		gr.Route("/{groupID}", func(one chi.Router) {
			one.Get("/", groupDetailsHandler(svc))
			one.Post("/consents", createGroupConsentHandler(svc))
			one.Post("/members", addGroupMemberHandler(svc))
			one.Post("/grants", grantGroupAccessHandler(svc))
			one.Get("/grants", listGroupGrantsHandler(svc))
			one.Post("/leave", leaveGroupHandler(svc))
		})
	})

	r.Delete("/grants/{granteeNIK}", revokeGroupAccessHandler(svc))
	r.Get("/me/groups", listMyGroupsHandler(svc))
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type groupResponse struct {
	ID        string    `json:"group_id"`
	Name      string    `json:"name"`
	Leader    string    `json:"leader"`
	CreatedAt time.Time `json:"created_at"`
}

type createGroupConsentRequest struct {
	// NIK opcional del invitado: si viene, solo él puede canjear el código.
	NIK string `json:"nik"`
}

type groupConsentResponse struct {
	Code      string    `json:"group_consent_code"`
	GroupID   string    `json:"group_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type addGroupMemberRequest struct {
	ConsentCode string   `json:"consent_code"`
	Relation    Relation `json:"relation" enums:"spouse,parent,sibling,child,other"`
}

type memberResponse struct {
	NIK      string          `json:"nik"`
	Name     string          `json:"name"`
	Age      *int            `json:"age,omitempty"`
	Gender   patients.Gender `json:"gender"`
	Role     Role            `json:"role"`
	Relation Relation        `json:"relation,omitempty"`
	JoinedAt time.Time       `json:"joined_at"`
}

type grantGroupAccessRequest struct {
	GranteeNIK string `json:"grantee_nik"`
}

type grantResponse struct {
	GroupID   string    `json:"group_id"`
	Grantee   string    `json:"grantee_nik"`
	GrantedBy string    `json:"granted_by"`
	CreatedAt time.Time `json:"created_at"`
}

type groupDetailsResponse struct {
	GroupID     string           `json:"group_id"`
	GroupName   string           `json:"group_name"`
	LeaderNIK   string           `json:"leader_nik"`
	LeaderName  string           `json:"leader_name"`
	MemberCount int              `json:"member_count"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
	Members     []memberResponse `json:"members"`
}

type leaveGroupResponse struct {
	Dissolved bool `json:"dissolved"`
}

// createGroupHandler godoc
// @Summary Crear grupo familiar
// @Description El llamador queda como líder.
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body createGroupRequest true "Grupo"
// @Success 201 {object} groupResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Router /groups [post]
func createGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		g, err := svc.Create(r.Context(), claims.UserID, req.Name)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toGroupResponse(g))
	}
}

// listMyGroupsHandler godoc
// @Summary Listar mis grupos
// @Tags groups
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {array} groupResponse
// @Failure 401 {object} httpx.ErrorBody
// @Router /me/groups [get]
func listMyGroupsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		items, err := svc.ListMine(r.Context(), claims.UserID)
		if err != nil {
			writeGroupError(w, err)
			return
		}

		out := make([]groupResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGroupResponse(g))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// createGroupConsentHandler godoc
// @Summary Código para sumar un miembro
// @Description Un miembro emite un código atado al grupo. Lo canjea el invitado en POST /groups/{groupID}/members. No abre sesión.
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Param payload body createGroupConsentRequest false "Invitado"
// @Success 201 {object} groupConsentResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Failure 409 {object} httpx.ErrorBody "already_exists"
// @Router /groups/{groupID}/consents [post]
func createGroupConsentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req createGroupConsentRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
				return
			}
		}

		c, err := svc.CreateConsentForGroup(r.Context(), claims.UserID, chi.URLParam(r, "groupID"), req.NIK)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, groupConsentResponse{
			Code:      c.Code,
			GroupID:   c.GroupOrigin,
			ExpiresAt: c.ExpiresAt,
		})
	}
}

// addGroupMemberHandler godoc
// @Summary Sumarse a un grupo con un código
// @Description El llamador canjea el código de grupo y queda como miembro con la relación declarada. Los fallos del claim son los mismos que en /consents/claim.
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Param payload body addGroupMemberRequest true "Código y relación"
// @Success 201 {object} memberResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Failure 409 {object} httpx.ErrorBody "already_claimed / already_exists"
// @Failure 410 {object} httpx.ErrorBody "expired / revoked"
// @Router /groups/{groupID}/members [post]
func addGroupMemberHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req addGroupMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		m, err := svc.AddMember(r.Context(), claims.UserID, chi.URLParam(r, "groupID"), req.ConsentCode, req.Relation)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, memberResponse{
			NIK:      m.PatientID,
			Name:     claims.Name,
			Gender:   patients.GenderUnknown,
			Role:     m.Role,
			Relation: m.Relation,
			JoinedAt: m.JoinedAt,
		})
	}
}

// grantGroupAccessHandler godoc
// @Summary Dar acceso a mis registros
// @Description El llamador autoriza a otro miembro del grupo a leer sus registros. Idempotente.
// @Tags groups
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Param payload body grantGroupAccessRequest true "Miembro autorizado"
// @Success 200 {object} grantResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody "not_found: grupo inexistente o grantee fuera del grupo"
// @Router /groups/{groupID}/grants [post]
func grantGroupAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req grantGroupAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		g, err := svc.Grant(r.Context(), claims.UserID, chi.URLParam(r, "groupID"), req.GranteeNIK)
		if err != nil {
			writeGroupError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toGrantResponse(g))
	}
}

// listGroupGrantsHandler godoc
// @Summary Listar grants del grupo que me involucran
// @Tags groups
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Success 200 {array} grantResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /groups/{groupID}/grants [get]
func listGroupGrantsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		items, err := svc.ListGrants(r.Context(), claims.UserID, chi.URLParam(r, "groupID"))
		if err != nil {
			writeGroupError(w, err)
			return
		}

		out := make([]grantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toGrantResponse(g))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// revokeGroupAccessHandler godoc
// @Summary Quitar acceso a mis registros
// @Description Borra los grants del llamador hacia granteeNIK. Sin group_id aplica a todos los grupos. Idempotente.
// @Tags groups
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param granteeNIK path string true "NIK del miembro"
// @Param group_id query string false "ID del grupo"
// @Success 204
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Router /grants/{granteeNIK} [delete]
func revokeGroupAccessHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		if _, err := svc.Revoke(r.Context(), claims.UserID, chi.URLParam(r, "granteeNIK"), r.URL.Query().Get("group_id")); err != nil {
			writeGroupError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// leaveGroupHandler godoc
// @Summary Salir del grupo
// @Description Si sale el líder el grupo se disuelve con todos sus miembros y grants.
// @Tags groups
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Success 200 {object} leaveGroupResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /groups/{groupID}/leave [post]
func leaveGroupHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		dissolved, err := svc.Leave(r.Context(), claims.UserID, chi.URLParam(r, "groupID"))
		if err != nil {
			writeGroupError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, leaveGroupResponse{Dissolved: dissolved})
	}
}

// groupDetailsHandler godoc
// @Summary Detalle del grupo
// @Description Roster paginado con nombre, edad, género y relación de cada miembro. Solo miembros.
// @Tags groups
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param groupID path string true "ID del grupo"
// @Param page query int false "Página (desde 1)"
// @Param limit query int false "Tamaño de página"
// @Success 200 {object} groupDetailsResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 403 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /groups/{groupID} [get]
func groupDetailsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		page, limit := httpx.Page(r, DefaultPageLimit, MaxPageLimit)
		d, err := svc.Details(r.Context(), claims.UserID, chi.URLParam(r, "groupID"), page, limit)
		if err != nil {
			writeGroupError(w, err)
			return
		}

		out := groupDetailsResponse{
			GroupID:     d.Group.ID,
			GroupName:   d.Group.Name,
			LeaderNIK:   d.Group.Leader,
			LeaderName:  d.LeaderName,
			MemberCount: d.MemberCount,
			Page:        d.Page,
			Limit:       d.Limit,
			Members:     make([]memberResponse, 0, len(d.Members)),
		}
		for _, m := range d.Members {
			out.Members = append(out.Members, memberResponse{
				NIK:      m.NIK,
				Name:     m.Name,
				Age:      m.Age,
				Gender:   m.Gender,
				Role:     m.Role,
				Relation: m.Relation,
				JoinedAt: m.JoinedAt,
			})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotMember):
		httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, err.Error())
	case errors.Is(err, ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, httpx.KindUnauthorized, err.Error())
	case errors.Is(err, ErrAlreadyMember):
		httpx.WriteError(w, http.StatusConflict, httpx.KindAlreadyExists, err.Error())
	default:
		// Fallos del claim del código de grupo.
		consent.WriteError(w, err)
	}
}

func toGroupResponse(g Group) groupResponse {
	return groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Leader:    g.Leader,
		CreatedAt: g.CreatedAt,
	}
}

func toGrantResponse(g Grant) grantResponse {
	return grantResponse{
		GroupID:   g.GroupID,
		Grantee:   g.Grantee,
		GrantedBy: g.GrantedBy,
		CreatedAt: g.CreatedAt,
	}
}
