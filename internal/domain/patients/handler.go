package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"health-consent/internal/middleware"
	"health-consent/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/me/profile", func(pr chi.Router) {
		pr.Put("/", saveProfileHandler(svc))
		pr.Get("/", getProfileHandler(svc))
	})
}

type saveProfileRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD opcional
	Gender    string `json:"gender" enums:"male,female,unknown"`
}

type profileResponse struct {
	NIK       string     `json:"nik"`
	Name      string     `json:"name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Age       *int       `json:"age,omitempty"`
	Gender    Gender     `json:"gender"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// saveProfileHandler godoc
// @Summary Guardar mi perfil
// @Description Crea o actualiza el perfil del llamador (nombre, fecha de nacimiento, género). Se usa para el nombre que ve quien reclama un código y para los datos derivados del roster de grupos.
// @Tags profile
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Param payload body saveProfileRequest true "Perfil; birth_date en formato YYYY-MM-DD"
// @Success 200 {object} profileResponse
// @Failure 400 {object} httpx.ErrorBody
// @Failure 401 {object} httpx.ErrorBody
// @Router /me/profile [put]
func saveProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		var req saveProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "invalid json")
			return
		}

		var bd *time.Time
		if strings.TrimSpace(req.BirthDate) != "" {
			t, err := time.Parse("2006-01-02", req.BirthDate)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, "birth_date must be YYYY-MM-DD")
				return
			}
			bd = &t
		}

		p, err := svc.SaveProfile(r.Context(), claims.UserID, ProfileInput{
			Name:      req.Name,
			BirthDate: bd,
			Gender:    Gender(req.Gender),
		})
		if err != nil {
			if err == ErrInvalidInput {
				httpx.WriteError(w, http.StatusBadRequest, httpx.KindInvalidInput, err.Error())
				return
			}
			httpx.Internal(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toProfileResponse(p, svc.Now()))
	}
}

// getProfileHandler godoc
// @Summary Ver mi perfil
// @Tags profile
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, NIK del llamador"
// @Param Authorization header string false "Bearer token en producción"
// @Success 200 {object} profileResponse
// @Failure 401 {object} httpx.ErrorBody
// @Failure 404 {object} httpx.ErrorBody
// @Router /me/profile [get]
func getProfileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.Caller(r)
		if !ok {
			httpx.Unauthenticated(w)
			return
		}

		p, err := svc.GetByID(r.Context(), claims.UserID)
		if errors.Is(err, ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, httpx.KindNotFound, "profile not found")
			return
		}
		if err != nil {
			httpx.Internal(w)
			return
		}

		httpx.WriteJSON(w, http.StatusOK, toProfileResponse(p, svc.Now()))
	}
}

func toProfileResponse(p Patient, now time.Time) profileResponse {
	return profileResponse{
		NIK:       p.ID,
		Name:      p.Name,
		BirthDate: p.BirthDate,
		Age:       p.AgeAt(now),
		Gender:    p.Gender,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
