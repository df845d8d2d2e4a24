package router

import (
	"database/sql"
	"net/http"

	"health-consent/internal/adapters/storage/leveldb"
	mem "health-consent/internal/adapters/storage/memory"
	pg "health-consent/internal/adapters/storage/postgres"
	"health-consent/internal/domain/consent"
	"health-consent/internal/domain/groups"
	"health-consent/internal/domain/patients"
	"health-consent/internal/domain/records"
	"health-consent/internal/domain/sessions"
	"health-consent/internal/middleware"
	"health-consent/internal/platform/logger"
	"health-consent/internal/ports/auth"

	_ "health-consent/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	Logger       logger.Logger

	// Backend: DB (postgres) > LevelDB > in-memory.
	DB      *sql.DB
	LevelDB *leveldb.DB

	Consent consent.Settings
	// Codes opcional; por defecto un generador numérico de 8 dígitos.
	Codes consent.CodeSource
	// Records opcional: record store externo. Si es nil se usa el del backend.
	Records records.Store
}

// App expone el handler y los services que main necesita (sweeper).
type App struct {
	Handler http.Handler
	Consent *consent.Service
}

type repos struct {
	patients patients.Repository
	sessions sessions.Repository
	consent  consent.Repository
	groups   groups.Repository
	records  records.Store
}

func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	codes := opts.Codes
	if codes == nil {
		g, err := consent.NewGenerator(consent.DefaultCodeLength, consent.NumericAlphabet)
		if err != nil {
			return nil, err
		}
		codes = g
	}

	rp := newRepos(opts)
	if opts.Records != nil {
		rp.records = opts.Records
	}

	// Services por módulo
	patientsSvc := patients.NewService(rp.patients)
	sessionsSvc := sessions.NewService(rp.sessions)
	consentSvc := consent.NewService(rp.consent, codes, opts.Consent).WithNames(patientsSvc)
	groupsSvc := groups.NewService(rp.groups, consentSvc, patientsSvc)
	consentSvc.WithGroupLeaders(groupsSvc)
	recordsSvc := records.NewService(rp.records, sessionsSvc, groupsSvc)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	patients.RegisterRoutes(r, patientsSvc)
	consent.RegisterRoutes(r, consentSvc)
	sessions.RegisterRoutes(r, sessionsSvc)
	groups.RegisterRoutes(r, groupsSvc)
	records.RegisterRoutes(r, recordsSvc)

	return &App{Handler: r, Consent: consentSvc}, nil
}

func newRepos(opts Options) repos {
	switch {
	case opts.DB != nil:
		return repos{
			patients: pg.NewPatientsRepo(opts.DB),
			sessions: pg.NewSessionsRepo(opts.DB),
			consent:  pg.NewConsentRepo(opts.DB),
			groups:   pg.NewGroupsRepo(opts.DB),
			records:  pg.NewRecordsRepo(opts.DB),
		}
	case opts.LevelDB != nil:
		return repos{
			patients: leveldb.NewPatientsRepo(opts.LevelDB),
			sessions: leveldb.NewSessionsRepo(opts.LevelDB),
			consent:  leveldb.NewConsentRepo(opts.LevelDB),
			groups:   leveldb.NewGroupsRepo(opts.LevelDB),
			records:  leveldb.NewRecordsRepo(opts.LevelDB),
		}
	default:
		// la sesión y el miembro se escriben junto con el claim: los repos
		// comparten estado
		sess := mem.NewSessionRepo()
		grp := mem.NewGroupRepo()
		return repos{
			patients: mem.NewPatientRepo(),
			sessions: sess,
			consent:  mem.NewConsentRepo(sess, grp),
			groups:   grp,
			records:  mem.NewRecordRepo(),
		}
	}
}
