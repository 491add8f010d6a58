package router

import (
	"database/sql"
	"net/http"

	catalogmem "pet-adoption-hub/internal/adapters/catalog/memory"
	realtimemem "pet-adoption-hub/internal/adapters/realtime/memory"
	mem "pet-adoption-hub/internal/adapters/storage/memory"
	pg "pet-adoption-hub/internal/adapters/storage/postgres"
	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"
	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
	"pet-adoption-hub/internal/middleware"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/ports/auth"
	"pet-adoption-hub/internal/ports/catalog"
	"pet-adoption-hub/internal/ports/identity"
	"pet-adoption-hub/internal/ports/realtime"

	_ "pet-adoption-hub/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Realtime agrupa publicación y suscripción (Redis pub/sub o hub en proceso).
type Realtime interface {
	realtime.Publisher
	realtime.Subscriber
}

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: si es nil se usa el hub en proceso (una sola réplica).
	Realtime Realtime

	// Opcional: si es nil se usa un catálogo in-memory vacío.
	Catalog   catalog.PetCatalog
	Directory identity.Directory
	Exporter  archive.Exporter

	Logger logger.Logger
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		lockRepo    locks.Repository
		appRepo     applications.Repository
		roomRepo    rooms.Repository
		notifRepo   notifications.Repository
		archiveRepo archive.Repository
		archiveUoW  archive.UnitOfWork
	)

	if opts.DB != nil {
		pgArchive := pg.NewArchiveRepo(opts.DB)
		lockRepo = pg.NewLocksRepo(opts.DB)
		appRepo = pg.NewApplicationsRepo(opts.DB)
		roomRepo = pg.NewRoomsRepo(opts.DB)
		notifRepo = pg.NewNotificationsRepo(opts.DB)
		archiveRepo, archiveUoW = pgArchive, pgArchive
	} else {
		store := mem.NewStore()
		memArchive := mem.NewArchiveRepo(store)
		lockRepo = mem.NewLockRepo(store)
		appRepo = mem.NewApplicationRepo(store)
		roomRepo = mem.NewRoomRepo(store)
		notifRepo = mem.NewNotificationRepo(store)
		archiveRepo, archiveUoW = memArchive, memArchive
	}

	rt := opts.Realtime
	if rt == nil {
		rt = realtimemem.NewHub()
	}
	petCatalog := opts.Catalog
	if petCatalog == nil {
		petCatalog = catalogmem.NewCatalog()
	}

	// Services por módulo
	notifSvc := notifications.NewService(notifRepo, rt, log.With(map[string]any{"module": "notifications"}))
	locksSvc := locks.NewService(lockRepo)
	roomsSvc := rooms.NewService(roomRepo, notifSvc, log.With(map[string]any{"module": "rooms"}))
	appsSvc := applications.NewService(appRepo, applications.Dependencies{
		Locks:     locksSvc,
		Rooms:     roomsSvc,
		Notifier:  notifSvc,
		Catalog:   petCatalog,
		Directory: opts.Directory,
		Logger:    log.With(map[string]any{"module": "applications"}),
	})
	archiveSvc := archive.NewService(archiveUoW, archiveRepo, notifSvc, opts.Exporter,
		log.With(map[string]any{"module": "archive"}))
	appsSvc.SetArchiveHistory(archiveSvc)

	// Rutas por módulo
	applications.RegisterRoutes(r, appsSvc)
	archive.RegisterRoutes(r, archiveSvc)
	// solo la solicitud viva modifica la sala; la lectura sigue disponible
	// después de archivar
	rooms.RegisterRoutes(r, roomsSvc, appsSvc, rooms.ChainResolvers(appsSvc, archiveSvc))
	notifications.RegisterRoutes(r, notifSvc, rt)

	return r
}
