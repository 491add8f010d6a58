package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pet-adoption-hub/internal/adapters/archiveexport/s3export"
	"pet-adoption-hub/internal/adapters/auth/odin"
	"pet-adoption-hub/internal/adapters/catalog/httpcatalog"
	catalogmem "pet-adoption-hub/internal/adapters/catalog/memory"
	"pet-adoption-hub/internal/adapters/identity/rediscache"
	"pet-adoption-hub/internal/adapters/realtime/redispubsub"
	pg "pet-adoption-hub/internal/adapters/storage/postgres"
	"pet-adoption-hub/internal/config"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/redisconn"
	"pet-adoption-hub/internal/ports/catalog"
	"pet-adoption-hub/internal/ports/identity"
	"pet-adoption-hub/internal/router"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("config load failed", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: logger.ParseFormat(cfg.Logging.Format),
		App:    cfg.App.Name,
	})
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", map[string]any{"error": err})
		logger.Sync(log)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	opts := router.Options{Logger: log}

	// Postgres (opcional)
	var db *sql.DB
	if cfg.Database.DSN != "" {
		var err error
		db, err = pg.Open(cfg.Database.DSN, pg.PoolOptions{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return err
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := pg.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("migrations applied", nil)
		}
		opts.DB = db
	} else {
		log.Warn("database.dsn empty, using in-memory store", nil)
	}

	// Redis (opcional): pub/sub de realtime y caché de nombres
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		var err error
		rdb, err = redisconn.New(ctx, redisconn.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts.Realtime = redispubsub.New(rdb)
	}

	// Identity (Odin): verificación de tokens + nombres visibles
	if cfg.Identity.BaseURL != "" {
		client, err := odin.NewClient(odin.Config{
			BaseURL: cfg.Identity.BaseURL,
			APIKey:  cfg.Identity.APIKey,
			Timeout: cfg.Identity.Timeout,
		})
		if err != nil {
			return err
		}
		var dir identity.Directory = client
		if rdb != nil {
			dir = rediscache.New(client, rdb, cfg.Identity.CacheTTL, log)
		}
		opts.AuthVerifier = odin.NewVerifier(client)
		opts.Directory = dir
	} else {
		log.Warn("identity.base_url empty, auth runs in dev mode (X-Debug-User-ID)", nil)
	}

	// Catálogo de mascotas
	var petCatalog catalog.PetCatalog
	if cfg.Catalog.BaseURL != "" {
		client, err := httpcatalog.NewClient(httpcatalog.Config{
			BaseURL: cfg.Catalog.BaseURL,
			APIKey:  cfg.Catalog.APIKey,
			Timeout: cfg.Catalog.Timeout,
		})
		if err != nil {
			return err
		}
		petCatalog = client
	} else {
		seed := make([]catalog.AdoptablePet, 0, len(cfg.Catalog.SeedPets))
		for _, p := range cfg.Catalog.SeedPets {
			seed = append(seed, catalog.AdoptablePet{PetID: p.PetID, Name: p.Name, ShelterID: p.ShelterID, IsAdoptable: true})
		}
		petCatalog = catalogmem.NewCatalog(seed...)
	}
	opts.Catalog = petCatalog

	// Export del archivo a S3 (opcional)
	if cfg.ArchiveExport.Enabled {
		exp, err := s3export.New(ctx, s3export.Config{
			Bucket:    cfg.ArchiveExport.Bucket,
			Region:    cfg.ArchiveExport.Region,
			Endpoint:  cfg.ArchiveExport.Endpoint,
			PathStyle: cfg.ArchiveExport.PathStyle,
			Prefix:    cfg.ArchiveExport.Prefix,
		})
		if err != nil {
			return err
		}
		opts.Exporter = exp
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.NewRouter(opts),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
