package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/afero"

	cb "policlinico/internal/adapters/storage/couchbase"
	mem "policlinico/internal/adapters/storage/memory"
	pg "policlinico/internal/adapters/storage/postgres"
	rd "policlinico/internal/adapters/storage/redis"
	"policlinico/internal/config"
	"policlinico/internal/domain/attachments"
	"policlinico/internal/domain/patients"
	"policlinico/internal/domain/reports"
	"policlinico/internal/domain/stats"
	"policlinico/internal/platform/blobstore"
	"policlinico/internal/platform/httpclient"
	"policlinico/internal/platform/logger"
	"policlinico/internal/platform/metrics"
	"policlinico/internal/router"
)

// App tiene todas las dependencias armadas a partir de la config.
type App struct {
	Config   *config.Config
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Fs       afero.Fs
	Blobs    blobstore.Store
	Patients *patients.Service
	Stats    *stats.Service
	Reports  *reports.Service

	closers []func() error
}

func NewLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
}

// New usa el filesystem del sistema para fotos y blobs locales.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	return NewWithFs(ctx, cfg, log, afero.NewOsFs())
}

func NewWithFs(ctx context.Context, cfg *config.Config, log logger.Logger, fsys afero.Fs) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	app := &App{Config: cfg, Logger: log, Fs: fsys}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}

	repo, err := app.openStore(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	client := httpclient.New(cfg.HTTPTimeout)
	blobs, err := app.openBlobs()
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Blobs = blobs

	var attacher attachments.Attacher
	switch cfg.PhotoMode {
	case config.PhotoUpload:
		attacher = attachments.NewUpload(blobs, "patients")
	default:
		attacher = attachments.NewLocalCopy(fsys, cfg.PhotoDir)
	}

	var sharer reports.Sharer = reports.NopSharer{}
	if cfg.ShareWebhookURL != "" {
		sharer = reports.NewWebhookSharer(client, cfg.ShareWebhookURL)
	}

	app.Patients = patients.NewService(repo, patients.Options{
		Attacher: attacher,
		Logger:   log.With(map[string]any{"module": "patients"}),
		Metrics:  app.Metrics,
	})
	app.Stats = stats.NewService(app.Patients)
	app.Reports = reports.NewService(
		app.Stats,
		reports.NewGoChartRenderer(),
		reports.NewExporter(blobs),
		reports.Options{
			Sharer:  sharer,
			Logger:  log.With(map[string]any{"module": "reports"}),
			Metrics: app.Metrics,
		},
	)

	log.Info("app ready", map[string]any{
		"store":      cfg.StoreDriver,
		"blobs":      cfg.BlobDriver,
		"photo_mode": cfg.PhotoMode,
		"share":      sharer.Available(),
	})
	return app, nil
}

func (a *App) openStore(ctx context.Context) (patients.Repository, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := pg.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
		return pg.NewPatientsRepo(db), nil

	case config.StoreCouchbase:
		conn, err := cb.Connect(ctx, cb.Config{
			URL:        cfg.CouchbaseURL,
			Username:   cfg.CouchbaseUsername,
			Password:   cfg.CouchbasePassword,
			Bucket:     cfg.CouchbaseBucket,
			Scope:      cfg.CouchbaseScope,
			Collection: cfg.CouchbaseCollection,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.EnsureIndexes(ctx); err != nil {
			a.Logger.Warn("couchbase index not created", map[string]any{"error": err})
		}
		return cb.NewPatientsRepo(conn), nil

	case config.StoreRedis:
		client, err := rd.NewClient(ctx, rd.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return rd.NewPatientsRepo(client, cfg.RedisPrefix), nil

	default:
		a.Logger.Warn("using in-memory record store, data is lost on restart", nil)
		return mem.NewPatientsRepo(), nil
	}
}

func (a *App) openBlobs() (blobstore.Store, error) {
	cfg := a.Config
	switch cfg.BlobDriver {
	case config.BlobFS:
		if err := a.Fs.MkdirAll(cfg.BlobDir, 0o755); err != nil {
			return nil, fmt.Errorf("blob dir: %w", err)
		}
		return blobstore.NewFS(a.Fs, cfg.BlobDir, cfg.BlobPublicURL), nil
	case config.BlobHTTP:
		client, err := httpclient.NewWithBaseURL(cfg.BlobRemoteURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		return blobstore.NewRemote(client, cfg.BlobRemoteToken), nil
	default:
		return blobstore.NewMemory(cfg.BlobPublicURL), nil
	}
}

// Handler arma el router; /blobs sólo se sirve cuando los blobs son locales.
func (a *App) Handler() http.Handler {
	opts := router.Options{
		Patients: a.Patients,
		Stats:    a.Stats,
		Reports:  a.Reports,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
	}
	if a.Config.BlobDriver != config.BlobHTTP {
		opts.Blobs = a.Blobs
	}
	return router.NewRouter(opts)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
