package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "policlinico/docs"
	mem "policlinico/internal/adapters/storage/memory"
	"policlinico/internal/domain/patients"
	"policlinico/internal/domain/reports"
	"policlinico/internal/domain/stats"
	"policlinico/internal/middleware"
	"policlinico/internal/platform/blobstore"
	"policlinico/internal/platform/logger"
	"policlinico/internal/platform/metrics"
)

type Options struct {
	// Opcionales: si no vienen, se arma todo in-memory (modo dev / tests).
	Patients *patients.Service
	Stats    *stats.Service
	Reports  *reports.Service

	// Blobs se sirve en /blobs cuando es un store local (memory o fs).
	Blobs blobstore.Store

	Logger  logger.Logger
	Metrics *metrics.Metrics // nil: sin /metrics
}

func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	opts = withDefaults(opts)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(opts.Metrics.Middleware)
	r.Use(middleware.Recover(opts.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if opts.Blobs != nil {
		r.Mount("/blobs", blobstore.Handler(opts.Blobs))
	}

	// Rutas por módulo
	patients.RegisterRoutes(r, opts.Patients)
	stats.RegisterRoutes(r, opts.Stats)
	reports.RegisterRoutes(r, opts.Reports)

	return r
}

// withDefaults completa lo que falte con adapters in-memory.
func withDefaults(opts Options) Options {
	if opts.Patients == nil {
		opts.Patients = patients.NewService(mem.NewPatientsRepo(), patients.Options{
			Logger:  opts.Logger,
			Metrics: opts.Metrics,
		})
	}
	if opts.Stats == nil {
		opts.Stats = stats.NewService(opts.Patients)
	}
	if opts.Reports == nil {
		if opts.Blobs == nil {
			opts.Blobs = blobstore.NewMemory("/blobs")
		}
		opts.Reports = reports.NewService(
			opts.Stats,
			reports.NewGoChartRenderer(),
			reports.NewExporter(opts.Blobs),
			reports.Options{Logger: opts.Logger, Metrics: opts.Metrics},
		)
	}
	return opts
}
