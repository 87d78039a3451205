package reports

import (
	"context"
	"errors"

	"policlinico/internal/domain/stats"
	"policlinico/internal/platform/logger"
	"policlinico/internal/platform/metrics"
)

// Report es el resultado de Generate.
type Report struct {
	Handle  Handle        `json:"handle"`
	Share   ShareResult   `json:"share"`
	Summary stats.Summary `json:"summary"`
}

type Options struct {
	Sharer  Sharer
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Service encadena snapshot -> gráficos -> PDF -> compartir.
type Service struct {
	stats    *stats.Service
	renderer ChartRenderer
	exporter *Exporter
	sharer   Sharer
	log      logger.Logger
	metrics  *metrics.Metrics
}

func NewService(st *stats.Service, renderer ChartRenderer, exporter *Exporter, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Sharer == nil {
		opts.Sharer = NopSharer{}
	}
	return &Service{
		stats:    st,
		renderer: renderer,
		exporter: exporter,
		sharer:   opts.Sharer,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Generate trae un snapshot fresco, arma el reporte y lo comparte.
// Si el documento ya se guardó pero compartir falla, devuelve el Report igual
// junto con el error.
func (s *Service) Generate(ctx context.Context) (rep Report, err error) {
	defer func() { s.metrics.ObserveReport(result(err)) }()

	sum, err := s.stats.Snapshot(ctx)
	if err != nil {
		return Report{}, err
	}
	rep.Summary = sum

	charts, err := s.renderer.Render(ctx, sum)
	if err != nil {
		err = &ExportError{Stage: StageCapture, Err: err}
		s.log.Error("report chart capture failed", map[string]any{"error": err})
		return Report{}, err
	}

	rep.Handle, err = s.exporter.Export(ctx, sum, charts)
	if err != nil {
		s.log.Error("report export failed", map[string]any{"error": err})
		return Report{}, err
	}

	rep.Share, err = Share(ctx, s.sharer, rep.Handle)
	if err != nil {
		s.log.Warn("report share failed", map[string]any{"key": rep.Handle.Key, "error": err})
		return rep, err
	}

	s.log.Info("report exported", map[string]any{
		"key":    rep.Handle.Key,
		"size":   rep.Handle.Size,
		"shared": rep.Share.Shared,
		"total":  sum.Total,
	})
	return rep, nil
}

func result(err error) string {
	var ee *ExportError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ee):
		return ee.Stage + "_error"
	default:
		return "snapshot_error"
	}
}
