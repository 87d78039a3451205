package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"policlinico/internal/domain/stats"
	"policlinico/internal/platform/blobstore"
)

const (
	StageCapture = "capture"
	StageRender  = "render"
	StageStore   = "store"
	StageShare   = "share"
)

// ExportError indica en qué etapa falló la generación del reporte.
type ExportError struct {
	Stage string
	Err   error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("report %s failed: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

var errNoCharts = errors.New("no chart snapshots supplied")

// Handle ubica un reporte ya guardado.
type Handle struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Exporter arma el PDF de estadísticas y lo guarda en el blob store.
type Exporter struct {
	store blobstore.Store
	now   func() time.Time
}

func NewExporter(store blobstore.Store) *Exporter {
	return &Exporter{store: store, now: time.Now}
}

// Export sólo guarda el documento si se renderizó completo.
func (e *Exporter) Export(ctx context.Context, sum stats.Summary, charts []ChartImage) (Handle, error) {
	if len(charts) == 0 {
		return Handle{}, &ExportError{Stage: StageCapture, Err: errNoCharts}
	}
	for _, c := range charts {
		if len(c.PNG) == 0 {
			return Handle{}, &ExportError{Stage: StageCapture, Err: fmt.Errorf("chart %q is empty", c.Name)}
		}
	}

	doc, err := RenderPDF(sum, charts)
	if err != nil {
		return Handle{}, &ExportError{Stage: StageRender, Err: err}
	}

	key := ReportKey(e.now())
	obj, err := e.store.Put(ctx, key, "application/pdf", bytes.NewReader(doc))
	if err != nil {
		return Handle{}, &ExportError{Stage: StageStore, Err: err}
	}
	return Handle{Key: obj.Key, URL: obj.URL, Size: obj.Size}, nil
}

// ReportKey arma reports/estadisticas-<timestamp>.pdf.
func ReportKey(t time.Time) string {
	return "reports/estadisticas-" + t.UTC().Format("20060102-150405.000") + ".pdf"
}

// RenderPDF compone el documento: título, total, tramos de edad, tabla de
// pesos y los gráficos.
func RenderPDF(sum stats.Summary, charts []ChartImage) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252, cubre acentos

	pdf.SetTitle("Estadísticas de Pacientes", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// título
	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(0x34, 0x4e, 0x41)
	pdf.CellFormat(0, 12, tr("Estadísticas de Pacientes"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, tr("Total de Pacientes: "+strconv.Itoa(sum.Total)), "", 1, "L", false, 0, "")

	section := func(title string) {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0x34, 0x4e, 0x41)
		pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
	}

	section("Distribución por Edad")
	for _, b := range sum.AgeBuckets {
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("•  %s: %d pacientes", b.Label, b.Count)), "", 1, "L", false, 0, "")
	}

	section("Distribución de Peso")
	pdf.SetFillColor(0xd1, 0xe7, 0xdd)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(40, 8, "Punto", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Peso (kg)", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	for _, p := range sum.WeightSeries {
		pdf.CellFormat(40, 7, p.Label, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, strconv.FormatFloat(p.WeightKg, 'f', -1, 64), "1", 1, "C", false, 0, "")
	}
	if len(sum.WeightSeries) == 0 {
		pdf.CellFormat(80, 7, "Sin datos", "1", 1, "C", false, 0, "")
	}

	section("Gráficos")
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	for _, c := range charts {
		name := "chart-" + c.Name
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(c.PNG))
		if pdf.Err() {
			return nil, fmt.Errorf("chart %q: %w", c.Name, pdf.Error())
		}
		if c.Title != "" {
			pdf.CellFormat(0, 8, tr(c.Title), "", 1, "L", false, 0, "")
		}
		pdf.ImageOptions(name, 20, 0, 150, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
