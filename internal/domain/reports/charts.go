package reports

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"policlinico/internal/domain/stats"
)

const (
	ChartAges    = "edades"
	ChartWeights = "pesos"

	noDataLabel = "Sin datos"
)

// ChartImage es la captura PNG de un gráfico, lista para embeber.
type ChartImage struct {
	Name  string
	Title string
	PNG   []byte
}

// ChartRenderer convierte un Summary en imágenes de gráficos.
type ChartRenderer interface {
	Render(ctx context.Context, sum stats.Summary) ([]ChartImage, error)
}

// GoChartRenderer dibuja torta de edades y línea de pesos con go-chart.
type GoChartRenderer struct {
	Width  int
	Height int
}

func NewGoChartRenderer() *GoChartRenderer {
	return &GoChartRenderer{Width: 640, Height: 400}
}

func (g *GoChartRenderer) Render(ctx context.Context, sum stats.Summary) ([]ChartImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pie, err := g.agePie(sum)
	if err != nil {
		return nil, fmt.Errorf("age chart: %w", err)
	}
	line, err := g.weightLine(sum)
	if err != nil {
		return nil, fmt.Errorf("weight chart: %w", err)
	}

	return []ChartImage{
		{Name: ChartAges, Title: "Distribución por Edad", PNG: pie},
		{Name: ChartWeights, Title: "Distribución de Peso", PNG: line},
	}, nil
}

func (g *GoChartRenderer) agePie(sum stats.Summary) ([]byte, error) {
	values := make([]chart.Value, 0, len(sum.AgeBuckets))
	for _, b := range sum.AgeBuckets {
		// go-chart normaliza por el total: los tramos en cero no se dibujan
		if b.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(b.Count),
			Label: fmt.Sprintf("%s (%d)", b.Label, b.Count),
			Style: chart.Style{
				FillColor:   hexColor(b.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
			},
		})
	}
	if len(values) == 0 {
		values = append(values, chart.Value{
			Value: 1,
			Label: noDataLabel,
			Style: chart.Style{FillColor: drawing.ColorFromHex("d1e7dd")},
		})
	}

	pie := chart.PieChart{
		Width:  g.Width,
		Height: g.Height,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *GoChartRenderer) weightLine(sum stats.Summary) ([]byte, error) {
	n := len(sum.WeightSeries)

	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	ticks := make([]chart.Tick, 0, n)
	maxW := 0.0
	for i, p := range sum.WeightSeries {
		x := float64(i + 1)
		xs = append(xs, x)
		ys = append(ys, p.WeightKg)
		maxW = math.Max(maxW, p.WeightKg)
		if n <= 20 || i%int(math.Ceil(float64(n)/20)) == 0 {
			ticks = append(ticks, chart.Tick{Value: x, Label: p.Label})
		}
	}

	name := "Peso (kg)"
	if n == 1 {
		// el rango x sale de los ticks y go-chart exige dos valores distintos:
		// un solo peso se dibuja como tramo plano hasta P1
		xs = []float64{0, 1}
		ys = []float64{ys[0], ys[0]}
		ticks = []chart.Tick{{Value: 0, Label: ""}, ticks[0]}
	}
	if n == 0 {
		// línea en cero para que el gráfico exista igual
		xs, ys = []float64{0, 1}, []float64{0, 0}
		ticks = []chart.Tick{{Value: 0, Label: ""}, {Value: 1, Label: ""}}
		name = noDataLabel
	}

	yMax := math.Ceil(maxW * 1.2)
	if yMax <= 0 {
		yMax = 1
	}
	xMin, xMax := 0.0, float64(n+1)
	if n == 0 {
		xMax = 1
	}

	graph := chart.Chart{
		Width:  g.Width,
		Height: g.Height,
		XAxis: chart.XAxis{
			Name:  "Pacientes",
			Range: &chart.ContinuousRange{Min: xMin, Max: xMax},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "Peso (kg)",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    name,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: hexColor("#344e41"),
					StrokeWidth: 2,
					DotColor:    hexColor("#4CAF50"),
					DotWidth:    4,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
