// Package stats agrega el snapshot de pacientes en series listas para graficar.
package stats

import (
	"context"
	"fmt"

	"policlinico/internal/domain/patients"
)

// Etiquetas y colores de los tramos de edad, en el orden en que se grafican.
const (
	LabelUnder30 = "Menores de 30"
	Label30To50  = "Entre 30 y 50"
	LabelOver50  = "Mayores de 50"
	colorUnder30 = "#4CAF50"
	color30To50  = "#FFC107"
	colorOver50  = "#FF5722"
)

const AgeBucketsLen = 3

type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// Point es un peso de la serie; Label es posicional (P1, P2, ...).
type Point struct {
	Label    string  `json:"label"`
	WeightKg float64 `json:"weightKg"`
}

type Summary struct {
	Total        int                   `json:"total"`
	AgeBuckets   [AgeBucketsLen]Bucket `json:"ageBuckets"`
	WeightSeries []Point               `json:"weightSeries"`
}

// Aggregate es una función pura sobre el snapshot.
// Edad o peso ausentes se saltean por campo; el paciente igual cuenta en Total.
func Aggregate(records []patients.Patient) Summary {
	s := Summary{
		Total: len(records),
		AgeBuckets: [AgeBucketsLen]Bucket{
			{Label: LabelUnder30, Color: colorUnder30},
			{Label: Label30To50, Color: color30To50},
			{Label: LabelOver50, Color: colorOver50},
		},
		WeightSeries: make([]Point, 0),
	}

	for _, p := range records {
		if p.Age != nil {
			s.AgeBuckets[bucketFor(*p.Age)].Count++
		}
		if p.WeightKg != nil {
			s.WeightSeries = append(s.WeightSeries, Point{
				Label:    fmt.Sprintf("P%d", len(s.WeightSeries)+1),
				WeightKg: *p.WeightKg,
			})
		}
	}
	return s
}

func bucketFor(age int) int {
	switch {
	case age < 30:
		return 0
	case age <= 50:
		return 1
	default:
		return 2
	}
}

// AgedCount es la cantidad de pacientes con edad numérica.
func (s Summary) AgedCount() int {
	n := 0
	for _, b := range s.AgeBuckets {
		n += b.Count
	}
	return n
}

// Service obtiene un snapshot fresco del store y lo agrega.
type Service struct {
	src patients.Lister
}

func NewService(src patients.Lister) *Service {
	return &Service{src: src}
}

func (s *Service) Snapshot(ctx context.Context) (Summary, error) {
	records := make([]patients.Patient, 0)
	for p, err := range s.src.List(ctx) {
		if err != nil {
			return Summary{}, err
		}
		records = append(records, p)
	}
	return Aggregate(records), nil
}
