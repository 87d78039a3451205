package patients

import (
	"strings"
	"time"
)

// Keys del documento en el record store.
const (
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldAge       = "age"
	FieldWeightKg  = "weightKg"
	FieldPhotoRef  = "photoRef"
)

// Patient es la ficha de un paciente del policlínico.
type Patient struct {
	ID string

	FirstName string
	LastName  string

	// nil cuando el documento no trae un valor numérico
	Age      *int
	WeightKg *float64

	PhotoRef string // ruta local o URL del blob store; vacío si no hay foto

	RegisteredAt time.Time // asignado por el store, nunca se modifica
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
