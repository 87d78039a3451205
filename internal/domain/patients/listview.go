package patients

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"
)

// ErrSuperseded indica que el resultado de un Load se descartó porque se
// emitió otro Load más nuevo o la vista se cerró.
var ErrSuperseded = errors.New("list load superseded")

// Lister es la fuente de snapshots (Service la implementa).
type Lister interface {
	List(ctx context.Context) iter.Seq2[Patient, error]
}

// ListView mantiene el último snapshot cargado y la búsqueda activa.
// Es una copia de sólo lectura: no escribe al store ni se suscribe a cambios.
type ListView struct {
	src Lister

	mu     sync.Mutex
	issued uint64
	closed bool
	all    []Patient
	query  string
}

func NewListView(src Lister) *ListView {
	return &ListView{src: src}
}

// Load trae un snapshot nuevo y reemplaza el anterior. Sólo se aplica el
// resultado del último Load emitido.
func (v *ListView) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrSuperseded
	}
	v.issued++
	gen := v.issued
	v.mu.Unlock()

	snap := make([]Patient, 0)
	for p, err := range v.src.List(ctx) {
		if err != nil {
			return err
		}
		snap = append(snap, p)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || gen != v.issued {
		return ErrSuperseded
	}
	v.all = snap
	return nil
}

// SetQuery cambia el texto de búsqueda. No vuelve a consultar el store.
func (v *ListView) SetQuery(q string) {
	v.mu.Lock()
	v.query = q
	v.mu.Unlock()
}

func (v *ListView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// All devuelve una copia del snapshot completo.
func (v *ListView) All() []Patient {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.all)
}

// Visible recorre los pacientes que coinciden con la búsqueda activa.
// Se puede recorrer varias veces; cada recorrido usa el estado del momento.
func (v *ListView) Visible() iter.Seq[Patient] {
	return func(yield func(Patient) bool) {
		v.mu.Lock()
		all, q := v.all, v.query
		v.mu.Unlock()

		for _, p := range all {
			if !Matches(p, q) {
				continue
			}
			if !yield(p) {
				return
			}
		}
	}
}

// Close descarta cualquier Load pendiente.
func (v *ListView) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
}

// Matches: substring sin distinguir mayúsculas en nombre o apellido.
// Query vacía coincide con todo.
func Matches(p Patient, q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.FirstName), q) ||
		strings.Contains(strings.ToLower(p.LastName), q)
}

// Filter devuelve la subsecuencia de all que coincide con q, sin modificar all.
func Filter(all []Patient, q string) []Patient {
	out := make([]Patient, 0, len(all))
	for _, p := range all {
		if Matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}
