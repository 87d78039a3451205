package memory

import (
	"context"
	"errors"
	"iter"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"policlinico/internal/domain/patients"

	"github.com/google/uuid"
)

type patientEntry struct {
	seq uint64
	doc patients.Document
}

// PatientsRepo es la colección de documentos en memoria (dev/tests).
type PatientsRepo struct {
	mu   sync.RWMutex
	byID map[string]patientEntry
	seq  uint64
	last time.Time
	now  func() time.Time
}

func NewPatientsRepo() *PatientsRepo {
	return &PatientsRepo{
		byID: make(map[string]patientEntry),
		now:  time.Now,
	}
}

func (r *PatientsRepo) Insert(ctx context.Context, fields patients.Fields) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// registeredAt nunca retrocede respecto de la inserción anterior
	now := r.now().UTC()
	if now.Before(r.last) {
		now = r.last
	}
	r.last = now
	r.seq++

	id := uuid.NewString()
	r.byID[id] = patientEntry{
		seq: r.seq,
		doc: patients.Document{
			ID:           id,
			RegisteredAt: now,
			Fields:       maps.Clone(fields),
		},
	}
	return id, nil
}

func (r *PatientsRepo) Get(ctx context.Context, id string) (patients.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return patients.Document{}, patients.ErrNotFound
	}
	return cloneDoc(e.doc), nil
}

func (r *PatientsRepo) Merge(ctx context.Context, id string, fields patients.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return patients.ErrNotFound
	}
	for k := range fields {
		if strings.TrimSpace(k) == "" {
			return errors.New("empty field name")
		}
	}
	if e.doc.Fields == nil {
		e.doc.Fields = patients.Fields{}
	}
	maps.Copy(e.doc.Fields, fields)
	r.byID[id] = e
	return nil
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

// List toma el snapshot al empezar a recorrer, ordenado por inserción.
func (r *PatientsRepo) List(ctx context.Context) iter.Seq2[patients.Document, error] {
	return func(yield func(patients.Document, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(patients.Document{}, err)
			return
		}

		r.mu.RLock()
		snap := make([]patientEntry, 0, len(r.byID))
		for _, e := range r.byID {
			snap = append(snap, patientEntry{seq: e.seq, doc: cloneDoc(e.doc)})
		}
		r.mu.RUnlock()

		sort.Slice(snap, func(i, j int) bool { return snap[i].seq < snap[j].seq })

		for _, e := range snap {
			if !yield(e.doc, nil) {
				return
			}
		}
	}
}

func cloneDoc(d patients.Document) patients.Document {
	d.Fields = maps.Clone(d.Fields)
	return d
}
