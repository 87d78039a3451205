package couchbase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/google/uuid"

	"policlinico/internal/domain/patients"
)

const (
	docType  = "patient"
	clockKey = "patients::clock"

	maxClockRetries = 16
)

// clockDoc reserva secuencia y registeredAt juntos; Last está en µs unix.
type clockDoc struct {
	Seq  uint64 `json:"seq"`
	Last int64  `json:"last"`
}

// envelope es la forma del documento en el bucket.
type envelope struct {
	Type         string          `json:"type"`
	ID           string          `json:"id"`
	Seq          uint64          `json:"seq"`
	RegisteredAt time.Time       `json:"registeredAt"`
	Fields       patients.Fields `json:"fields"`
}

func (e envelope) document() patients.Document {
	fields := e.Fields
	if fields == nil {
		fields = patients.Fields{}
	}
	return patients.Document{ID: e.ID, RegisteredAt: e.RegisteredAt.UTC(), Fields: fields}
}

type PatientsRepo struct {
	conn *Connection
	now  func() time.Time
}

func NewPatientsRepo(conn *Connection) *PatientsRepo {
	return &PatientsRepo{conn: conn, now: time.Now}
}

func (r *PatientsRepo) Insert(ctx context.Context, fields patients.Fields) (string, error) {
	seq, at, err := r.nextStamp(ctx)
	if err != nil {
		return "", fmt.Errorf("next patient seq: %w", err)
	}

	if fields == nil {
		fields = patients.Fields{}
	}
	env := envelope{
		Type:         docType,
		ID:           uuid.NewString(),
		Seq:          seq,
		RegisteredAt: at,
		Fields:       fields,
	}
	if _, err := r.conn.collection.Insert(env.ID, env, &gocb.InsertOptions{Context: ctx}); err != nil {
		return "", fmt.Errorf("insert patient: %w", err)
	}
	return env.ID, nil
}

// nextStamp avanza el reloj del bucket bajo CAS. El listado ordena por seq y
// registeredAt nunca retrocede respecto del seq anterior, aunque las instancias
// tengan relojes distintos.
func (r *PatientsRepo) nextStamp(ctx context.Context) (uint64, time.Time, error) {
	coll := r.conn.collection
	for range maxClockRetries {
		now := r.now().UTC().UnixMicro()

		res, err := coll.Get(clockKey, &gocb.GetOptions{Context: ctx})
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			c := clockDoc{Seq: 1, Last: now}
			_, err = coll.Insert(clockKey, c, &gocb.InsertOptions{Context: ctx})
			if errors.Is(err, gocb.ErrDocumentExists) {
				continue
			}
			if err != nil {
				return 0, time.Time{}, err
			}
			return c.Seq, time.UnixMicro(c.Last).UTC(), nil
		}
		if err != nil {
			return 0, time.Time{}, err
		}

		var c clockDoc
		if err := res.Content(&c); err != nil {
			return 0, time.Time{}, fmt.Errorf("decode clock: %w", err)
		}
		c.Seq++
		c.Last = max(c.Last, now)

		_, err = coll.Replace(clockKey, c, &gocb.ReplaceOptions{Cas: res.Cas(), Context: ctx})
		if errors.Is(err, gocb.ErrCasMismatch) {
			continue
		}
		if err != nil {
			return 0, time.Time{}, err
		}
		return c.Seq, time.UnixMicro(c.Last).UTC(), nil
	}
	return 0, time.Time{}, errors.New("patients clock: too much contention")
}

func (r *PatientsRepo) Get(ctx context.Context, id string) (patients.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Document{}, patients.ErrNotFound
	}

	res, err := r.conn.collection.Get(id, &gocb.GetOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return patients.Document{}, patients.ErrNotFound
		}
		return patients.Document{}, fmt.Errorf("get patient %s: %w", id, err)
	}

	var env envelope
	if err := res.Content(&env); err != nil {
		return patients.Document{}, fmt.Errorf("decode patient %s: %w", id, err)
	}
	if env.Type != docType {
		return patients.Document{}, patients.ErrNotFound
	}
	return env.document(), nil
}

// Merge hace upsert sub-documento de cada fields.<key>; el resto queda intacto.
func (r *PatientsRepo) Merge(ctx context.Context, id string, fields patients.Fields) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.ErrNotFound
	}

	if len(fields) == 0 {
		res, err := r.conn.collection.Exists(id, &gocb.ExistsOptions{Context: ctx})
		if err != nil {
			return fmt.Errorf("exists patient %s: %w", id, err)
		}
		if !res.Exists() {
			return patients.ErrNotFound
		}
		return nil
	}

	specs := make([]gocb.MutateInSpec, 0, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(k) == "" {
			return errors.New("empty field name")
		}
		specs = append(specs, gocb.UpsertSpec("fields.`"+k+"`", v, &gocb.UpsertSpecOptions{CreatePath: true}))
	}

	_, err := r.conn.collection.MutateIn(id, specs, &gocb.MutateInOptions{Context: ctx})
	if err != nil {
		if errors.Is(err, gocb.ErrDocumentNotFound) {
			return patients.ErrNotFound
		}
		return fmt.Errorf("merge patient %s: %w", id, err)
	}
	return nil
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	_, err := r.conn.collection.Remove(id, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	return nil
}

// List consulta con request_plus para ver todas las escrituras ya confirmadas.
func (r *PatientsRepo) List(ctx context.Context) iter.Seq2[patients.Document, error] {
	return func(yield func(patients.Document, error) bool) {
		q := fmt.Sprintf(
			"SELECT p.* FROM %s AS p WHERE p.`type` = $1 ORDER BY p.seq ASC",
			r.conn.keyspace,
		)
		rows, err := r.conn.cluster.Query(q, &gocb.QueryOptions{
			Context:              ctx,
			PositionalParameters: []interface{}{docType},
			ScanConsistency:      gocb.QueryScanConsistencyRequestPlus,
		})
		if err != nil {
			yield(patients.Document{}, fmt.Errorf("list patients: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var env envelope
			if err := rows.Row(&env); err != nil {
				yield(patients.Document{}, fmt.Errorf("decode patient row: %w", err))
				return
			}
			if !yield(env.document(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(patients.Document{}, fmt.Errorf("list patients: %w", err))
		}
	}
}
