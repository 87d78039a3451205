package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"policlinico/internal/domain/patients"
)

// PatientsRepo guarda cada paciente como un documento jsonb.
type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

func (r *PatientsRepo) Insert(ctx context.Context, fields patients.Fields) (string, error) {
	doc, err := encodeDoc(fields)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (id, doc)
		VALUES ($1, $2::jsonb)
	`, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (r *PatientsRepo) Get(ctx context.Context, id string) (patients.Document, error) {
	key, ok := parseID(id)
	if !ok {
		return patients.Document{}, patients.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, registered_at, doc
		FROM patients
		WHERE id = $1
	`, key)

	d, err := scanDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return patients.Document{}, patients.ErrNotFound
		}
		return patients.Document{}, err
	}
	return d, nil
}

// Merge usa el operador || de jsonb: sólo pisa las keys enviadas.
func (r *PatientsRepo) Merge(ctx context.Context, id string, fields patients.Fields) error {
	key, ok := parseID(id)
	if !ok {
		return patients.ErrNotFound
	}
	doc, err := encodeDoc(fields)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET doc = doc || $2::jsonb
		WHERE id = $1
	`, key, doc)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return patients.ErrNotFound
	}
	return nil
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	key, ok := parseID(id)
	if !ok {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, key)
	return err
}

// List corre un único SELECT, que en Postgres ya es un snapshot consistente.
// Ordena por registered_at y desempata por seq: dos altas concurrentes pueden
// tomar seq y clock_timestamp() en distinto orden.
func (r *PatientsRepo) List(ctx context.Context) iter.Seq2[patients.Document, error] {
	return func(yield func(patients.Document, error) bool) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT id, registered_at, doc
			FROM patients
			ORDER BY registered_at ASC, seq ASC
		`)
		if err != nil {
			yield(patients.Document{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDoc(rows)
			if err != nil {
				yield(patients.Document{}, err)
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(patients.Document{}, err)
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(s scanner) (patients.Document, error) {
	var (
		d   patients.Document
		at  time.Time
		raw []byte
	)
	if err := s.Scan(&d.ID, &at, &raw); err != nil {
		return patients.Document{}, err
	}
	d.RegisteredAt = at.UTC()

	fields, err := decodeDoc(raw)
	if err != nil {
		return patients.Document{}, fmt.Errorf("decode patient %s: %w", d.ID, err)
	}
	d.Fields = fields
	return d, nil
}

func encodeDoc(fields patients.Fields) (string, error) {
	if fields == nil {
		fields = patients.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode patient: %w", err)
	}
	return string(b), nil
}

// decodeDoc conserva los números como json.Number; el codec de patients los interpreta.
func decodeDoc(raw []byte) (patients.Fields, error) {
	fields := patients.Fields{}
	if len(raw) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseID descarta ids que no son uuid antes de llegar a la base.
func parseID(id string) (string, bool) {
	u, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	return u.String(), true
}
