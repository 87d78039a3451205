package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"policlinico/internal/domain/patients"
)

const maxMergeRetries = 5

// snapshotScript lee índice y documentos en un solo paso atómico.
//
// KEYS[1] = índice (sorted set), ARGV[1] = prefijo de los documentos.
var snapshotScript = goredis.NewScript(`
	local ids = redis.call('ZRANGE', KEYS[1], 0, -1)
	local out = {}
	for i, id in ipairs(ids) do
		out[i] = redis.call('GET', ARGV[1] .. id) or false
	end
	return out
`)

// insertScript asigna secuencia y registeredAt con el reloj de redis en un
// solo paso; registeredAt nunca retrocede respecto del alta anterior.
//
// KEYS[1] = índice, KEYS[2] = contador, KEYS[3] = último registeredAt (µs),
// KEYS[4] = documento. ARGV[1] = id, ARGV[2] = fields en JSON.
var insertScript = goredis.NewScript(`
	local seq = redis.call('INCR', KEYS[2])
	local t = redis.call('TIME')
	local now = tonumber(t[1]) * 1000000 + tonumber(t[2])
	local last = tonumber(redis.call('GET', KEYS[3]) or '0')
	if now < last then
		now = last
	end
	local stamp = string.format('%d', now)
	redis.call('SET', KEYS[3], stamp)
	redis.call('SET', KEYS[4], '{"id":"' .. ARGV[1] .. '","registeredAt":' .. stamp .. ',"fields":' .. ARGV[2] .. '}')
	redis.call('ZADD', KEYS[1], seq, ARGV[1])
	return seq
`)

// envelope guarda registeredAt en microsegundos unix, tal como lo arma insertScript.
type envelope struct {
	ID           string          `json:"id"`
	RegisteredAt int64           `json:"registeredAt"`
	Fields       patients.Fields `json:"fields"`
}

// PatientsRepo guarda un JSON por paciente y un sorted set por orden de alta.
//
//	<prefix>:doc:<id>  documento
//	<prefix>:index     ids con score = secuencia de inserción
//	<prefix>:seq       contador
//	<prefix>:last      último registeredAt asignado
type PatientsRepo struct {
	rdb    goredis.UniversalClient
	prefix string
}

func NewPatientsRepo(rdb goredis.UniversalClient, prefix string) *PatientsRepo {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "patients"
	}
	return &PatientsRepo{rdb: rdb, prefix: prefix}
}

func (r *PatientsRepo) docKey(id string) string { return r.docPrefix() + id }
func (r *PatientsRepo) docPrefix() string       { return r.prefix + ":doc:" }
func (r *PatientsRepo) indexKey() string        { return r.prefix + ":index" }
func (r *PatientsRepo) seqKey() string          { return r.prefix + ":seq" }
func (r *PatientsRepo) lastKey() string         { return r.prefix + ":last" }

func (r *PatientsRepo) Insert(ctx context.Context, fields patients.Fields) (string, error) {
	if fields == nil {
		fields = patients.Fields{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode patient: %w", err)
	}

	id := uuid.NewString()
	keys := []string{r.indexKey(), r.seqKey(), r.lastKey(), r.docKey(id)}
	if err := insertScript.Run(ctx, r.rdb, keys, id, string(raw)).Err(); err != nil {
		return "", fmt.Errorf("insert patient: %w", err)
	}
	return id, nil
}

func (r *PatientsRepo) Get(ctx context.Context, id string) (patients.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Document{}, patients.ErrNotFound
	}

	raw, err := r.rdb.Get(ctx, r.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return patients.Document{}, patients.ErrNotFound
		}
		return patients.Document{}, fmt.Errorf("get patient %s: %w", id, err)
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		return patients.Document{}, fmt.Errorf("decode patient %s: %w", id, err)
	}
	return env.document(), nil
}

// Merge relee y reescribe bajo WATCH; si otro cliente tocó el documento, reintenta.
func (r *PatientsRepo) Merge(ctx context.Context, id string, fields patients.Fields) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.ErrNotFound
	}
	for k := range fields {
		if strings.TrimSpace(k) == "" {
			return errors.New("empty field name")
		}
	}

	key := r.docKey(id)
	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return patients.ErrNotFound
			}
			return err
		}
		env, err := decodeEnvelope(raw)
		if err != nil {
			return err
		}
		if env.Fields == nil {
			env.Fields = patients.Fields{}
		}
		for k, v := range fields {
			env.Fields[k] = v
		}
		out, err := json.Marshal(env)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for range maxMergeRetries {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, patients.ErrNotFound) {
			return fmt.Errorf("merge patient %s: %w", id, err)
		}
		return err
	}
	return fmt.Errorf("merge patient %s: too much contention", id)
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, r.docKey(id))
		p.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete patient %s: %w", id, err)
	}
	return nil
}

func (r *PatientsRepo) List(ctx context.Context) iter.Seq2[patients.Document, error] {
	return func(yield func(patients.Document, error) bool) {
		vals, err := snapshotScript.Run(ctx, r.rdb, []string{r.indexKey()}, r.docPrefix()).Slice()
		if err != nil {
			yield(patients.Document{}, fmt.Errorf("list patients: %w", err))
			return
		}

		for _, v := range vals {
			s, ok := v.(string)
			if !ok {
				// índice sin documento: se saltea
				continue
			}
			env, err := decodeEnvelope([]byte(s))
			if err != nil {
				yield(patients.Document{}, fmt.Errorf("decode patient: %w", err))
				return
			}
			if !yield(env.document(), nil) {
				return
			}
		}
	}
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return envelope{}, err
	}
	return env, nil
}

func (e envelope) document() patients.Document {
	fields := e.Fields
	if fields == nil {
		fields = patients.Fields{}
	}
	return patients.Document{ID: e.ID, RegisteredAt: time.UnixMicro(e.RegisteredAt).UTC(), Fields: fields}
}
