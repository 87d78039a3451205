// Package storagetest tiene el contrato que cumple cada adapter de patients.Repository.
package storagetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/domain/patients"
)

// Factory devuelve un repositorio vacío para cada subtest.
type Factory func(t *testing.T) patients.Repository

func Run(t *testing.T, newRepo Factory) {
	t.Run("InsertGet", func(t *testing.T) { testInsertGet(t, newRepo(t)) })
	t.Run("ListInsertionOrder", func(t *testing.T) { testListOrder(t, newRepo(t)) })
	t.Run("MergeKeepsOtherKeys", func(t *testing.T) { testMerge(t, newRepo(t)) })
	t.Run("MergeMissing", func(t *testing.T) { testMergeMissing(t, newRepo(t)) })
	t.Run("DeleteIsIdempotent", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("ListStopsEarly", func(t *testing.T) { testListBreak(t, newRepo(t)) })
	t.Run("ConcurrentInsertsKeepRegisteredAtOrder", func(t *testing.T) { testConcurrentInserts(t, newRepo(t)) })
}

func sample(first string, age int, weight float64) patients.Fields {
	return patients.Fields{
		"firstName": first,
		"lastName":  "Test",
		"age":       age,
		"weightKg":  weight,
		"photoRef":  "",
	}
}

func collect(t *testing.T, repo patients.Repository) []patients.Document {
	t.Helper()
	var out []patients.Document
	for d, err := range repo.List(context.Background()) {
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

// num normaliza lo que cada backend devuelve para un número.
func num(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case json.Number:
		f, err := n.Float64()
		require.NoError(t, err)
		return f
	}
	t.Fatalf("not a number: %#v", v)
	return 0
}

func testInsertGet(t *testing.T, repo patients.Repository) {
	ctx := context.Background()

	id1, err := repo.Insert(ctx, sample("Ana", 34, 61.5))
	require.NoError(t, err)
	id2, err := repo.Insert(ctx, sample("Luis", 52, 80))
	require.NoError(t, err)
	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2)

	d, err := repo.Get(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, id1, d.ID)
	assert.False(t, d.RegisteredAt.IsZero())
	assert.Equal(t, "Ana", d.Fields["firstName"])
	assert.Equal(t, 34.0, num(t, d.Fields["age"]))
	assert.Equal(t, 61.5, num(t, d.Fields["weightKg"]))

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, patients.ErrNotFound)
}

func testListOrder(t *testing.T, repo patients.Repository) {
	ctx := context.Background()
	names := []string{"A", "B", "C", "D"}
	for i, n := range names {
		_, err := repo.Insert(ctx, sample(n, 20+i, 50))
		require.NoError(t, err)
	}

	docs := collect(t, repo)
	require.Len(t, docs, len(names))
	for i, d := range docs {
		assert.Equal(t, names[i], d.Fields["firstName"])
		if i > 0 {
			assert.False(t, d.RegisteredAt.Before(docs[i-1].RegisteredAt), "registeredAt goes backwards")
		}
	}
}

func testMerge(t *testing.T, repo patients.Repository) {
	ctx := context.Background()
	id, err := repo.Insert(ctx, sample("Ana", 34, 61.5))
	require.NoError(t, err)
	before, err := repo.Get(ctx, id)
	require.NoError(t, err)

	require.NoError(t, repo.Merge(ctx, id, patients.Fields{"lastName": "Ruiz", "photoRef": "/img/a.jpg"}))

	d, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", d.Fields["firstName"])
	assert.Equal(t, "Ruiz", d.Fields["lastName"])
	assert.Equal(t, "/img/a.jpg", d.Fields["photoRef"])
	assert.Equal(t, 34.0, num(t, d.Fields["age"]))
	assert.True(t, before.RegisteredAt.Equal(d.RegisteredAt))

	require.NoError(t, repo.Merge(ctx, id, patients.Fields{}))
}

func testMergeMissing(t *testing.T, repo patients.Repository) {
	err := repo.Merge(context.Background(), uuid.NewString(), patients.Fields{"lastName": "x"})
	assert.True(t, errors.Is(err, patients.ErrNotFound), "got %v", err)

	err = repo.Merge(context.Background(), uuid.NewString(), patients.Fields{})
	assert.True(t, errors.Is(err, patients.ErrNotFound), "got %v", err)
}

func testDelete(t *testing.T, repo patients.Repository) {
	ctx := context.Background()
	keep, err := repo.Insert(ctx, sample("Keep", 40, 70))
	require.NoError(t, err)
	gone, err := repo.Insert(ctx, sample("Gone", 41, 71))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, gone))
	require.NoError(t, repo.Delete(ctx, gone))
	require.NoError(t, repo.Delete(ctx, uuid.NewString()))

	_, err = repo.Get(ctx, gone)
	assert.ErrorIs(t, err, patients.ErrNotFound)

	docs := collect(t, repo)
	require.Len(t, docs, 1)
	assert.Equal(t, keep, docs[0].ID)
}

func testListBreak(t *testing.T, repo patients.Repository) {
	ctx := context.Background()
	for _, n := range []string{"A", "B", "C"} {
		_, err := repo.Insert(ctx, sample(n, 30, 60))
		require.NoError(t, err)
	}

	seen := 0
	for _, err := range repo.List(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)

	// un segundo recorrido es un snapshot nuevo y completo
	assert.Len(t, collect(t, repo), 3)
}

// testConcurrentInserts: el listado nunca muestra un registeredAt menor
// después de uno mayor, aunque las altas compitan.
func testConcurrentInserts(t *testing.T, repo patients.Repository) {
	ctx := context.Background()
	const n = 24

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, sample(fmt.Sprintf("P%02d", i), 30, 60))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	docs := collect(t, repo)
	require.Len(t, docs, n)
	for i := 1; i < len(docs); i++ {
		assert.False(t, docs[i].RegisteredAt.Before(docs[i-1].RegisteredAt),
			"registeredAt goes backwards at position %d", i)
	}
}
