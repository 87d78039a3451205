package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/adapters/storage/storagetest"
	"policlinico/internal/domain/patients"
)

func TestPatientsRepo_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) patients.Repository { return NewPatientsRepo() })
}

func TestPatientsRepo_RegisteredAtNeverGoesBack(t *testing.T) {
	r := NewPatientsRepo()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Hour), base.Add(time.Minute)}
	r.now = func() time.Time {
		next := clock[0]
		clock = clock[1:]
		return next
	}

	ctx := context.Background()
	var ids []string
	for range 3 {
		id, err := r.Insert(ctx, patients.Fields{"firstName": "x"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	d1, _ := r.Get(ctx, ids[0])
	d2, _ := r.Get(ctx, ids[1])
	d3, _ := r.Get(ctx, ids[2])
	assert.Equal(t, base, d1.RegisteredAt)
	assert.Equal(t, base, d2.RegisteredAt)
	assert.Equal(t, base.Add(time.Minute), d3.RegisteredAt)
}

func TestPatientsRepo_ReturnsCopies(t *testing.T) {
	r := NewPatientsRepo()
	ctx := context.Background()

	in := patients.Fields{"firstName": "Ana"}
	id, err := r.Insert(ctx, in)
	require.NoError(t, err)
	in["firstName"] = "cambiado"

	d, err := r.Get(ctx, id)
	require.NoError(t, err)
	d.Fields["firstName"] = "otro"

	d, _ = r.Get(ctx, id)
	assert.Equal(t, "Ana", d.Fields["firstName"])
}
