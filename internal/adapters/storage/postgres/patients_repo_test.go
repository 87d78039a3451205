package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"policlinico/internal/adapters/storage/storagetest"
	"policlinico/internal/domain/patients"
)

// Necesita una base real: POLICLINICO_TEST_DB_DSN=postgres://...
func TestPatientsRepo_Contract(t *testing.T) {
	dsn := os.Getenv("POLICLINICO_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("POLICLINICO_TEST_DB_DSN not set")
	}

	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(context.Background(), db))

	storagetest.Run(t, func(t *testing.T) patients.Repository {
		_, err := db.ExecContext(context.Background(), `TRUNCATE patients`)
		require.NoError(t, err)
		return NewPatientsRepo(db)
	})
}

func TestParseID(t *testing.T) {
	_, ok := parseID("no-es-uuid")
	require.False(t, ok)

	id, ok := parseID(" 6F9619FF-8B86-D011-B42D-00C04FC964FF ")
	require.True(t, ok)
	require.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", id)
}

func TestDecodeDoc_KeepsNumbers(t *testing.T) {
	f, err := decodeDoc([]byte(`{"firstName":"Ana","age":34,"weightKg":61.5}`))
	require.NoError(t, err)
	require.Equal(t, json.Number("34"), f["age"])
	require.Equal(t, "Ana", f["firstName"])

	f, err = decodeDoc(nil)
	require.NoError(t, err)
	require.Empty(t, f)
}
