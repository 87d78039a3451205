package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/platform/httpclient"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]bool{
		"patients/1.jpg":   true,
		"/reports/a.pdf/":  true,
		"":                 false,
		"a//b":             false,
		"../etc/passwd":    false,
		"patients/./x.jpg": false,
	}
	for in, ok := range cases {
		_, err := CleanKey(in)
		if ok {
			assert.NoError(t, err, in)
		} else {
			assert.ErrorIs(t, err, ErrInvalidKey, in)
		}
	}
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "http://x/blobs/a/b%20c.jpg", PublicURL("http://x/blobs/", "a/b c.jpg"))
	assert.Equal(t, "/a.pdf", PublicURL("", "a.pdf"))
}

// exerciseStore corre el mismo contrato sobre cualquier backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	obj, err := s.Put(ctx, "patients/1700000000000.jpg", "", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "patients/1700000000000.jpg", obj.Key)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.EqualValues(t, 10, obj.Size)
	assert.NotEmpty(t, obj.Hash)
	assert.True(t, strings.HasSuffix(obj.URL, "/patients/1700000000000.jpg"), obj.URL)

	rc, got, err := s.Get(ctx, "patients/1700000000000.jpg")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "jpeg-bytes", string(body))
	assert.Equal(t, obj.Key, got.Key)

	require.NoError(t, s.Delete(ctx, "patients/1700000000000.jpg"))
	_, _, err = s.Get(ctx, "patients/1700000000000.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "patients/1700000000000.jpg"), ErrNotFound)

	_, err = s.Put(ctx, "../x", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory("http://localhost:8080/blobs"))
}

func TestFS_Contract(t *testing.T) {
	fsys := afero.NewMemMapFs()
	exerciseStore(t, NewFS(fsys, "/data/blobs", "http://localhost:8080/blobs"))
}

func TestFS_WritesUnderRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := NewFS(fsys, "/data/blobs", "")

	_, err := s.Put(context.Background(), "reports/estadisticas-1.pdf", "application/pdf", strings.NewReader("%PDF-1.3"))
	require.NoError(t, err)

	ok, err := afero.Exists(fsys, "/data/blobs/reports/estadisticas-1.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_TooLarge(t *testing.T) {
	s := NewMemory("")
	big := io.LimitReader(zeroReader{}, MaxObjectSize+10)
	_, err := s.Put(context.Background(), "big.bin", "", big)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, s.Len())
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// fakeRemote emula un blob store HTTP mínimo.
type fakeRemote struct {
	mu    sync.Mutex
	blobs map[string][]byte
	auth  []string
}

func (f *fakeRemote) stored(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[key]
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	key := strings.TrimPrefix(r.URL.Path, "/store/")
	switch r.Method {
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.blobs[key] = b
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.test/` + key + `"}`))
	case http.MethodGet:
		b, ok := f.blobs[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(b)
	case http.MethodDelete:
		if _, ok := f.blobs[key]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.blobs, key)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestRemote_PutGetDelete(t *testing.T) {
	fake := &fakeRemote{blobs: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := httpclient.NewWithBaseURL(srv.URL+"/store", 2*time.Second)
	require.NoError(t, err)
	s := NewRemote(client, "secret")
	ctx := context.Background()

	obj, err := s.Put(ctx, "patients/9.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/patients/9.png", obj.URL)
	assert.Equal(t, []byte("png"), fake.stored("patients/9.png"))

	rc, _, err := s.Get(ctx, "patients/9.png")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "png", string(b))

	require.NoError(t, s.Delete(ctx, "patients/9.png"))
	_, _, err = s.Get(ctx, "patients/9.png")
	assert.ErrorIs(t, err, ErrNotFound)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, a := range fake.auth {
		assert.Equal(t, "Bearer secret", a)
	}
}

func TestHandler_ServesBlob(t *testing.T) {
	s := NewMemory("/blobs")
	_, err := s.Put(context.Background(), "reports/r.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/blobs", Handler(s))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/reports/r.pdf", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blobs/reports/missing.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
