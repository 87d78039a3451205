package attachments

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/platform/blobstore"
)

var (
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, []byte("rest-of-jpeg")...)
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), []byte("rest-of-png")...)
)

func TestFromURI(t *testing.T) {
	fsys := afero.NewMemMapFs()

	s, err := FromURI(fsys, "file:///tmp/picker/IMG_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/picker/IMG_1.jpg", s.Path)
	assert.Equal(t, "IMG_1.jpg", s.Name())

	s, err = FromURI(fsys, "/tmp/a.png")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a.png", s.Path)

	_, err = FromURI(fsys, "https://example.test/a.png")
	assert.ErrorIs(t, err, ErrInvalidSource)
	_, err = FromURI(fsys, "  ")
	assert.ErrorIs(t, err, ErrInvalidSource)
}

func TestLocalCopy_CopiesUnderPatientName(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/picker/img.jpg", jpegBytes, 0o644))

	src, err := FromURI(fsys, "file:///picker/img.jpg")
	require.NoError(t, err)

	l := NewLocalCopy(fsys, "/data/photos")
	ref, err := l.Attach(context.Background(), src, NameHint{FirstName: "Ana", LastName: "Ruiz"})
	require.NoError(t, err)
	assert.Equal(t, "/data/photos/Ana_Ruiz_profile.jpg", ref)

	got, err := afero.ReadFile(fsys, ref)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, got)
}

func TestLocalCopy_MissingSourceIsAttachmentError(t *testing.T) {
	fsys := afero.NewMemMapFs()
	src, _ := FromURI(fsys, "/picker/missing.jpg")

	_, err := NewLocalCopy(fsys, "/data/photos").Attach(context.Background(), src, NameHint{FirstName: "A", LastName: "B"})
	require.Error(t, err)

	var ae *AttachmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ModeLocal, ae.Mode)
}

type failingReader struct{ served bool }

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.served {
		f.served = true
		// más que el buffer de sniff, para que la falla ocurra durante la copia
		return copy(p, append(append([]byte{}, jpegBytes...), make([]byte, 1024)...)), nil
	}
	return 0, errors.New("disk read error")
}

func TestLocalCopy_RemovesHalfWrittenFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	src := ReaderSource{
		name: "broken.jpg",
		open: func() (io.ReadCloser, error) { return io.NopCloser(&failingReader{}), nil },
	}

	_, err := NewLocalCopy(fsys, "/data/photos").Attach(context.Background(), src, NameHint{FirstName: "Ana", LastName: "Ruiz"})
	require.Error(t, err)

	exists, _ := afero.Exists(fsys, "/data/photos/Ana_Ruiz_profile.jpg")
	assert.False(t, exists)
}

func TestLocalCopy_FailedReplaceKeepsPreviousPhoto(t *testing.T) {
	fsys := afero.NewMemMapFs()
	l := NewLocalCopy(fsys, "/data/photos")
	hint := NameHint{FirstName: "Ana", LastName: "Ruiz"}

	ref, err := l.Attach(context.Background(), FromBytes("ok.jpg", jpegBytes), hint)
	require.NoError(t, err)

	broken := ReaderSource{
		name: "broken.jpg",
		open: func() (io.ReadCloser, error) { return io.NopCloser(&failingReader{}), nil },
	}
	_, err = l.Attach(context.Background(), broken, hint)
	require.Error(t, err)

	got, err := afero.ReadFile(fsys, ref)
	require.NoError(t, err, "la foto anterior debe seguir existiendo")
	assert.Equal(t, jpegBytes, got)

	// sin temporales colgando
	entries, err := afero.ReadDir(fsys, "/data/photos")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana_Ruiz_profile.jpg", entries[0].Name())
}

func TestLocalCopy_ReplacesPreviousPhoto(t *testing.T) {
	fsys := afero.NewMemMapFs()
	l := NewLocalCopy(fsys, "/data/photos")
	hint := NameHint{FirstName: "Ana", LastName: "Ruiz"}

	_, err := l.Attach(context.Background(), FromBytes("a.jpg", jpegBytes), hint)
	require.NoError(t, err)
	ref, err := l.Attach(context.Background(), FromBytes("b.png", pngBytes), hint)
	require.NoError(t, err)

	got, err := afero.ReadFile(fsys, ref)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestLocalCopy_RejectsNonImage(t *testing.T) {
	_, err := NewLocalCopy(afero.NewMemMapFs(), "/p").Attach(context.Background(), FromBytes("a.txt", []byte("hola mundo")), NameHint{})
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestProfileFileName_Sanitizes(t *testing.T) {
	assert.Equal(t, "María-José_de-la-Cruz_profile.jpg", ProfileFileName(NameHint{FirstName: " María José ", LastName: "de la Cruz"}))
	assert.Equal(t, "a-b_paciente_profile.jpg", ProfileFileName(NameHint{FirstName: "a/b", LastName: ".."}))
}

func TestUpload_TimeDerivedKey(t *testing.T) {
	const base = "http://localhost:8080/blobs/"
	store := blobstore.NewMemory(base)
	u := NewUpload(store, "patients")
	u.now = func() time.Time { return time.UnixMilli(1700000000123) }

	ref, err := u.Attach(context.Background(), FromBytes("x.png", pngBytes), NameHint{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, base+"patients/1700000000123-"), ref)
	assert.True(t, strings.HasSuffix(ref, ".png"), ref)

	rc, obj, err := store.Get(context.Background(), strings.TrimPrefix(ref, base))
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, "image/png", obj.ContentType)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, pngBytes, b)
}

func TestUpload_SameMillisecondKeepsBothImages(t *testing.T) {
	const base = "/blobs/"
	store := blobstore.NewMemory(base)
	u := NewUpload(store, "patients")
	u.now = func() time.Time { return time.UnixMilli(1700000000000) }

	first, err := u.Attach(context.Background(), FromBytes("a.jpg", jpegBytes), NameHint{FirstName: "A"})
	require.NoError(t, err)
	second, err := u.Attach(context.Background(), FromBytes("b.jpg", append(append([]byte{}, jpegBytes...), 'x')), NameHint{FirstName: "B"})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	assert.Equal(t, 2, store.Len())

	rc, _, err := store.Get(context.Background(), strings.TrimPrefix(first, base))
	require.NoError(t, err)
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	assert.Equal(t, jpegBytes, b)
}

type failingStore struct{ blobstore.Store }

func (failingStore) Put(context.Context, string, string, io.Reader) (blobstore.Object, error) {
	return blobstore.Object{}, errors.New("503 unavailable")
}

func TestUpload_FailureIsAttachmentError(t *testing.T) {
	_, err := NewUpload(failingStore{}, "patients").Attach(context.Background(), FromBytes("x.jpg", jpegBytes), NameHint{})

	var ae *AttachmentError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, ModeUpload, ae.Mode)
	assert.True(t, strings.Contains(err.Error(), "503"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, m)

	m, err = ParseMode("UPLOAD")
	require.NoError(t, err)
	assert.Equal(t, ModeUpload, m)

	_, err = ParseMode("ftp")
	assert.Error(t, err)
}
