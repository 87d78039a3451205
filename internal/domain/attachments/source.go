package attachments

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ErrInvalidSource = errors.New("invalid image source")

// Source es una imagen elegida por el usuario que todavía no fue persistida.
type Source interface {
	Open() (io.ReadCloser, error)
	Name() string
}

// FileSource es una imagen en un filesystem local (el URI que devuelve el picker).
type FileSource struct {
	Fs   afero.Fs
	Path string
}

// FromURI acepta "file:///ruta/img.jpg" o una ruta plana.
func FromURI(fsys afero.Fs, uri string) (FileSource, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return FileSource{}, ErrInvalidSource
	}

	p := uri
	if strings.Contains(uri, "://") {
		u, err := url.Parse(uri)
		if err != nil || u.Scheme != "file" {
			return FileSource{}, ErrInvalidSource
		}
		p = u.Path
	}
	if p == "" {
		return FileSource{}, ErrInvalidSource
	}
	return FileSource{Fs: fsys, Path: filepath.Clean(p)}, nil
}

func (s FileSource) Open() (io.ReadCloser, error) {
	if s.Fs == nil {
		return nil, ErrInvalidSource
	}
	return s.Fs.Open(s.Path)
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

// ReaderSource envuelve contenido ya recibido (multipart o bytes en memoria).
type ReaderSource struct {
	name string
	open func() (io.ReadCloser, error)
}

func (s ReaderSource) Open() (io.ReadCloser, error) {
	if s.open == nil {
		return nil, ErrInvalidSource
	}
	return s.open()
}

func (s ReaderSource) Name() string { return s.name }

// FromFileHeader adapta el archivo "photo" de un form multipart.
func FromFileHeader(fh *multipart.FileHeader) ReaderSource {
	return ReaderSource{
		name: fh.Filename,
		open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

func FromBytes(name string, b []byte) ReaderSource {
	return ReaderSource{
		name: name,
		open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil },
	}
}
