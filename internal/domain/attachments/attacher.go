// Package attachments convierte una imagen elegida por el usuario en un
// photoRef durable: una copia local o una URL del blob store.
package attachments

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Mode string

const (
	ModeLocal  Mode = "local"
	ModeUpload Mode = "upload"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeUpload:
		return ModeUpload, nil
	default:
		return "", fmt.Errorf("invalid photo mode %q (use local|upload)", s)
	}
}

// NameHint identifica al paciente dueño de la imagen.
type NameHint struct {
	FirstName string
	LastName  string
}

// Attacher resuelve una imagen a un photoRef.
type Attacher interface {
	Attach(ctx context.Context, src Source, hint NameHint) (string, error)
}

// AttachmentError envuelve cualquier falla de copia/subida.
type AttachmentError struct {
	Mode Mode
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment (%s): %v", e.Mode, e.Err)
}

func (e *AttachmentError) Unwrap() error { return e.Err }

// ErrNotImage se devuelve cuando el contenido no es image/*.
var ErrNotImage = errors.New("content is not an image")

// sniff abre la fuente y verifica que sea una imagen. Devuelve un reader que
// incluye los bytes ya leídos, el content type y la extensión sugerida.
func sniff(src Source) (io.ReadCloser, string, string, error) {
	if src == nil {
		return nil, "", "", ErrInvalidSource
	}
	rc, err := src.Open()
	if err != nil {
		return nil, "", "", fmt.Errorf("open source: %w", err)
	}

	br := bufio.NewReaderSize(rc, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		_ = rc.Close()
		return nil, "", "", fmt.Errorf("read source: %w", err)
	}
	if len(head) == 0 {
		_ = rc.Close()
		return nil, "", "", ErrNotImage
	}

	ct := http.DetectContentType(head)
	if !strings.HasPrefix(ct, "image/") {
		_ = rc.Close()
		return nil, "", "", ErrNotImage
	}
	return struct {
		io.Reader
		io.Closer
	}{br, rc}, ct, extFor(ct), nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return "jpg"
	}
}
