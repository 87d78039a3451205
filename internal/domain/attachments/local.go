package attachments

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/spf13/afero"
)

// LocalCopy copia la imagen al almacenamiento privado: <Dir>/<nombre>_<apellido>_profile.jpg.
// Pacientes con el mismo nombre comparten archivo (el último gana).
type LocalCopy struct {
	Fs  afero.Fs
	Dir string
}

func NewLocalCopy(fsys afero.Fs, dir string) *LocalCopy {
	return &LocalCopy{Fs: fsys, Dir: dir}
}

func (l *LocalCopy) Attach(ctx context.Context, src Source, hint NameHint) (string, error) {
	path, err := l.attach(ctx, src, hint)
	if err != nil {
		return "", &AttachmentError{Mode: ModeLocal, Err: err}
	}
	return path, nil
}

func (l *LocalCopy) attach(ctx context.Context, src Source, hint NameHint) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rc, _, _, err := sniff(src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	if err := l.Fs.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", l.Dir, err)
	}

	dst := filepath.Join(l.Dir, ProfileFileName(hint))

	// se escribe aparte y se renombra al final: una copia fallida no pisa la foto anterior
	tmp, err := afero.TempFile(l.Fs, l.Dir, ".photo-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp in %s: %w", l.Dir, err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		_ = tmp.Close()
		_ = l.Fs.Remove(tmpName)
		return "", fmt.Errorf("copy to %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		_ = l.Fs.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := l.Fs.Rename(tmpName, dst); err != nil {
		_ = l.Fs.Remove(tmpName)
		return "", fmt.Errorf("rename to %s: %w", dst, err)
	}
	return dst, nil
}

// ProfileFileName arma "<nombre>_<apellido>_profile.jpg" sin separadores de ruta.
func ProfileFileName(hint NameHint) string {
	return sanitize(hint.FirstName) + "_" + sanitize(hint.LastName) + "_profile.jpg"
}

func sanitize(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '/' || r == '\\' || r == 0:
			b.WriteRune('-')
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "paciente"
	}
	return out
}
