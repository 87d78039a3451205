package attachments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"policlinico/internal/platform/blobstore"
)

// Upload sube la imagen al blob store bajo <Prefix>/<unix-millis>-<uuid>.<ext>
// y devuelve la URL de descarga.
type Upload struct {
	Store  blobstore.Store
	Prefix string
	now    func() time.Time
}

func NewUpload(store blobstore.Store, prefix string) *Upload {
	return &Upload{Store: store, Prefix: strings.Trim(prefix, "/"), now: time.Now}
}

func (u *Upload) Attach(ctx context.Context, src Source, _ NameHint) (string, error) {
	url, err := u.attach(ctx, src)
	if err != nil {
		return "", &AttachmentError{Mode: ModeUpload, Err: err}
	}
	return url, nil
}

func (u *Upload) attach(ctx context.Context, src Source) (string, error) {
	if u.Store == nil {
		return "", fmt.Errorf("blob store not configured")
	}
	rc, ct, ext, err := sniff(src)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	key := u.key(ext)
	obj, err := u.Store.Put(ctx, key, ct, rc)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return obj.URL, nil
}

func (u *Upload) key(ext string) string {
	now := time.Now
	if u.now != nil {
		now = u.now
	}
	// el uuid evita que dos altas en el mismo milisegundo compartan key
	name := fmt.Sprintf("%d-%s.%s", now().UnixMilli(), uuid.NewString(), ext)
	if u.Prefix == "" {
		return name
	}
	return u.Prefix + "/" + name
}
