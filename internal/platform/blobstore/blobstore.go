// Package blobstore guarda contenido binario (fotos de perfil, reportes PDF)
// bajo keys elegidas por quien llama y devuelve una URL de recuperación.
// Incluye un backend en memoria, uno sobre filesystem (afero) y uno remoto
// por HTTP.
package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrTooLarge   = errors.New("blob exceeds maximum allowed size")
	ErrInvalidKey = errors.New("invalid blob key")
)

// MaxObjectSize es el tamaño máximo aceptado por Put (25 MB).
const MaxObjectSize = 25 * 1024 * 1024

// Object describe un blob guardado.
type Object struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash,omitempty"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store es el contrato de los backends de blobs.
type Store interface {
	Put(ctx context.Context, key, contentType string, content io.Reader) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, key string) error
}

// CleanKey normaliza una key: sin "/" inicial, sin segmentos vacíos ni "..".
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	key = strings.Trim(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidKey
		}
	}
	return key, nil
}

// PublicURL arma la URL de un blob bajo baseURL, escapando cada segmento.
func PublicURL(baseURL, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	escaped := strings.Join(segs, "/")
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return "/" + escaped
	}
	return base + "/" + escaped
}

// readLimited lee todo el contenido respetando MaxObjectSize y calcula el hash.
func readLimited(content io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxObjectSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxObjectSize {
		return nil, "", ErrTooLarge
	}
	return data, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// contentTypeFor usa el content type declarado, o lo infiere por extensión y,
// como último recurso, por los primeros bytes.
func contentTypeFor(declared, key string, data []byte) string {
	if ct := strings.TrimSpace(declared); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
