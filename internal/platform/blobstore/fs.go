package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS guarda blobs como archivos bajo root en un afero.Fs.
// Las URLs apuntan a baseURL (típicamente el endpoint /blobs de este servicio).
type FS struct {
	fs      afero.Fs
	root    string
	baseURL string
}

func NewFS(fsys afero.Fs, root, baseURL string) *FS {
	return &FS{fs: fsys, root: root, baseURL: baseURL}
}

func (s *FS) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FS) Put(ctx context.Context, key, contentType string, content io.Reader) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	data, hash, err := readLimited(content)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	p := s.path(key)
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Object{}, fmt.Errorf("blobstore: mkdir: %w", err)
	}
	if err := afero.WriteFile(s.fs, p, data, 0o644); err != nil {
		_ = s.fs.Remove(p)
		return Object{}, fmt.Errorf("blobstore: write %s: %w", key, err)
	}

	fi, err := s.fs.Stat(p)
	if err != nil {
		return Object{}, fmt.Errorf("blobstore: stat %s: %w", key, err)
	}

	return Object{
		Key:         key,
		ContentType: contentTypeFor(contentType, key, data),
		Size:        int64(len(data)),
		Hash:        hash,
		URL:         PublicURL(s.baseURL, key),
		CreatedAt:   fi.ModTime().UTC(),
	}, nil
}

func (s *FS) Get(_ context.Context, key string) (io.ReadCloser, Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Object{}, err
	}

	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("blobstore: read %s: %w", key, err)
	}

	obj := Object{
		Key:         key,
		ContentType: contentTypeFor("", key, data),
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", sha256.Sum256(data)),
		URL:         PublicURL(s.baseURL, key),
	}
	if fi, err := s.fs.Stat(s.path(key)); err == nil {
		obj.CreatedAt = fi.ModTime().UTC()
	}
	return io.NopCloser(bytes.NewReader(data)), obj, nil
}

func (s *FS) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	p := s.path(key)
	if _, err := s.fs.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return s.fs.Remove(p)
}
