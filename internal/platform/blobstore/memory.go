package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

type storedBlob struct {
	object  Object
	content []byte
}

// Memory es un Store en memoria, thread-safe, para tests/dev.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]*storedBlob
	now     func() time.Time
}

// NewMemory crea un Store en memoria; baseURL se usa para armar Object.URL.
func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: baseURL,
		blobs:   make(map[string]*storedBlob),
		now:     time.Now,
	}
}

func (s *Memory) Put(_ context.Context, key, contentType string, content io.Reader) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}

	data, hash, err := readLimited(content)
	if err != nil {
		return Object{}, err
	}

	obj := Object{
		Key:         key,
		ContentType: contentTypeFor(contentType, key, data),
		Size:        int64(len(data)),
		Hash:        hash,
		URL:         PublicURL(s.baseURL, key),
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.blobs[key] = &storedBlob{object: obj, content: data}
	s.mu.Unlock()

	return obj, nil
}

func (s *Memory) Get(_ context.Context, key string) (io.ReadCloser, Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Object{}, err
	}

	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Object{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.content)), b.object, nil
}

func (s *Memory) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

// Len devuelve la cantidad de blobs guardados.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
