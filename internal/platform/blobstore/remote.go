package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"policlinico/internal/platform/httpclient"
)

// Remote habla con un blob store externo por HTTP:
//
//	PUT    {base}/{key}  body binario  -> 2xx, opcionalmente {"url": "..."}
//	GET    {base}/{key}               -> contenido
//	DELETE {base}/{key}
type Remote struct {
	client *httpclient.Client
	token  string
	now    func() time.Time
}

// NewRemote requiere un client con BaseURL seteado.
func NewRemote(client *httpclient.Client, token string) *Remote {
	return &Remote{client: client, token: strings.TrimSpace(token), now: time.Now}
}

func (s *Remote) headers(contentType string) map[string]string {
	h := map[string]string{}
	if contentType != "" {
		h["Content-Type"] = contentType
	}
	if s.token != "" {
		h["Authorization"] = "Bearer " + s.token
	}
	return h
}

func (s *Remote) Put(ctx context.Context, key, contentType string, content io.Reader) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}
	data, hash, err := readLimited(content)
	if err != nil {
		return Object{}, err
	}
	ct := contentTypeFor(contentType, key, data)

	raw, err := s.client.DoRaw(ctx, http.MethodPut, PublicURL("", key), s.headers(ct), bytes.NewReader(data), 1<<16)
	if err != nil {
		return Object{}, fmt.Errorf("blobstore: upload %s: %w", key, err)
	}

	obj := Object{
		Key:         key,
		ContentType: ct,
		Size:        int64(len(data)),
		Hash:        hash,
		URL:         PublicURL(s.client.BaseURL, key),
		CreatedAt:   s.now().UTC(),
	}

	// Algunos backends devuelven una URL de descarga firmada/pública.
	var resp struct {
		URL string `json:"url"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &resp) == nil && strings.TrimSpace(resp.URL) != "" {
		obj.URL = strings.TrimSpace(resp.URL)
	}
	return obj, nil
}

func (s *Remote) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Object{}, err
	}
	raw, err := s.client.DoRaw(ctx, http.MethodGet, PublicURL("", key), s.headers(""), nil, MaxObjectSize)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("blobstore: download %s: %w", key, err)
	}
	return io.NopCloser(bytes.NewReader(raw)), Object{
		Key:         key,
		ContentType: contentTypeFor("", key, raw),
		Size:        int64(len(raw)),
		URL:         PublicURL(s.client.BaseURL, key),
	}, nil
}

func (s *Remote) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DoRaw(ctx, http.MethodDelete, PublicURL("", key), s.headers(""), nil, 1<<16)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("blobstore: delete %s: %w", key, err)
	}
	return nil
}
