package reports

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"policlinico/internal/platform/httpclient"
)

// Sharer entrega un reporte a un mecanismo externo de compartir.
type Sharer interface {
	Available() bool
	Share(ctx context.Context, h Handle) error
}

type ShareResult struct {
	Shared   bool   `json:"shared"`
	Location string `json:"location"`
}

// Share usa el sharer si está disponible; si no, sólo informa dónde quedó el documento.
func Share(ctx context.Context, s Sharer, h Handle) (ShareResult, error) {
	res := ShareResult{Location: h.URL}
	if res.Location == "" {
		res.Location = h.Key
	}
	if s == nil || !s.Available() {
		return res, nil
	}
	if err := s.Share(ctx, h); err != nil {
		return res, &ExportError{Stage: StageShare, Err: err}
	}
	res.Shared = true
	return res, nil
}

// NopSharer nunca está disponible.
type NopSharer struct{}

func (NopSharer) Available() bool { return false }
func (NopSharer) Share(context.Context, Handle) error { return errors.New("sharing not available") }

// WebhookSharer avisa a un webhook (chat, correo, etc.) con la ubicación del reporte.
type WebhookSharer struct {
	client *httpclient.Client
	url    string
}

func NewWebhookSharer(client *httpclient.Client, url string) *WebhookSharer {
	return &WebhookSharer{client: client, url: strings.TrimSpace(url)}
}

type webhookPayload struct {
	Title string `json:"title"`
	Key   string `json:"key"`
	URL   string `json:"url"`
	Size  int64  `json:"size"`
}

func (w *WebhookSharer) Available() bool {
	return w != nil && w.client != nil && w.url != ""
}

func (w *WebhookSharer) Share(ctx context.Context, h Handle) error {
	return w.client.DoJSON(ctx, http.MethodPost, w.url, nil, webhookPayload{
		Title: "Estadísticas de Pacientes",
		Key:   h.Key,
		URL:   h.URL,
		Size:  h.Size,
	}, nil)
}
