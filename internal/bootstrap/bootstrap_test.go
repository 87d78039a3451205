package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/config"
	"policlinico/internal/domain/attachments"
	"policlinico/internal/domain/patients"
)

func testConfig() *config.Config {
	return &config.Config{
		AppName:        "policlinico-test",
		StoreDriver:    config.StoreMemory,
		BlobDriver:     config.BlobFS,
		BlobDir:        "/blobs",
		BlobPublicURL:  "/blobs",
		PhotoMode:      config.PhotoUpload,
		HTTPTimeout:    2 * time.Second,
		MetricsEnabled: true,
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "mongo"
	_, err := NewWithFs(context.Background(), cfg, nil, afero.NewMemMapFs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
}

func TestApp_EndToEnd(t *testing.T) {
	var shared atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		shared.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	cfg := testConfig()
	cfg.ShareWebhookURL = hook.URL
	fsys := afero.NewMemMapFs()

	app, err := NewWithFs(context.Background(), cfg, nil, fsys)
	require.NoError(t, err)
	defer app.Close()

	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\nfoto")
	id, err := app.Patients.Register(ctx, patients.Form{
		FirstName: "Ana", LastName: "Ruiz", Age: "34", WeightKg: "61.5",
	}, attachments.FromBytes("ana.png", png))
	require.NoError(t, err)

	p, err := app.Patients.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.PhotoRef, "/blobs/patients/"), p.PhotoRef)

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	// la foto subida se sirve desde el blob store
	res, err := http.Get(srv.URL + p.PhotoRef)
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, png, body)

	res, err = http.Post(srv.URL+"/reports", "application/json", nil)
	require.NoError(t, err)
	var rep struct {
		Key    string `json:"key"`
		Shared bool   `json:"shared"`
		Total  int    `json:"total"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&rep))
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.True(t, rep.Shared)
	assert.Equal(t, 1, rep.Total)
	assert.Equal(t, int32(1), shared.Load())

	exists, err := afero.Exists(fsys, "/blobs/"+rep.Key)
	require.NoError(t, err)
	assert.True(t, exists)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	metricsBody, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(metricsBody), `patients_operations_total{op="create",result="ok"} 1`)
	assert.Contains(t, string(metricsBody), `reports_exported_total{result="ok"} 1`)
}

func TestApp_LocalPhotoMode(t *testing.T) {
	cfg := testConfig()
	cfg.BlobDriver = config.BlobMemory
	cfg.PhotoMode = config.PhotoLocal
	cfg.PhotoDir = "/fotos"
	fsys := afero.NewMemMapFs()

	app, err := NewWithFs(context.Background(), cfg, nil, fsys)
	require.NoError(t, err)
	defer app.Close()

	id, err := app.Patients.Register(context.Background(), patients.Form{
		FirstName: "Ana", LastName: "Ruiz", Age: "34", WeightKg: "61.5",
	}, attachments.FromBytes("ana.png", []byte("\x89PNG\r\n\x1a\nfoto")))
	require.NoError(t, err)

	p, err := app.Patients.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "/fotos/Ana_Ruiz_profile.jpg", p.PhotoRef)

	exists, _ := afero.Exists(fsys, p.PhotoRef)
	assert.True(t, exists)
}
