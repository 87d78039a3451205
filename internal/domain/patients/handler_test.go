package patients_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/domain/attachments"
	"policlinico/internal/domain/patients"
	"policlinico/internal/platform/blobstore"
)

func newTestAPI(t *testing.T) (http.Handler, *blobstore.Memory) {
	t.Helper()
	blobs := blobstore.NewMemory("http://localhost:8080/blobs")
	svc := patients.NewService(newSpyRepo(), patients.Options{
		Attacher: attachments.NewUpload(blobs, "patients"),
	})
	r := chi.NewRouter()
	patients.RegisterRoutes(r, svc)
	return r, blobs
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createdID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func TestHTTP_CreateGetUpdateDelete(t *testing.T) {
	h, _ := newTestAPI(t)

	// age como número y weightKg como texto: ambos válidos
	id := createdID(t, doJSON(t, h, http.MethodPost, "/patients",
		`{"firstName":"Ana","lastName":"Ruiz","age":34,"weightKg":"61.5"}`))

	rec := doJSON(t, h, http.MethodGet, "/patients/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Ana", got["firstName"])
	assert.Equal(t, float64(34), got["age"])
	assert.Equal(t, 61.5, got["weightKg"])

	rec = doJSON(t, h, http.MethodPatch, "/patients/"+id, `{"lastName":"Ruiz Díaz","age":"35"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Ruiz Díaz", got["lastName"])
	assert.Equal(t, float64(35), got["age"])

	rec = doJSON(t, h, http.MethodDelete, "/patients/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/patients/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/patients/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHTTP_ValidationErrorListsFields(t *testing.T) {
	h, _ := newTestAPI(t)

	rec := doJSON(t, h, http.MethodPost, "/patients", `{"firstName":"Ana","age":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var out struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, out.Fields, "lastName")
	assert.Contains(t, out.Fields, "age")
	assert.Contains(t, out.Fields, "weightKg")
	assert.NotContains(t, out.Fields, "firstName")
}

func TestHTTP_RejectsUnknownFields(t *testing.T) {
	h, _ := newTestAPI(t)
	rec := doJSON(t, h, http.MethodPost, "/patients",
		`{"firstName":"Ana","lastName":"Ruiz","age":"34","weightKg":"60","id":"forced"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHTTP_ListWithQuery(t *testing.T) {
	h, _ := newTestAPI(t)
	createdID(t, doJSON(t, h, http.MethodPost, "/patients", `{"firstName":"Ana","lastName":"Ruiz","age":"25","weightKg":"60"}`))
	createdID(t, doJSON(t, h, http.MethodPost, "/patients", `{"firstName":"Luis","lastName":"Ana","age":"52","weightKg":"80"}`))
	createdID(t, doJSON(t, h, http.MethodPost, "/patients", `{"firstName":"Pedro","lastName":"Soto","age":"40","weightKg":"70"}`))

	rec := doJSON(t, h, http.MethodGet, "/patients?q=ana", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Ana", out[0]["firstName"])
	assert.Equal(t, "Luis", out[1]["firstName"])

	rec = doJSON(t, h, http.MethodGet, "/patients", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 3)
}

func multipartBody(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "foto.png")
		require.NoError(t, err)
		_, _ = fw.Write(photo)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\nimagen")

func TestHTTP_MultipartCreateWithPhoto(t *testing.T) {
	h, blobs := newTestAPI(t)

	body, ct := multipartBody(t, map[string]string{
		"firstName": "Ana", "lastName": "Ruiz", "age": "34", "weightKg": "61",
	}, pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/patients", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	id := createdID(t, rec)

	assert.Equal(t, 1, blobs.Len())

	rec = doJSON(t, h, http.MethodGet, "/patients/"+id, "")
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, strings.HasPrefix(got["photoRef"].(string), "http://localhost:8080/blobs/patients/"), got["photoRef"])
}

func TestHTTP_MultipartNonImageIs422(t *testing.T) {
	h, blobs := newTestAPI(t)

	body, ct := multipartBody(t, map[string]string{
		"firstName": "Ana", "lastName": "Ruiz", "age": "34", "weightKg": "61",
	}, []byte("no soy una imagen"))
	req := httptest.NewRequest(http.MethodPost, "/patients", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, blobs.Len())

	rec = doJSON(t, h, http.MethodGet, "/patients", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHTTP_ChangePhoto(t *testing.T) {
	h, _ := newTestAPI(t)
	id := createdID(t, doJSON(t, h, http.MethodPost, "/patients", `{"firstName":"Ana","lastName":"Ruiz","age":"34","weightKg":"60"}`))

	body, ct := multipartBody(t, nil, pngHeader)
	req := httptest.NewRequest(http.MethodPut, "/patients/"+id+"/photo", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		PhotoRef string `json:"photoRef"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.PhotoRef)

	// sin archivo
	body, ct = multipartBody(t, map[string]string{"x": "y"}, nil)
	req = httptest.NewRequest(http.MethodPut, "/patients/"+id+"/photo", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
