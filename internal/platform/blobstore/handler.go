package blobstore

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler sirve blobs de store en GET {mount}/*, donde * es la key.
// Se monta con r.Mount("/blobs", blobstore.Handler(store)).
func Handler(store Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		key := chi.URLParam(req, "*")

		rc, obj, err := store.Get(req.Context(), key)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, ErrInvalidKey):
				http.Error(w, "invalid key", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Type", obj.ContentType)
		if obj.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		if obj.Hash != "" {
			w.Header().Set("ETag", `"`+obj.Hash+`"`)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, rc)
	})
	return r
}
