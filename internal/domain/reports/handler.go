package reports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/reports", createReportHandler(svc))
}

type reportResponse struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	Shared   bool   `json:"shared"`
	Location string `json:"location"`
	Total    int    `json:"total"`
}

// createReportHandler godoc
// @Summary Exportar reporte PDF
// @Description Toma un snapshot fresco, dibuja los gráficos, arma el PDF, lo guarda en el blob store y lo comparte si hay un mecanismo configurado. Si no, devuelve la ubicación.
// @Tags reports
// @Produce json
// @Success 201 {object} reportResponse
// @Failure 500 {string} string "report <stage> failed"
// @Failure 502 {string} string "record store unavailable"
// @Router /reports [post]
func createReportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.Generate(r.Context())
		if err != nil {
			var ee *ExportError
			if !errors.As(err, &ee) {
				http.Error(w, "record store unavailable", http.StatusBadGateway)
				return
			}
			// el documento existe pero no se pudo compartir: se informa la ubicación
			if ee.Stage != StageShare {
				http.Error(w, "report "+ee.Stage+" failed", http.StatusInternalServerError)
				return
			}
		}

		writeJSON(w, http.StatusCreated, reportResponse{
			Key:      rep.Handle.Key,
			URL:      rep.Handle.URL,
			Size:     rep.Handle.Size,
			Shared:   rep.Share.Shared,
			Location: rep.Share.Location,
			Total:    rep.Summary.Total,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
