package stats

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/stats", getStatsHandler(svc))
}

// getStatsHandler godoc
// @Summary Estadísticas de pacientes
// @Description Total de pacientes, distribución por tramos de edad y serie de pesos (P1..Pn) sobre un snapshot fresco.
// @Tags stats
// @Produce json
// @Success 200 {object} Summary
// @Failure 502 {string} string "record store unavailable"
// @Router /stats [get]
func getStatsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := svc.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "record store unavailable", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
