package patients

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"policlinico/internal/domain/attachments"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes limita el cuerpo multipart (foto + campos).
const maxUploadBytes = 12 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/patients", func(pr chi.Router) {
		pr.Post("/", createPatientHandler(svc))
		pr.Get("/", listPatientsHandler(svc))

		pr.Get("/{patientID}", getPatientHandler(svc))
		pr.Patch("/{patientID}", updatePatientHandler(svc))
		pr.Delete("/{patientID}", deletePatientHandler(svc))

		pr.Put("/{patientID}/photo", changePhotoHandler(svc))
	})
}

// textValue acepta "34" o 34: los formularios mandan texto, otros clientes números.
type textValue string

func (t *textValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = textValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a string or a number")
	}
	*t = textValue(n.String())
	return nil
}

// createPatientRequest es el alta en JSON; age y weightKg aceptan texto o número.
type createPatientRequest struct {
	FirstName textValue `json:"firstName" swaggertype:"string"`
	LastName  textValue `json:"lastName" swaggertype:"string"`
	Age       textValue `json:"age" swaggertype:"string" example:"34"`
	WeightKg  textValue `json:"weightKg" swaggertype:"string" example:"70.5"`
}

type updatePatientRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	FirstName *textValue `json:"firstName" swaggertype:"string"`
	LastName  *textValue `json:"lastName" swaggertype:"string"`
	Age       *textValue `json:"age" swaggertype:"string"`
	WeightKg  *textValue `json:"weightKg" swaggertype:"string"`
	PhotoRef  *textValue `json:"photoRef" swaggertype:"string"`
}

type patientResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Age          *int      `json:"age"`
	WeightKg     *float64  `json:"weightKg"`
	PhotoRef     string    `json:"photoRef"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type photoResponse struct {
	PhotoRef string `json:"photoRef"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// createPatientHandler godoc
// @Summary Registrar paciente
// @Description Alta de paciente. Acepta JSON o multipart/form-data (campos firstName, lastName, age, weightKg y archivo opcional `photo`). Si hay foto, se guarda antes de escribir el registro; si falla, no se crea nada.
// @Tags patients
// @Accept json,mpfd
// @Produce json
// @Param payload body createPatientRequest false "Datos del paciente (JSON)"
// @Param photo formData file false "Foto de perfil (multipart)"
// @Success 201 {object} createdResponse
// @Failure 400 {object} errorResponse "campos faltantes o inválidos"
// @Failure 422 {object} errorResponse "no se pudo guardar la foto"
// @Failure 502 {object} errorResponse "record store no disponible"
// @Router /patients [post]
func createPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			form  Form
			photo attachments.Source
		)

		if isMultipart(r) {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
			if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
				return
			}
			form = Form{
				FirstName: r.FormValue(FieldFirstName),
				LastName:  r.FormValue(FieldLastName),
				Age:       r.FormValue(FieldAge),
				WeightKg:  r.FormValue(FieldWeightKg),
			}
			if fhs := r.MultipartForm.File["photo"]; len(fhs) > 0 {
				photo = attachments.FromFileHeader(fhs[0])
			}
		} else {
			var req createPatientRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
				return
			}
			form = Form{
				FirstName: string(req.FirstName),
				LastName:  string(req.LastName),
				Age:       string(req.Age),
				WeightKg:  string(req.WeightKg),
			}
		}

		id, err := svc.Register(r.Context(), form, photo)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Location", "/patients/"+id)
		writeJSON(w, http.StatusCreated, createdResponse{ID: id})
	}
}

// listPatientsHandler godoc
// @Summary Listar pacientes
// @Description Devuelve todos los pacientes en el orden del store. `q` filtra por nombre o apellido (substring, sin distinguir mayúsculas).
// @Tags patients
// @Produce json
// @Param q query string false "Texto de búsqueda"
// @Success 200 {array} patientResponse
// @Failure 502 {object} errorResponse "record store no disponible"
// @Router /patients [get]
func listPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := svc.Collect(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}

		items := Filter(all, r.URL.Query().Get("q"))
		out := make([]patientResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toPatientResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPatientHandler godoc
// @Summary Obtener paciente
// @Tags patients
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {object} patientResponse
// @Failure 404 {object} errorResponse "patient not found"
// @Failure 502 {object} errorResponse "record store no disponible"
// @Router /patients/{patientID} [get]
func getPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.Get(r.Context(), chi.URLParam(r, "patientID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

// updatePatientHandler godoc
// @Summary Editar paciente
// @Description Actualiza sólo los campos enviados. `id` y `registeredAt` no son editables.
// @Tags patients
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body updatePatientRequest true "Campos a modificar"
// @Success 200 {object} patientResponse
// @Failure 400 {object} errorResponse "invalid json / campos inválidos"
// @Failure 404 {object} errorResponse "patient not found"
// @Failure 502 {object} errorResponse "record store no disponible"
// @Router /patients/{patientID} [patch]
func updatePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "patientID")

		var req updatePatientRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
			return
		}

		if err := svc.Update(r.Context(), id, UpdateInput{
			FirstName: req.FirstName.ptr(),
			LastName:  req.LastName.ptr(),
			Age:       req.Age.ptr(),
			WeightKg:  req.WeightKg.ptr(),
			PhotoRef:  req.PhotoRef.ptr(),
		}); err != nil {
			writeError(w, err)
			return
		}

		p, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toPatientResponse(p))
	}
}

// changePhotoHandler godoc
// @Summary Cambiar foto de perfil
// @Description Guarda la nueva imagen y actualiza photoRef. La imagen anterior no se borra.
// @Tags patients
// @Accept mpfd
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param photo formData file true "Imagen"
// @Success 200 {object} photoResponse
// @Failure 400 {object} errorResponse "falta el archivo photo"
// @Failure 404 {object} errorResponse "patient not found"
// @Failure 422 {object} errorResponse "no se pudo guardar la foto"
// @Router /patients/{patientID}/photo [put]
func changePhotoHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if !isMultipart(r) || r.ParseMultipartForm(maxUploadBytes) != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "multipart form with photo required"})
			return
		}
		fhs := r.MultipartForm.File["photo"]
		if len(fhs) == 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "photo is required"})
			return
		}

		ref, err := svc.ChangePhoto(r.Context(), chi.URLParam(r, "patientID"), attachments.FromFileHeader(fhs[0]))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, photoResponse{PhotoRef: ref})
	}
}

// deletePatientHandler godoc
// @Summary Eliminar paciente
// @Description Borrado definitivo. Borrar un id inexistente también responde 204.
// @Tags patients
// @Param patientID path string true "ID del paciente"
// @Success 204
// @Failure 502 {object} errorResponse "record store no disponible"
// @Router /patients/{patientID} [delete]
func deletePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "patientID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (t *textValue) ptr() *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mt, "multipart/")
}

func toPatientResponse(p Patient) patientResponse {
	return patientResponse{
		ID:           p.ID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Age:          p.Age,
		WeightKg:     p.WeightKg,
		PhotoRef:     p.PhotoRef,
		RegisteredAt: p.RegisteredAt,
	}
}

// writeError traduce los errores del dominio a status HTTP.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve *ValidationError
		ae *attachments.AttachmentError
		se *StoreError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "patient not found"})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "could not store photo: " + ae.Err.Error()})
	case errors.As(err, &se):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "record store unavailable, try again"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
