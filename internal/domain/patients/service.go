package patients

import (
	"context"
	"errors"
	"iter"
	"strings"

	"policlinico/internal/domain/attachments"
	"policlinico/internal/platform/logger"
	"policlinico/internal/platform/metrics"
	"policlinico/internal/platform/validation"
)

var errNoAttacher = errors.New("photo storage not configured")

type Options struct {
	Attacher  attachments.Attacher // nil: no se aceptan fotos
	Logger    logger.Logger
	Metrics   *metrics.Metrics
	Validator *validation.Validator
}

// Service es el cliente del record store de pacientes.
type Service struct {
	repo     Repository
	attacher attachments.Attacher
	log      logger.Logger
	metrics  *metrics.Metrics
	validate *validation.Validator
}

func NewService(repo Repository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New()
	}
	return &Service{
		repo:     repo,
		attacher: opts.Attacher,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		validate: opts.Validator,
	}
}

// Create valida el formulario y escribe el registro (sin foto).
func (s *Service) Create(ctx context.Context, f Form) (string, error) {
	return s.Register(ctx, f, nil)
}

// Register es el flujo de alta: valida, resuelve la foto (si hay) y recién
// entonces escribe. Si la foto falla no se escribe nada.
func (s *Service) Register(ctx context.Context, f Form, photo attachments.Source) (id string, err error) {
	defer func() { s.observe("create", err) }()

	p, err := f.toPatient(s.validate)
	if err != nil {
		return "", err
	}

	if photo != nil {
		ref, err := s.attach(ctx, photo, p)
		if err != nil {
			s.log.Warn("patient photo attach failed", map[string]any{"error": err})
			return "", err
		}
		p.PhotoRef = ref
	}

	id, err = s.repo.Insert(ctx, encodePatient(p))
	if err != nil {
		err = storeErr("create", err)
		s.log.Error("patient create failed", map[string]any{"error": err})
		return "", err
	}

	s.log.Info("patient created", map[string]any{"patient_id": id, "with_photo": p.PhotoRef != ""})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id string) (Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Patient{}, ErrNotFound
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Patient{}, storeErr("get", err)
	}
	return decodeDocument(d), nil
}

// Update reescribe sólo los campos provistos.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (err error) {
	defer func() { s.observe("update", err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}

	fields, err := in.toFields(s.validate)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		// nada que escribir; igual confirma que existe
		_, err = s.Get(ctx, id)
		return err
	}

	if err = s.repo.Merge(ctx, id, fields); err != nil {
		err = storeErr("update", err)
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("patient update failed", map[string]any{"patient_id": id, "error": err})
		}
		return err
	}

	s.log.Info("patient updated", map[string]any{"patient_id": id, "fields": len(fields)})
	return nil
}

// ChangePhoto adjunta una imagen nueva y actualiza photoRef.
// La imagen anterior no se borra.
func (s *Service) ChangePhoto(ctx context.Context, id string, photo attachments.Source) (ref string, err error) {
	defer func() { s.observe("change_photo", err) }()

	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	ref, err = s.attach(ctx, photo, p)
	if err != nil {
		s.log.Warn("patient photo attach failed", map[string]any{"patient_id": p.ID, "error": err})
		return "", err
	}

	if err = s.repo.Merge(ctx, p.ID, Fields{FieldPhotoRef: ref}); err != nil {
		return "", storeErr("update", err)
	}

	s.log.Info("patient photo changed", map[string]any{"patient_id": p.ID})
	return ref, nil
}

// Delete es definitivo. Borrar un id inexistente no es error.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.observe("delete", err) }()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if err = s.repo.Delete(ctx, id); err != nil {
		err = storeErr("delete", err)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		s.log.Error("patient delete failed", map[string]any{"patient_id": id, "error": err})
		return err
	}

	s.log.Info("patient deleted", map[string]any{"patient_id": id})
	return nil
}

// List devuelve un snapshot nuevo en cada llamada, en el orden del store.
// La secuencia termina en el primer error.
func (s *Service) List(ctx context.Context) iter.Seq2[Patient, error] {
	return func(yield func(Patient, error) bool) {
		for d, err := range s.repo.List(ctx) {
			if err != nil {
				err = storeErr("list", err)
				s.observe("list", err)
				yield(Patient{}, err)
				return
			}
			if !yield(decodeDocument(d), nil) {
				return
			}
		}
	}
}

// Collect materializa List.
func (s *Service) Collect(ctx context.Context) ([]Patient, error) {
	out := make([]Patient, 0)
	for p, err := range s.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) attach(ctx context.Context, photo attachments.Source, p Patient) (string, error) {
	if s.attacher == nil {
		return "", &attachments.AttachmentError{Err: errNoAttacher}
	}
	return s.attacher.Attach(ctx, photo, attachments.NameHint{FirstName: p.FirstName, LastName: p.LastName})
}

func (s *Service) observe(op string, err error) {
	s.metrics.ObservePatientOp(op, Result(err))
}

// Result clasifica un error para métricas y logs.
func Result(err error) string {
	var (
		ve *ValidationError
		ae *attachments.AttachmentError
		se *StoreError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.As(err, &ae):
		return "attachment"
	case errors.As(err, &se):
		return "store"
	default:
		return "error"
	}
}
