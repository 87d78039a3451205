package patients

import (
	"math"
	"strconv"
	"strings"

	"policlinico/internal/platform/validation"
)

// Form es el formulario de alta tal como llega (todo texto).
type Form struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Age       string `json:"age" validate:"required,numeric"`
	WeightKg  string `json:"weightKg" validate:"required,numeric"`
}

// UpdateInput usa punteros: nil = no tocar.
// id y registeredAt no son editables.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Age       *string
	WeightKg  *string
	PhotoRef  *string
}

func (f Form) trimmed() Form {
	return Form{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Age:       strings.TrimSpace(f.Age),
		WeightKg:  strings.TrimSpace(f.WeightKg),
	}
}

// toPatient valida el formulario completo y convierte age/weightKg a números.
// Reporta todos los campos con problemas, no sólo el primero.
func (f Form) toPatient(v *validation.Validator) (Patient, error) {
	f = f.trimmed()

	errs := v.Struct(f)
	if errs == nil {
		errs = map[string]string{}
	}

	p := Patient{FirstName: f.FirstName, LastName: f.LastName}

	if _, bad := errs[FieldAge]; !bad {
		age, msg := parseAge(f.Age)
		if msg != "" {
			errs[FieldAge] = msg
		} else {
			p.Age = &age
		}
	}
	if _, bad := errs[FieldWeightKg]; !bad {
		w, msg := parseWeight(f.WeightKg)
		if msg != "" {
			errs[FieldWeightKg] = msg
		} else {
			p.WeightKg = &w
		}
	}

	if len(errs) > 0 {
		return Patient{}, &ValidationError{Fields: errs}
	}
	return p, nil
}

// toFields valida los campos presentes de un update y arma el merge.
func (in UpdateInput) toFields(v *validation.Validator) (Fields, error) {
	fields := Fields{}
	errs := map[string]string{}

	text := func(key string, val *string) {
		if val == nil {
			return
		}
		s := strings.TrimSpace(*val)
		if msg := v.Var(key, s, "required"); msg != nil {
			errs[key] = msg[key]
			return
		}
		fields[key] = s
	}
	text(FieldFirstName, in.FirstName)
	text(FieldLastName, in.LastName)

	if in.Age != nil {
		s := strings.TrimSpace(*in.Age)
		if msg := v.Var(FieldAge, s, "required,numeric"); msg != nil {
			errs[FieldAge] = msg[FieldAge]
		} else if age, m := parseAge(s); m != "" {
			errs[FieldAge] = m
		} else {
			fields[FieldAge] = age
		}
	}
	if in.WeightKg != nil {
		s := strings.TrimSpace(*in.WeightKg)
		if msg := v.Var(FieldWeightKg, s, "required,numeric"); msg != nil {
			errs[FieldWeightKg] = msg[FieldWeightKg]
		} else if w, m := parseWeight(s); m != "" {
			errs[FieldWeightKg] = m
		} else {
			fields[FieldWeightKg] = w
		}
	}

	// photoRef vacío es válido: quita la foto.
	if in.PhotoRef != nil {
		fields[FieldPhotoRef] = strings.TrimSpace(*in.PhotoRef)
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return fields, nil
}

func parseAge(s string) (int, string) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, FieldAge + " must be a number"
	}
	if f < 0 {
		return 0, FieldAge + " must be greater than or equal to 0"
	}
	if f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, FieldAge + " must be a whole number"
	}
	return int(f), ""
}

func parseWeight(s string) (float64, string) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, FieldWeightKg + " must be a number"
	}
	if f < 0 {
		return 0, FieldWeightKg + " must be greater than or equal to 0"
	}
	return f, ""
}
