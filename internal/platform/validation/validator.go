package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator envuelve go-playground/validator usando el nombre json de cada campo
// en los mensajes, para que coincidan con lo que envía el cliente.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct valida i y devuelve los errores por campo (nil si todo ok).
func (v *Validator) Struct(i any) map[string]string {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	return Format(err)
}

// Var valida un valor suelto; field se usa como key del mensaje.
func (v *Validator) Var(field string, value any, tag string) map[string]string {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	return format(err, field)
}

func Format(err error) map[string]string {
	return format(err, "")
}

func format(err error, name string) map[string]string {
	out := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = err.Error()
		return out
	}

	for _, e := range verrs {
		field := e.Field()
		if name != "" {
			field = name
		}
		switch e.Tag() {
		case "required":
			out[field] = field + " is required"
		case "numeric":
			out[field] = field + " must be a number"
		case "gte":
			out[field] = field + " must be greater than or equal to " + e.Param()
		case "lte":
			out[field] = field + " must be less than or equal to " + e.Param()
		default:
			out[field] = field + " is invalid"
		}
	}
	return out
}
