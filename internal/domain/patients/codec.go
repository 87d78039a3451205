package patients

import (
	"encoding/json"
	"math"
)

func encodePatient(p Patient) Fields {
	f := Fields{
		FieldFirstName: p.FirstName,
		FieldLastName:  p.LastName,
		FieldPhotoRef:  p.PhotoRef,
	}
	if p.Age != nil {
		f[FieldAge] = *p.Age
	}
	if p.WeightKg != nil {
		f[FieldWeightKg] = *p.WeightKg
	}
	return f
}

// decodeDocument impone la forma de Patient sobre un documento schemaless.
// Keys desconocidas se ignoran; age/weightKg no numéricos quedan en nil.
func decodeDocument(d Document) Patient {
	return Patient{
		ID:           d.ID,
		FirstName:    asString(d.Fields[FieldFirstName]),
		LastName:     asString(d.Fields[FieldLastName]),
		Age:          asInt(d.Fields[FieldAge]),
		WeightKg:     asFloat(d.Fields[FieldWeightKg]),
		PhotoRef:     asString(d.Fields[FieldPhotoRef]),
		RegisteredAt: d.RegisteredAt,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asNumber acepta los tipos numéricos que devuelven los distintos drivers
// (Go nativo en memoria, float64/json.Number al decodificar JSON).
func asNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asInt(v any) *int {
	f, ok := asNumber(v)
	if !ok {
		return nil
	}
	n := int(math.Trunc(f))
	return &n
}

func asFloat(v any) *float64 {
	f, ok := asNumber(v)
	if !ok {
		return nil
	}
	return &f
}
