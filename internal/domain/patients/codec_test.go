package patients

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policlinico/internal/platform/validation"
)

func TestDecodeDocument_NumericCoercion(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	p := decodeDocument(Document{
		ID:           "abc",
		RegisteredAt: at,
		Fields: Fields{
			FieldFirstName: "Ana",
			FieldLastName:  "Ruiz",
			FieldAge:       float64(34), // así llega de un store JSON
			FieldWeightKg:  json.Number("70.5"),
			"legacy":       true,
		},
	})

	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "Ana Ruiz", p.FullName())
	require.NotNil(t, p.Age)
	assert.Equal(t, 34, *p.Age)
	require.NotNil(t, p.WeightKg)
	assert.Equal(t, 70.5, *p.WeightKg)
	assert.Equal(t, at, p.RegisteredAt)
	assert.Empty(t, p.PhotoRef)
}

func TestDecodeDocument_NonNumericIsAbsent(t *testing.T) {
	p := decodeDocument(Document{Fields: Fields{
		FieldAge:      "34",
		FieldWeightKg: nil,
	}})
	assert.Nil(t, p.Age)
	assert.Nil(t, p.WeightKg)
}

func TestAsInt_TruncatesFractions(t *testing.T) {
	n := asInt(41.9)
	require.NotNil(t, n)
	assert.Equal(t, 41, *n)

	// 50.5 queda en 50: para estadísticas cuenta en "Entre 30 y 50"
	n = asInt(json.Number("50.5"))
	require.NotNil(t, n)
	assert.Equal(t, 50, *n)

	assert.Nil(t, asInt(json.Number("abc")))
}

func TestForm_MissingFieldsAreAllReported(t *testing.T) {
	v := validation.New()
	full := Form{FirstName: "Ana", LastName: "Ruiz", Age: "34", WeightKg: "70"}

	// todas las combinaciones con al menos un campo faltante
	for mask := 1; mask < 16; mask++ {
		f := full
		want := []string{}
		if mask&1 != 0 {
			f.FirstName = "  "
			want = append(want, FieldFirstName)
		}
		if mask&2 != 0 {
			f.LastName = ""
			want = append(want, FieldLastName)
		}
		if mask&4 != 0 {
			f.Age = ""
			want = append(want, FieldAge)
		}
		if mask&8 != 0 {
			f.WeightKg = ""
			want = append(want, FieldWeightKg)
		}

		_, err := f.toPatient(v)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "mask %d", mask)
		for _, k := range want {
			assert.Contains(t, ve.Fields, k, "mask %d", mask)
		}
		assert.Len(t, ve.Fields, len(want), "mask %d", mask)
	}
}

func TestForm_ConvertsToNumbers(t *testing.T) {
	p, err := Form{FirstName: " Ana ", LastName: "Ruiz", Age: " 34 ", WeightKg: "70.25"}.toPatient(validation.New())
	require.NoError(t, err)

	assert.Equal(t, "Ana", p.FirstName)
	require.NotNil(t, p.Age)
	assert.Equal(t, 34, *p.Age)
	require.NotNil(t, p.WeightKg)
	assert.Equal(t, 70.25, *p.WeightKg)

	f := encodePatient(p)
	assert.IsType(t, 0, f[FieldAge])
	assert.IsType(t, 0.0, f[FieldWeightKg])
}

func TestForm_RejectsMalformedNumbers(t *testing.T) {
	cases := []struct {
		age, weight string
		bad         string
	}{
		{"treinta", "70", FieldAge},
		{"34.5", "70", FieldAge},
		{"-1", "70", FieldAge},
		{"34", "-3", FieldWeightKg},
		{"34", "70kg", FieldWeightKg},
	}
	for _, tc := range cases {
		_, err := Form{FirstName: "A", LastName: "B", Age: tc.age, WeightKg: tc.weight}.toPatient(validation.New())
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "%s/%s", tc.age, tc.weight)
		assert.Contains(t, ve.Fields, tc.bad)
	}

	// "34.0" es un entero válido
	p, err := Form{FirstName: "A", LastName: "B", Age: "34.0", WeightKg: "0"}.toPatient(validation.New())
	require.NoError(t, err)
	assert.Equal(t, 34, *p.Age)
	assert.Equal(t, 0.0, *p.WeightKg)
}

func TestUpdateInput_ToFields(t *testing.T) {
	name := " Luisa "
	age := "40"
	blank := ""

	fields, err := UpdateInput{FirstName: &name, Age: &age, PhotoRef: &blank}.toFields(validation.New())
	require.NoError(t, err)
	assert.Equal(t, Fields{FieldFirstName: "Luisa", FieldAge: 40, FieldPhotoRef: ""}, fields)

	_, err = UpdateInput{LastName: &blank}.toFields(validation.New())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, FieldLastName)
}
