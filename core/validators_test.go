package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		Category string `json:"category" validate:"required,alphanum_"`
		Date     string `json:"date" validate:"omitempty,isodate"`
	}

	tests := []struct {
		name string
		form form
		want map[string]string
	}{
		{name: "ok", form: form{Category: "tour_travel", Date: "2026-12-25"}},
		{name: "empty date", form: form{Category: "dues"}},
		{
			name: "required",
			form: form{},
			want: map[string]string{"category": requiredText},
		},
		{
			name: "bad values",
			form: form{Category: "scores/parts", Date: "12/25/2026"},
			want: map[string]string{
				"category": alphaNumUnderText,
				"date":     "date must be formatted YYYY-MM-DD",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.form)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			got := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
