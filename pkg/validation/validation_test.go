package validation

import (
	"testing"

	apperrors "staybook/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"gt=0"`
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	v := New()

	err := Struct(v, sample{Name: "a", Email: "nope"})
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := verrs.Fields()
	assert.Equal(t, "name must be at least 2", fields["name"])
	assert.Equal(t, "email must be a valid email address", fields["email"])
	assert.Equal(t, "count must be greater than 0", fields["count"])
}

func TestStruct_Valid(t *testing.T) {
	require.NoError(t, Struct(New(), sample{Name: "ok", Email: "a@b.co", Count: 1}))
}

func TestToAppError(t *testing.T) {
	appErr := ToAppError("Invalid listing", Field("availableTo", "must not be before availableFrom"))
	assert.Equal(t, apperrors.CodeValidation, appErr.Code)
	assert.Equal(t, 400, appErr.StatusCode())
	assert.Equal(t, "must not be before availableFrom", appErr.Details["availableTo"])
}
