package validate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type form struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"min=6"`
	Confirm  string          `json:"confirm_password" validate:"eqfield=Password"`
	Role     string          `json:"role" validate:"oneof=CLIENT PROVIDER"`
	Duration int             `json:"duration" validate:"gt=0"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
}

func validForm() form {
	return form{
		Email:    "jane@example.com",
		Password: "secret1",
		Confirm:  "secret1",
		Role:     "CLIENT",
		Duration: 30,
		Price:    decimal.RequireFromString("49.99"),
	}
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, Struct(validForm()))
}

func TestStructFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *form)
		field   string
		message string
	}{
		{"bad email", func(f *form) { f.Email = "jane" }, "email", "must be a valid email address"},
		{"missing email", func(f *form) { f.Email = "" }, "email", "is required"},
		{"short password", func(f *form) { f.Password = "abc"; f.Confirm = "abc" }, "password", "must be at least 6 characters"},
		{"mismatch", func(f *form) { f.Confirm = "other12" }, "confirm_password", "does not match"},
		{"bad role", func(f *form) { f.Role = "ADMIN" }, "role", "must be one of: CLIENT, PROVIDER"},
		{"zero duration", func(f *form) { f.Duration = 0 }, "duration", "must be greater than 0"},
		{"negative price", func(f *form) { f.Price = decimal.NewFromInt(-1) }, "price", "must be 0 or more"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)

			err := Struct(f)
			require.Error(t, err)

			var errs Errors
			require.True(t, errors.As(err, &errs))
			assert.True(t, errs.Has(tt.field), "expected error on %s, got %v", tt.field, errs)
			assert.Equal(t, tt.message, errs.Message(tt.field))
		})
	}
}

func TestZeroPriceAllowed(t *testing.T) {
	f := validForm()
	f.Price = decimal.Zero
	assert.NoError(t, Struct(f))
}

func TestErrorsString(t *testing.T) {
	errs := Errors{
		{Field: "email", Message: "is required"},
		{Field: "password", Message: "must be at least 6 characters"},
	}
	assert.Equal(t, "email: is required; password: must be at least 6 characters", errs.Error())
	assert.False(t, errs.Has("role"))
	assert.Empty(t, errs.Message("role"))
}
