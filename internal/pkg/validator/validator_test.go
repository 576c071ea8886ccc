package validator

import (
	"testing"

	"hotelrides/internal/domain"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Currency   string `validate:"required,currency"`
	Passengers int    `validate:"min=1"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Currency: "EGP", Passengers: 2}))

	errs := Validate(sample{Currency: "egp", Passengers: 0})
	assert.Equal(t, "currency", errs["Currency"])
	assert.Equal(t, "min", errs["Passengers"])
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(sample{Currency: "USD", Passengers: 1}))

	err := Check(sample{Currency: "usd", Passengers: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, "Currency", verr.Field)
}
