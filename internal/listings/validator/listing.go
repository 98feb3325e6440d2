package validator

import (
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"staybook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ListingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewListingValidator(log *logger.Logger) *ListingValidator {
	return &ListingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *ListingValidator) ValidateCreate(req *model.CreateListingRequest) error {
	return validation.Struct(v.validate, req)
}

// Validate checks a listing built from a request, including rules that span
// fields.
func (v *ListingValidator) Validate(listing *model.Listing) error {
	if err := validation.Struct(v.validate, listing); err != nil {
		return err
	}

	if listing.AvailableTo.Before(listing.AvailableFrom) {
		return validation.Field("availableTo", "availableTo must not be before availableFrom")
	}

	return nil
}
