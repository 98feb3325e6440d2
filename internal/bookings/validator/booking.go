package validator

import (
	"fmt"
	"time"

	"staybook/pkg/logger"
	"staybook/pkg/model"
	"staybook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *BookingValidator) ValidateCheckout(req *model.CheckoutRequest) error {
	return validation.Struct(v.validate, req)
}

// ValidateStay checks a parsed stay against the listing it targets. today is
// the start of the current UTC day.
func (v *BookingValidator) ValidateStay(listing *model.Listing, checkIn, checkOut time.Time, guests int, today time.Time) error {
	if !checkOut.After(checkIn) {
		return validation.Field("checkOutDate", "checkOutDate must be after checkInDate")
	}
	if guests > listing.MaxGuests {
		return validation.Field("guests", fmt.Sprintf("guests must not exceed %d for this listing", listing.MaxGuests))
	}
	if checkIn.Before(today) {
		return validation.Field("checkInDate", "checkInDate cannot be in the past")
	}
	if !listing.Covers(checkIn, checkOut) {
		return validation.Field("checkInDate", fmt.Sprintf("listing is only available from %s to %s",
			listing.AvailableFrom.Format(model.DateLayout), listing.AvailableTo.Format(model.DateLayout)))
	}
	return nil
}
