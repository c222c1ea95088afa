package shipping

import (
	"errors"
	"fmt"
)

// Validation errors raised while loading ERP records
var (
	ErrMissingPostalCode = errors.New("postal code is mandatory")
	ErrMissingCountry    = errors.New("country is mandatory")
	ErrUnknownCountry    = errors.New("country has no ISO code")
	ErrMissingLastName   = errors.New("last name is mandatory")
)

// IsValidationError reports whether err comes from an address or contact
// that must be fixed in the ERP before shipping.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingPostalCode) ||
		errors.Is(err, ErrMissingCountry) ||
		errors.Is(err, ErrUnknownCountry) ||
		errors.Is(err, ErrMissingLastName)
}

// Alert is the dismissible notification shown when a carrier call failed.
// The full error text is kept in the referenced Error Log entry.
type Alert struct {
	Action   string `json:"action"`
	ErrorLog string `json:"error_log"`
	Message  string `json:"message"`
}

func newAlert(action, errorLog string) *Alert {
	return &Alert{
		Action:   action,
		ErrorLog: errorLog,
		Message:  fmt.Sprintf("An Error occurred while %s. See error log %s.", action, errorLog),
	}
}
