package api

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors, detected before any network call
var (
	ErrProviderDisabled   = errors.New("integration is disabled")
	ErrMissingCredentials = errors.New("api credentials are missing")
	ErrUnknownProvider    = errors.New("unknown service provider")
)

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrProviderDisabled) || errors.Is(err, ErrMissingCredentials)
}

// UpstreamError is any failure talking to a carrier: transport, non-2xx
// status, a vendor error body or an unexpected response shape.
type UpstreamError struct {
	Provider   string
	Action     string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: error while %s", strings.ToLower(e.Provider), e.Action)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status: %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Actions name the operation in user-facing alerts
func actionQuote(provider string) string    { return "fetching " + provider + " prices" }
func actionBook(provider string) string     { return "creating " + provider + " Shipment" }
func actionLabel(provider string) string    { return "printing " + provider + " Label" }
func actionTracking(provider string) string { return "updating " + provider + " Shipment" }

func configErr(provider string, err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(provider), err)
}
