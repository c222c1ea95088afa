package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"erp-shipping/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxResponseSize caps how much of a carrier response is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Provider is implemented once per carrier aggregator
type Provider interface {
	// Name returns the service_provider tag, e.g. "LetMeShip"
	Name() string
	// Enabled reports whether the integration is switched on and has credentials
	Enabled() bool
	Quote(ctx context.Context, req *QuoteRequest) ([]model.Quote, error)
	Book(ctx context.Context, req *BookingRequest) (*model.BookingResult, error)
	FetchLabel(ctx context.Context, shipmentID string) (*model.Label, error)
	// FetchTracking returns nil without error when the carrier has no
	// tracking data for the shipment yet.
	FetchTracking(ctx context.Context, shipmentID string) (*model.TrackingRecord, error)
}

// QuoteRequest carries everything a carrier needs to price a shipment
type QuoteRequest struct {
	PickupAddress        *model.Address
	DeliveryAddress      *model.Address
	PickupContact        *model.Contact
	DeliveryContact      *model.Contact
	Parcels              []model.Parcel
	DescriptionOfContent string
	// PickupDate is formatted YYYY-MM-DD
	PickupDate   string
	ValueOfGoods decimal.Decimal
}

// BookingRequest books the chosen quote
type BookingRequest struct {
	QuoteRequest
	// Shipment is the ERP Shipment name
	Shipment            string
	DeliveryCompanyName string
	Quote               model.Quote
}

// deliveryCompany prefers the resolved customer/supplier/company name
func (r *BookingRequest) deliveryCompany() string {
	if r.DeliveryCompanyName != "" {
		return r.DeliveryCompanyName
	}
	return r.DeliveryAddress.AddressTitle
}

// httpClient is the JSON transport shared by the carrier clients
type httpClient struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
	authorize  func(req *http.Request)
}

func newHTTPClient(provider, baseURL string, timeout time.Duration, logger *logrus.Logger, authorize func(*http.Request)) *httpClient {
	return &httpClient{
		provider:   provider,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		authorize:  authorize,
	}
}

// get issues a GET against path and returns the raw response body
func (c *httpClient) get(ctx context.Context, action, path string) ([]byte, error) {
	return c.do(ctx, action, http.MethodGet, path, nil)
}

// post issues a POST with a JSON body and returns the raw response body
func (c *httpClient) post(ctx context.Context, action, path string, payload any) ([]byte, error) {
	return c.do(ctx, action, http.MethodPost, path, payload)
}

// do performs a single request; there is no retry
func (c *httpClient) do(ctx context.Context, action, method, path string, payload any) ([]byte, error) {
	log := c.logger.WithFields(logrus.Fields{
		"provider": c.provider,
		"action":   action,
		"method":   method,
		"path":     path,
	})

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, c.upstreamErr(action, 0, "", fmt.Errorf("failed to marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, c.upstreamErr(action, 0, "", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("Request failed")
		return nil, c.upstreamErr(action, 0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, c.upstreamErr(action, resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	log = log.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"elapsed":     time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WithField("response", truncate(string(data), 512)).Warn("API returned error")
		return nil, c.upstreamErr(action, resp.StatusCode, vendorMessage(data), nil)
	}

	log.Debug("Request completed")
	return data, nil
}

// decode unmarshals a response body, reporting shape mismatches as upstream errors
func (c *httpClient) decode(action string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return c.upstreamErr(action, 0, "", fmt.Errorf("unexpected response: %w", err))
	}
	return nil
}

func (c *httpClient) upstreamErr(action string, status int, message string, err error) *UpstreamError {
	return &UpstreamError{
		Provider:   c.provider,
		Action:     action,
		StatusCode: status,
		Message:    message,
		Err:        err,
	}
}

// vendorMessage extracts a human readable message from the error body
// shapes used by the three carriers.
func vendorMessage(data []byte) string {
	var body struct {
		Message  string `json:"message"`
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return truncate(strings.TrimSpace(string(data)), 256)
	}
	switch {
	case body.Message != "":
		return body.Message
	case len(body.Messages) > 0:
		return body.Messages[0].Message
	case body.Error.Message != "":
		return body.Error.Message
	}
	return truncate(strings.TrimSpace(string(data)), 256)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// flexID accepts identifiers sent either as JSON numbers or strings
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*f = flexID(n.String())
	return nil
}

// coarseStatus maps a carrier state onto the four tracking states
func coarseStatus(delivered, returned, lost bool) string {
	switch {
	case delivered:
		return model.TrackingDelivered
	case returned:
		return model.TrackingReturned
	case lost:
		return model.TrackingLost
	}
	return model.TrackingInProgress
}
