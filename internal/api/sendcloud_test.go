package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"erp-shipping/config"
	"erp-shipping/internal/model"
	"erp-shipping/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSendCloud(url string) *SendCloudClient {
	return NewSendCloudClient(config.SendCloudConfig{
		EndpointConfig: endpoint(url),
		APIKey:         "sc-key",
		APISecret:      "sc-secret",
	}, logger.Discard())
}

func TestSendCloud_NoRequestWhenNotConfigured(t *testing.T) {
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"shipping_methods":[]}`)
	})
	c := NewSendCloudClient(config.SendCloudConfig{EndpointConfig: endpoint(srv.URL), APIKey: "sc-key"}, logger.Discard())

	quotes, err := c.Quote(context.Background(), sampleQuoteRequest())
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Empty(t, quotes)

	_, err = c.FetchTracking(context.Background(), "12, 34")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	assert.Empty(t, srv.Requests())
}

func TestSendCloud_Quote(t *testing.T) {
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shipping_methods", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"shipping_methods": [
			{"id": 8, "name": "DPD Classic", "carrier": "dpd",
			 "countries": [{"iso_2": "DE", "price": 4.2}, {"iso_2": "FR", "price": 6.5}]},
			{"id": 9, "name": "Colissimo Home", "carrier": "colissimo",
			 "countries": [{"iso_2": "FR", "price": 5.1}]},
			{"id": 10, "name": "PostNL Standard", "carrier": "postnl",
			 "countries": [{"iso_2": "NL", "price": 3.0}]}
		]}`)
	})
	c := newSendCloud(srv.URL)

	quotes, err := c.Quote(context.Background(), sampleQuoteRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	// three parcels in the manifest
	assert.Equal(t, int64(8), quotes[0].ServiceID)
	assert.Equal(t, "dpd", quotes[0].Carrier)
	assert.Equal(t, "DPD Classic", quotes[0].ServiceName)
	assert.Empty(t, quotes[0].CarrierName)
	assert.True(t, decimal.RequireFromString("19.5").Equal(quotes[0].TotalPrice))
	assert.Equal(t, int64(9), quotes[1].ServiceID)
	assert.True(t, decimal.RequireFromString("15.3").Equal(quotes[1].TotalPrice))

	user, pass, ok := (&http.Request{Header: srv.Requests()[0].Header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "sc-key", user)
	assert.Equal(t, "sc-secret", pass)
}

func TestSendCloud_Book(t *testing.T) {
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parcels", r.URL.Path)
		assert.Equal(t, "verbose", r.URL.Query().Get("errors"))
		writeJSON(w, http.StatusOK, `{"parcels": [
			{"id": 12, "tracking_number": "3SABC1"},
			{"id": 34, "tracking_number": "3SABC2"}
		]}`)
	})
	c := newSendCloud(srv.URL)

	result, err := c.Book(context.Background(), &BookingRequest{
		QuoteRequest:        *sampleQuoteRequest(),
		Shipment:            "SHIP-0003",
		DeliveryCompanyName: "Globex",
		Quote: model.Quote{
			ServiceProvider: model.ProviderSendCloud,
			ServiceID:       8,
			Carrier:         "dpd",
			ServiceName:     "DPD Classic",
			TotalPrice:      decimal.RequireFromString("19.5"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "12, 34", result.ShipmentID)
	assert.Equal(t, "3SABC1, 3SABC2", result.AWBNumber)
	assert.Equal(t, "dpd", result.Carrier)
	assert.Equal(t, "DPD Classic", result.CarrierService)
	assert.True(t, decimal.RequireFromString("19.5").Equal(result.ShipmentAmount))

	var body sendCloudParcelsRequest
	require.NoError(t, json.Unmarshal(srv.Requests()[0].Body, &body))
	require.Len(t, body.Parcels, 2)
	assert.Equal(t, "SHIP-0003-1", body.Parcels[0].OrderNumber)
	assert.Equal(t, "SHIP-0003-2", body.Parcels[1].ExternalReference)
	assert.Equal(t, "John Smith", body.Parcels[0].Name)
	assert.Equal(t, "Globex", body.Parcels[0].CompanyName)
	assert.Equal(t, "FR", body.Parcels[0].Country)
	assert.Equal(t, int64(8), body.Parcels[0].Shipment.ID)
	assert.True(t, body.Parcels[0].RequestLabel)
	require.Len(t, body.Parcels[0].ParcelItems, 1)
	assert.Equal(t, 2, body.Parcels[0].ParcelItems[0].Quantity)
}

func TestSendCloud_BookFailedParcels(t *testing.T) {
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"parcels": [], "failed_parcels": [{"errors": {"postal_code": ["invalid"]}}]}`)
	})
	c := newSendCloud(srv.URL)

	_, err := c.Book(context.Background(), &BookingRequest{QuoteRequest: *sampleQuoteRequest(), Shipment: "SHIP-0003"})

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Message, "postal_code")
	assert.Equal(t, "creating SendCloud Shipment", upstream.Action)
}

func TestSendCloud_FetchLabelPerSubParcel(t *testing.T) {
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/labels/")
		writeJSON(w, http.StatusOK, `{"label":{"label_printer":"https://panel.test/labels/`+id+`.pdf"}}`)
	})
	c := newSendCloud(srv.URL)

	label, err := c.FetchLabel(context.Background(), "12, 34")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://panel.test/labels/12.pdf", "https://panel.test/labels/34.pdf"}, label.URLs)
	assert.Len(t, srv.Requests(), 2)
}

func TestSendCloud_FetchTrackingComposite(t *testing.T) {
	parcels := map[string]string{
		"/parcels/12": `{"parcel":{"tracking_number":"3SABC1","tracking_url":"https://track.test/1","status":{"id":11,"message":"Delivered"}}}`,
		"/parcels/34": `{"parcel":{"tracking_number":"3SABC2","tracking_url":"https://track.test/2","status":{"id":3,"message":"En route to sorting center"}}}`,
	}
	srv := newFakeCarrier(t, func(w http.ResponseWriter, r *http.Request) {
		body, ok := parcels[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, body)
	})
	c := newSendCloud(srv.URL)

	record, err := c.FetchTracking(context.Background(), "12, 34")
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/parcels/12", reqs[0].Path)
	assert.Equal(t, "/parcels/34", reqs[1].Path)

	assert.Equal(t, "3SABC1, 3SABC2", record.AWBNumber)
	assert.Equal(t, "Delivered, In Progress", record.TrackingStatus)
	assert.Equal(t, "Delivered, En route to sorting center", record.TrackingStatusInfo)
	assert.Equal(t, "https://track.test/1, https://track.test/2", record.TrackingURL)
}

func TestSendCloudStatus(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"Delivered", model.TrackingDelivered},
		{"Returned to sender", model.TrackingReturned},
		{"Parcel lost", model.TrackingLost},
		{"Announced", model.TrackingInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, sendCloudStatus(tt.message))
		})
	}
}
