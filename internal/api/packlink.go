package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"erp-shipping/config"
	"erp-shipping/internal/model"

	"github.com/sirupsen/logrus"
)

// PacklinkClient talks to the Packlink PRO API
type PacklinkClient struct {
	cfg    config.PacklinkConfig
	http   *httpClient
	logger *logrus.Logger
}

// NewPacklinkClient creates a new Packlink API client
func NewPacklinkClient(cfg config.PacklinkConfig, logger *logrus.Logger) *PacklinkClient {
	c := &PacklinkClient{cfg: cfg, logger: logger}
	c.http = newHTTPClient(model.ProviderPacklink, cfg.URL(), cfg.Timeout, logger, func(req *http.Request) {
		req.Header.Set("Authorization", cfg.APIKey)
	})
	return c
}

// Name implements Provider
func (c *PacklinkClient) Name() string { return model.ProviderPacklink }

// Enabled implements Provider
func (c *PacklinkClient) Enabled() bool { return c.ready() == nil }

func (c *PacklinkClient) ready() error {
	if !c.cfg.Enabled {
		return configErr(c.Name(), ErrProviderDisabled)
	}
	if c.cfg.APIKey == "" {
		return configErr(c.Name(), ErrMissingCredentials)
	}
	return nil
}

// Quote lists the services available on the pickup date
func (c *PacklinkClient) Quote(ctx context.Context, req *QuoteRequest) ([]model.Quote, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionQuote(c.Name())

	data, err := c.http.get(ctx, action, servicesPath(req.PickupAddress, req.DeliveryAddress, packlinkPackages(req.Parcels)))
	if err != nil {
		return nil, err
	}

	// Errors come back as an object, services as an array
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		return nil, c.http.upstreamErr(action, 0, vendorMessage(trimmed), nil)
	}

	var services []packlinkService
	if err := c.http.decode(action, data, &services); err != nil {
		return nil, err
	}

	pickupDate := packlinkDate(req.PickupDate)
	quotes := make([]model.Quote, 0, len(services))
	for _, service := range services {
		var dates map[string]json.RawMessage
		if len(service.AvailableDates) > 0 {
			if err := c.http.decode(action, service.AvailableDates, &dates); err != nil {
				return nil, err
			}
		}
		if _, ok := dates[pickupDate]; !ok {
			continue
		}
		quotes = append(quotes, model.Quote{
			ServiceProvider: c.Name(),
			ServiceID:       service.ID,
			Carrier:         service.CarrierName,
			CarrierName:     service.Name,
			TotalPrice:      service.Price.BasePrice,
			ActualPrice:     service.Price.TotalPrice,
			AvailableDates:  service.AvailableDates,
		})
	}

	if len(services) > 0 && len(quotes) == 0 {
		return nil, c.http.upstreamErr(action, 0, "No Services available for "+req.PickupDate, nil)
	}

	c.logger.WithFields(logrus.Fields{
		"function":    "Quote",
		"provider":    c.Name(),
		"pickup_date": pickupDate,
		"count":       len(quotes),
	}).Info("Retrieved Packlink services")
	return quotes, nil
}

// Book creates a shipment draft for the chosen service
func (c *PacklinkClient) Book(ctx context.Context, req *BookingRequest) (*model.BookingResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionBook(c.Name())

	to := packlinkContact(req.DeliveryAddress, req.DeliveryContact)
	to.Company = req.deliveryCompany()

	payload := packlinkShipmentRequest{
		AdditionalData: packlinkAdditionalData{
			PostalZoneNameFrom: req.PickupAddress.Country,
			PostalZoneNameTo:   req.DeliveryAddress.Country,
		},
		CollectionDate: packlinkDate(req.PickupDate),
		Content:        req.DescriptionOfContent,
		ContentValue:   json.Number(req.ValueOfGoods.String()),
		From:           packlinkContact(req.PickupAddress, req.PickupContact),
		Packages:       packlinkPackages(req.Parcels),
		ServiceID:      req.Quote.ServiceID,
		To:             to,
	}

	data, err := c.http.post(ctx, action, "/shipments", payload)
	if err != nil {
		return nil, err
	}

	var resp packlinkShipmentResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.Reference == "" {
		return nil, c.http.upstreamErr(action, 0, "response has no shipment reference", nil)
	}

	c.logger.WithFields(logrus.Fields{
		"function":    "Book",
		"shipment":    req.Shipment,
		"shipment_id": resp.Reference,
	}).Info("Created Packlink shipment")

	return &model.BookingResult{
		ServiceProvider: c.Name(),
		ShipmentID:      resp.Reference,
		Carrier:         req.Quote.Carrier,
		CarrierService:  req.Quote.ServiceName,
		ShipmentAmount:  req.Quote.ActualPrice,
	}, nil
}

// FetchLabel returns the carrier label URLs of a shipment
func (c *PacklinkClient) FetchLabel(ctx context.Context, shipmentID string) (*model.Label, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionLabel(c.Name())

	data, err := c.http.get(ctx, action, fmt.Sprintf("/shipments/%s/labels", url.PathEscape(shipmentID)))
	if err != nil {
		return nil, err
	}

	var urls []string
	if err := c.http.decode(action, data, &urls); err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, c.http.upstreamErr(action, 0,
			fmt.Sprintf("label not found, make sure shipment %s exists and is complete on Packlink", shipmentID), nil)
	}
	return &model.Label{ServiceProvider: c.Name(), URLs: urls}, nil
}

// FetchTracking returns the current tracking state of a shipment
func (c *PacklinkClient) FetchTracking(ctx context.Context, shipmentID string) (*model.TrackingRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionTracking(c.Name())

	data, err := c.http.get(ctx, action, "/shipments/"+url.PathEscape(shipmentID))
	if err != nil {
		return nil, err
	}

	var resp packlinkTrackingResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.Trackings == nil {
		return nil, nil
	}

	awbNumber := ""
	if len(*resp.Trackings) > 0 {
		awbNumber = (*resp.Trackings)[0]
	}

	return &model.TrackingRecord{
		AWBNumber: awbNumber,
		TrackingStatus: coarseStatus(
			resp.State == "DELIVERED",
			resp.State == "RETURNED",
			resp.State == "LOST",
		),
		TrackingStatusInfo: resp.State,
		Carrier:            resp.Carrier,
	}, nil
}

// servicesPath builds the rate-shopping query. Packlink expects the bracketed
// parameter names unescaped and in this order.
func servicesPath(from, to *model.Address, packages []packlinkPackage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "/services?from[country]=%s&from[zip]=%s&to[country]=%s&to[zip]=%s&",
		url.QueryEscape(from.CountryCode), url.QueryEscape(from.Pincode),
		url.QueryEscape(to.CountryCode), url.QueryEscape(to.Pincode))
	for i, p := range packages {
		fmt.Fprintf(&b, "packages[%d][height]=%s&packages[%d][length]=%s&packages[%d][weight]=%s&packages[%d][width]=%s&",
			i, formatFloat(p.Height), i, formatFloat(p.Length), i, formatFloat(p.Weight), i, formatFloat(p.Width))
	}
	b.WriteString("sortBy=totalPrice&source=PRO")
	return b.String()
}

// packlinkPackages expands each parcel line into count identical packages
func packlinkPackages(parcels []model.Parcel) []packlinkPackage {
	packages := make([]packlinkPackage, 0, model.TotalCount(parcels))
	for _, p := range parcels {
		for i := 0; i < p.Count; i++ {
			packages = append(packages, packlinkPackage{
				Height: p.Height,
				Width:  p.Width,
				Length: p.Length,
				Weight: p.Weight,
			})
		}
	}
	return packages
}

func packlinkContact(address *model.Address, contact *model.Contact) packlinkParty {
	if contact == nil {
		contact = &model.Contact{}
	}
	return packlinkParty{
		City:    address.City,
		Company: address.AddressTitle,
		Country: address.CountryCode,
		Email:   contact.Email,
		Name:    contact.FirstName,
		Phone:   contact.Phone,
		State:   address.Country,
		Street1: address.AddressLine1,
		Street2: address.AddressLine2,
		Surname: contact.LastName,
		ZipCode: address.Pincode,
	}
}

// packlinkDate converts YYYY-MM-DD to Packlink's YYYY/MM/DD
func packlinkDate(date string) string {
	return strings.ReplaceAll(date, "-", "/")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
