package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"erp-shipping/config"
	"erp-shipping/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SendCloudClient talks to the SendCloud panel API
type SendCloudClient struct {
	cfg    config.SendCloudConfig
	http   *httpClient
	logger *logrus.Logger
}

// NewSendCloudClient creates a new SendCloud API client
func NewSendCloudClient(cfg config.SendCloudConfig, logger *logrus.Logger) *SendCloudClient {
	c := &SendCloudClient{cfg: cfg, logger: logger}
	c.http = newHTTPClient(model.ProviderSendCloud, cfg.URL(), cfg.Timeout, logger, func(req *http.Request) {
		req.SetBasicAuth(cfg.APIKey, cfg.APISecret)
	})
	return c
}

// Name implements Provider
func (c *SendCloudClient) Name() string { return model.ProviderSendCloud }

// Enabled implements Provider
func (c *SendCloudClient) Enabled() bool { return c.ready() == nil }

func (c *SendCloudClient) ready() error {
	if !c.cfg.Enabled {
		return configErr(c.Name(), ErrProviderDisabled)
	}
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		return configErr(c.Name(), ErrMissingCredentials)
	}
	return nil
}

// Quote returns one quote per shipping method serving the delivery country.
// Prices are per parcel, so the total is multiplied by the parcel count.
func (c *SendCloudClient) Quote(ctx context.Context, req *QuoteRequest) ([]model.Quote, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionQuote(c.Name())

	data, err := c.http.get(ctx, action, "/shipping_methods")
	if err != nil {
		return nil, err
	}

	var resp sendCloudShippingMethodsResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.ShippingMethods == nil {
		return nil, c.http.upstreamErr(action, 0, "response has no shipping methods", nil)
	}

	count := decimal.NewFromInt(int64(model.TotalCount(req.Parcels)))
	var quotes []model.Quote
	for _, method := range *resp.ShippingMethods {
		for _, country := range method.Countries {
			if country.ISO2 != req.DeliveryAddress.CountryCode {
				continue
			}
			quotes = append(quotes, model.Quote{
				ServiceProvider: c.Name(),
				ServiceID:       method.ID,
				Carrier:         method.Carrier,
				ServiceName:     method.Name,
				TotalPrice:      country.Price.Mul(count),
			})
		}
	}

	c.logger.WithFields(logrus.Fields{
		"function": "Quote",
		"provider": c.Name(),
		"country":  req.DeliveryAddress.CountryCode,
		"count":    len(quotes),
	}).Info("Retrieved SendCloud shipping methods")
	return quotes, nil
}

// Book announces one SendCloud parcel per manifest line; the resulting
// parcel ids and tracking numbers are joined into composite values.
func (c *SendCloudClient) Book(ctx context.Context, req *BookingRequest) (*model.BookingResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionBook(c.Name())

	contact := req.DeliveryContact
	if contact == nil {
		contact = &model.Contact{}
	}
	address := req.DeliveryAddress

	parcels := make([]sendCloudParcel, 0, len(req.Parcels))
	for i, p := range req.Parcels {
		reference := fmt.Sprintf("%s-%d", req.Shipment, i+1)
		parcels = append(parcels, sendCloudParcel{
			Name:              contact.FullName(),
			CompanyName:       req.deliveryCompany(),
			Address:           address.AddressLine1,
			Address2:          address.AddressLine2,
			City:              address.City,
			PostalCode:        address.Pincode,
			Telephone:         contact.Phone,
			RequestLabel:      true,
			Email:             contact.Email,
			Data:              []any{},
			Country:           address.CountryCode,
			Shipment:          sendCloudShipmentRef{ID: req.Quote.ServiceID},
			OrderNumber:       reference,
			ExternalReference: reference,
			Weight:            p.Weight,
			ParcelItems: []sendCloudParcelItem{{
				Description: req.DescriptionOfContent,
				Quantity:    p.Count,
				Weight:      p.Weight,
				Value:       json.Number(req.ValueOfGoods.String()),
			}},
		})
	}

	data, err := c.http.post(ctx, action, "/parcels?errors=verbose", sendCloudParcelsRequest{Parcels: parcels})
	if err != nil {
		return nil, err
	}

	var resp sendCloudParcelsResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if len(resp.FailedParcels) > 0 {
		return nil, c.http.upstreamErr(action, 0, string(resp.FailedParcels[0].Errors), nil)
	}
	if len(resp.Parcels) == 0 {
		return nil, c.http.upstreamErr(action, 0, "response has no parcels", nil)
	}

	ids := make([]string, 0, len(resp.Parcels))
	awbs := make([]string, 0, len(resp.Parcels))
	for _, p := range resp.Parcels {
		ids = append(ids, string(p.ID))
		awbs = append(awbs, p.TrackingNumber)
	}

	result := &model.BookingResult{
		ServiceProvider: c.Name(),
		ShipmentID:      model.JoinComposite(ids),
		Carrier:         req.Quote.Carrier,
		CarrierService:  req.Quote.ServiceName,
		ShipmentAmount:  req.Quote.TotalPrice,
		AWBNumber:       model.JoinComposite(awbs),
	}

	c.logger.WithFields(logrus.Fields{
		"function":    "Book",
		"shipment":    req.Shipment,
		"shipment_id": result.ShipmentID,
	}).Info("Created SendCloud parcels")
	return result, nil
}

// FetchLabel returns one printer label URL per sub-parcel
func (c *SendCloudClient) FetchLabel(ctx context.Context, shipmentID string) (*model.Label, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionLabel(c.Name())

	var urls []string
	for _, id := range model.SplitComposite(shipmentID) {
		data, err := c.http.get(ctx, action, "/labels/"+url.PathEscape(id))
		if err != nil {
			return nil, err
		}
		var resp sendCloudLabelResponse
		if err := c.http.decode(action, data, &resp); err != nil {
			return nil, err
		}
		if resp.Label == nil {
			return nil, c.http.upstreamErr(action, 0, "response has no label for parcel "+id, nil)
		}
		urls = append(urls, resp.Label.LabelPrinter)
	}

	if len(urls) == 0 {
		return nil, c.http.upstreamErr(action, 0,
			fmt.Sprintf("label not found, make sure shipment %s exists and is complete on SendCloud", shipmentID), nil)
	}
	return &model.Label{ServiceProvider: c.Name(), URLs: urls}, nil
}

// FetchTracking queries every sub-parcel and joins the results in order
func (c *SendCloudClient) FetchTracking(ctx context.Context, shipmentID string) (*model.TrackingRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionTracking(c.Name())

	ids := model.SplitComposite(shipmentID)
	if len(ids) == 0 {
		return nil, nil
	}

	var awbs, statuses, infos, urls []string
	for _, id := range ids {
		data, err := c.http.get(ctx, action, "/parcels/"+url.PathEscape(id))
		if err != nil {
			return nil, err
		}
		var resp sendCloudParcelResponse
		if err := c.http.decode(action, data, &resp); err != nil {
			return nil, err
		}
		if resp.Parcel == nil {
			return nil, c.http.upstreamErr(action, 0, "response has no parcel "+id, nil)
		}
		p := resp.Parcel
		awbs = append(awbs, p.TrackingNumber)
		statuses = append(statuses, sendCloudStatus(p.Status.Message))
		infos = append(infos, p.Status.Message)
		urls = append(urls, p.TrackingURL)
	}

	return &model.TrackingRecord{
		AWBNumber:          model.JoinComposite(awbs),
		TrackingStatus:     model.JoinComposite(statuses),
		TrackingStatusInfo: model.JoinComposite(infos),
		TrackingURL:        model.JoinComposite(urls),
	}, nil
}

// sendCloudStatus maps SendCloud's status message onto a coarse state
func sendCloudStatus(message string) string {
	m := strings.ToLower(message)
	return coarseStatus(
		m == "delivered",
		strings.HasPrefix(m, "returned"),
		strings.Contains(m, "lost"),
	)
}
