package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"erp-shipping/config"
	"erp-shipping/internal/model"

	"github.com/sirupsen/logrus"
)

// letMeShipCompanyLimit is the maximum length of the company field
const letMeShipCompanyLimit = 30

// LetMeShipClient talks to the LetMeShip REST API
type LetMeShipClient struct {
	cfg    config.LetMeShipConfig
	http   *httpClient
	logger *logrus.Logger
}

// NewLetMeShipClient creates a new LetMeShip API client
func NewLetMeShipClient(cfg config.LetMeShipConfig, logger *logrus.Logger) *LetMeShipClient {
	c := &LetMeShipClient{cfg: cfg, logger: logger}
	c.http = newHTTPClient(model.ProviderLetMeShip, cfg.URL(), cfg.Timeout, logger, func(req *http.Request) {
		req.SetBasicAuth(cfg.APIID, cfg.APIPassword)
	})
	return c
}

// Name implements Provider
func (c *LetMeShipClient) Name() string { return model.ProviderLetMeShip }

// Enabled implements Provider
func (c *LetMeShipClient) Enabled() bool { return c.ready() == nil }

func (c *LetMeShipClient) ready() error {
	if !c.cfg.Enabled {
		return configErr(c.Name(), ErrProviderDisabled)
	}
	if c.cfg.APIID == "" || c.cfg.APIPassword == "" {
		return configErr(c.Name(), ErrMissingCredentials)
	}
	return nil
}

// Quote retrieves the available services for the shipment
func (c *LetMeShipClient) Quote(ctx context.Context, req *QuoteRequest) ([]model.Quote, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionQuote(c.Name())

	data, err := c.http.post(ctx, action, "/available", c.payload(req, req.DeliveryAddress.AddressTitle))
	if err != nil {
		return nil, err
	}

	var resp letMeShipAvailableResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.ServiceList == nil {
		return nil, c.http.upstreamErr(action, 0, resp.Message, nil)
	}

	quotes := make([]model.Quote, 0, len(*resp.ServiceList))
	for _, service := range *resp.ServiceList {
		details := service.BaseServiceDetails
		var price letMeShipPriceInfo
		if err := c.http.decode(action, details.PriceInfo, &price); err != nil {
			return nil, err
		}
		quotes = append(quotes, model.Quote{
			ServiceProvider: c.Name(),
			ServiceID:       details.ID,
			Carrier:         details.Carrier,
			CarrierName:     details.Name,
			TotalPrice:      price.NetPrice,
			RealWeight:      price.RealWeight,
			PriceInfo:       details.PriceInfo,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"function": "Quote",
		"provider": c.Name(),
		"count":    len(quotes),
	}).Info("Retrieved LetMeShip services")
	return quotes, nil
}

// Book creates the shipment and reads it back to obtain the AWB number,
// which the create call does not return.
func (c *LetMeShipClient) Book(ctx context.Context, req *BookingRequest) (*model.BookingResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionBook(c.Name())
	log := c.logger.WithFields(logrus.Fields{
		"function": "Book",
		"shipment": req.Shipment,
	})

	serviceName := req.Quote.ServiceName
	if serviceName == "" {
		serviceName = req.Quote.CarrierName
	}

	payload := c.payload(&req.QuoteRequest, req.deliveryCompany())
	payload.Service = &letMeShipServiceRequest{
		BaseServiceDetails: letMeShipBaseServiceDetails{
			ID:        req.Quote.ServiceID,
			Name:      serviceName,
			Carrier:   req.Quote.Carrier,
			PriceInfo: req.Quote.PriceInfo,
		},
		SupportedExWorkType: []string{},
		Messages:            []string{""},
	}
	payload.ShipmentNotification = &letMeShipShipmentNotification{
		TrackingNotification: letMeShipTrackingNotification{
			DeliveryNotification: true,
			ProblemNotification:  true,
			Emails:               []string{},
		},
		RecipientNotification: letMeShipRecipientNotification{
			Emails: []string{},
		},
	}
	payload.LabelEmail = true

	data, err := c.http.post(ctx, action, "/shipments", payload)
	if err != nil {
		return nil, err
	}

	var created letMeShipCreateResponse
	if err := c.http.decode(action, data, &created); err != nil {
		return nil, err
	}
	if created.ShipmentID == "" {
		return nil, c.http.upstreamErr(action, 0, created.Message, nil)
	}
	shipmentID := string(created.ShipmentID)

	data, err = c.http.get(ctx, action, "/shipments/"+url.PathEscape(shipmentID))
	if err != nil {
		return nil, err
	}
	var detail letMeShipShipmentResponse
	if err := c.http.decode(action, data, &detail); err != nil {
		return nil, err
	}

	awbNumber := ""
	if detail.TrackingData != nil {
		for _, parcel := range detail.TrackingData.ParcelList {
			if parcel.AWBNumber != "" {
				awbNumber = parcel.AWBNumber
				break
			}
		}
	}

	log.WithFields(logrus.Fields{
		"shipment_id": shipmentID,
		"awb_number":  awbNumber,
	}).Info("Created LetMeShip shipment")

	return &model.BookingResult{
		ServiceProvider: c.Name(),
		ShipmentID:      shipmentID,
		Carrier:         req.Quote.Carrier,
		CarrierService:  serviceName,
		ShipmentAmount:  created.Service.PriceInfo.TotalPrice,
		AWBNumber:       awbNumber,
	}, nil
}

// FetchLabel downloads the label document of a shipment
func (c *LetMeShipClient) FetchLabel(ctx context.Context, shipmentID string) (*model.Label, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionLabel(c.Name())

	data, err := c.http.get(ctx, action, fmt.Sprintf("/shipments/%s/documents?types=LABEL", url.PathEscape(shipmentID)))
	if err != nil {
		return nil, err
	}

	var resp letMeShipDocumentsResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.Documents == nil {
		return nil, c.http.upstreamErr(action, 0, resp.Message, nil)
	}

	for _, doc := range *resp.Documents {
		if doc.Data == "" {
			continue
		}
		document, err := base64.StdEncoding.DecodeString(doc.Data)
		if err != nil {
			return nil, c.http.upstreamErr(action, 0, "", fmt.Errorf("invalid label data: %w", err))
		}
		return &model.Label{ServiceProvider: c.Name(), Document: document}, nil
	}
	return nil, c.http.upstreamErr(action, 0, "label not found for shipment "+shipmentID, nil)
}

// FetchTracking returns the current tracking state of a shipment
func (c *LetMeShipClient) FetchTracking(ctx context.Context, shipmentID string) (*model.TrackingRecord, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	action := actionTracking(c.Name())

	data, err := c.http.get(ctx, action, "/tracking?shipmentid="+url.QueryEscape(shipmentID))
	if err != nil {
		return nil, err
	}

	var resp letMeShipTrackingResponse
	if err := c.http.decode(action, data, &resp); err != nil {
		return nil, err
	}
	if resp.AWBNumber == "" {
		if resp.Message != "" {
			return nil, c.http.upstreamErr(action, 0, resp.Message, nil)
		}
		return nil, nil
	}

	status := resp.LMSTrackingStatus
	return &model.TrackingRecord{
		AWBNumber: resp.AWBNumber,
		TrackingStatus: coarseStatus(
			strings.HasPrefix(status, "DELIVERED"),
			status == "RETURNED",
			status == "LOST",
		),
		TrackingStatusInfo: status,
		Carrier:            resp.Carrier,
	}, nil
}

// payload builds the request body shared by /available and /shipments
func (c *LetMeShipClient) payload(req *QuoteRequest, deliveryCompany string) *letMeShipRequest {
	deliveryAddr := *req.DeliveryAddress
	deliveryAddr.AddressTitle = deliveryCompany

	parcels := make([]letMeShipParcel, 0, len(req.Parcels))
	for _, p := range req.Parcels {
		parcels = append(parcels, letMeShipParcel{
			Height:             p.Height,
			Width:              p.Width,
			Length:             p.Length,
			Weight:             p.Weight,
			Quantity:           p.Count,
			ContentDescription: req.DescriptionOfContent,
		})
	}

	return &letMeShipRequest{
		PickupInfo:   letMeShipParty(req.PickupAddress, req.PickupContact),
		DeliveryInfo: letMeShipParty(&deliveryAddr, req.DeliveryContact),
		ShipmentDetails: letMeShipShipmentDetails{
			ContentDescription: req.DescriptionOfContent,
			ShipmentType:       "PARCEL",
			GoodsValue:         json.Number(req.ValueOfGoods.String()),
			ParcelList:         parcels,
			PickupInterval:     letMeShipPickupInterval{Date: req.PickupDate},
		},
	}
}

func letMeShipParty(address *model.Address, contact *model.Contact) letMeShipPartyInfo {
	if contact == nil {
		contact = &model.Contact{}
	}
	return letMeShipPartyInfo{
		Address: letMeShipAddress{
			CountryCode:  address.CountryCode,
			Zip:          address.Pincode,
			City:         address.City,
			Street:       address.AddressLine1,
			AddressInfo1: address.AddressLine2,
		},
		Company: address.TruncatedTitle(letMeShipCompanyLimit),
		Person: letMeShipPerson{
			Title:     contact.Salutation(),
			Firstname: contact.FirstName,
			Lastname:  contact.LastName,
		},
		Phone: letMeShipPhone{
			PhoneNumber:       contact.PhoneNumber(),
			PhoneNumberPrefix: contact.PhonePrefix(),
		},
		Email: contact.Email,
	}
}
