package shipping

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"erp-shipping/internal/api"
	"erp-shipping/internal/model"
	"erp-shipping/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the part of the ERP document store used by the orchestrator
type Store interface {
	GetAddress(ctx context.Context, name string) (*store.Address, error)
	GetCountryCode(ctx context.Context, country string) (string, error)
	GetContact(ctx context.Context, name string) (*store.Contact, error)
	GetUser(ctx context.Context, name string) (*store.User, error)
	GetShipment(ctx context.Context, name string) (*store.Shipment, error)
	DeliveryCompanyName(ctx context.Context, shipment string) (string, error)
	SetShipmentFields(ctx context.Context, name string, fields map[string]any) error
	SetDeliveryNoteFields(ctx context.Context, name string, fields map[string]any) error
	MatchParcelServiceType(ctx context.Context, serviceType, parcelService string) (string, bool, error)
	TrackingURLTemplate(ctx context.Context, parcelService string) (string, error)
	LogError(ctx context.Context, method, text string) (string, error)
}

// RegistryFunc returns a registry built from the current configuration
type RegistryFunc func() *api.Registry

// RatesRequest describes the shipment to price
type RatesRequest struct {
	PickupFromType       string          `json:"pickup_from_type" binding:"required"`
	DeliveryToType       string          `json:"delivery_to_type" binding:"required"`
	PickupAddressName    string          `json:"pickup_address_name" binding:"required"`
	DeliveryAddressName  string          `json:"delivery_address_name" binding:"required"`
	PickupContactName    string          `json:"pickup_contact_name"`
	DeliveryContactName  string          `json:"delivery_contact_name"`
	Parcels              []model.Parcel  `json:"shipment_parcel" binding:"required,min=1,dive"`
	DescriptionOfContent string          `json:"description_of_content"`
	PickupDate           string          `json:"pickup_date" binding:"required,datetime=2006-01-02"`
	ValueOfGoods         decimal.Decimal `json:"value_of_goods"`
}

// BookRequest books the selected quote for a Shipment
type BookRequest struct {
	RatesRequest
	Shipment      string      `json:"-"`
	Service       model.Quote `json:"service_data"`
	DeliveryNotes []string    `json:"delivery_notes"`
}

// TrackingRequest refreshes the tracking state of a booked Shipment
type TrackingRequest struct {
	Shipment        string   `json:"-"`
	ServiceProvider string   `json:"service_provider"`
	ShipmentID      string   `json:"shipment_id"`
	DeliveryNotes   []string `json:"delivery_notes"`
}

// Service runs the shipping workflows against the carriers and the ERP store
type Service struct {
	store    Store
	registry RegistryFunc
	logger   *logrus.Logger
}

// NewService creates a new shipping service
func NewService(st Store, registry RegistryFunc, logger *logrus.Logger) *Service {
	return &Service{
		store:    st,
		registry: registry,
		logger:   logger,
	}
}

// FetchRates collects the quotes of every enabled carrier, cheapest first.
// A carrier that fails contributes no quotes and raises an alert instead.
func (s *Service) FetchRates(ctx context.Context, req *RatesRequest) ([]model.Quote, []Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"function":         "FetchRates",
		"pickup_address":   req.PickupAddressName,
		"delivery_address": req.DeliveryAddressName,
	})
	start := time.Now()

	pickup, delivery, err := s.loadAddresses(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	reg := s.registry()
	qr := &api.QuoteRequest{
		PickupAddress:        pickup,
		DeliveryAddress:      delivery,
		Parcels:              req.Parcels,
		DescriptionOfContent: req.DescriptionOfContent,
		PickupDate:           req.PickupDate,
		ValueOfGoods:         req.ValueOfGoods,
	}

	var (
		quotes []model.Quote
		alerts []Alert
	)
	collect := func(name string, q *api.QuoteRequest, enrich func(model.Quote) (string, string)) error {
		got, alert := s.quote(ctx, reg, name, q)
		if alert != nil {
			alerts = append(alerts, *alert)
		}
		if enrich != nil {
			if err := s.enrich(ctx, got, enrich); err != nil {
				return err
			}
		}
		quotes = append(quotes, got...)
		return nil
	}

	// LetMeShip needs both contacts, which are only loaded when it is used
	if p, err := reg.Get(model.ProviderLetMeShip); err == nil && p.Enabled() {
		pickupContact, deliveryContact, err := s.loadContacts(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		lq := *qr
		lq.PickupContact = pickupContact
		lq.DeliveryContact = deliveryContact
		err = collect(model.ProviderLetMeShip, &lq, func(q model.Quote) (string, string) {
			return q.Carrier, q.CarrierName
		})
		if err != nil {
			return nil, nil, err
		}
	}

	err = collect(model.ProviderPacklink, qr, func(q model.Quote) (string, string) {
		return q.CarrierName, q.Carrier
	})
	if err != nil {
		return nil, nil, err
	}

	if req.PickupFromType == PartyCompany {
		if err := collect(model.ProviderSendCloud, qr, nil); err != nil {
			return nil, nil, err
		}
	}

	slices.SortStableFunc(quotes, func(a, b model.Quote) int {
		return a.TotalPrice.Cmp(b.TotalPrice)
	})

	log.WithFields(logrus.Fields{
		"quotes":  len(quotes),
		"alerts":  len(alerts),
		"elapsed": time.Since(start),
	}).Info("Fetched shipping rates")
	return quotes, alerts, nil
}

// quote asks one carrier for quotes. Configuration errors mean the carrier
// is switched off and yield nothing; upstream errors yield an alert.
func (s *Service) quote(ctx context.Context, reg *api.Registry, name string, req *api.QuoteRequest) ([]model.Quote, *Alert) {
	p, err := reg.Get(name)
	if err != nil {
		return nil, nil
	}

	quotes, err := p.Quote(ctx, req)
	if err != nil {
		if api.IsConfigError(err) {
			s.logger.WithFields(logrus.Fields{
				"function": "quote",
				"provider": name,
			}).WithError(err).Debug("Skipping carrier")
			return nil, nil
		}
		return nil, s.alert(ctx, err)
	}
	return quotes, nil
}

// enrich attaches the canonical service name and preferred flag from the
// Parcel Service Type alias table.
func (s *Service) enrich(ctx context.Context, quotes []model.Quote, keys func(model.Quote) (string, string)) error {
	for i := range quotes {
		serviceType, parcelService := keys(quotes[i])
		name, preferred, err := s.store.MatchParcelServiceType(ctx, serviceType, parcelService)
		if err != nil {
			return err
		}
		quotes[i].ServiceName = name
		quotes[i].IsPreferred = preferred
	}
	return nil
}

// CreateShipment books the selected quote and writes the booking onto the
// Shipment and its Delivery Notes. An upstream failure returns an alert and
// no result; a switched off or misconfigured carrier is an error. When the
// booking cannot be saved the result is returned together with the error.
func (s *Service) CreateShipment(ctx context.Context, req *BookRequest) (*model.BookingResult, *Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"function": "CreateShipment",
		"shipment": req.Shipment,
		"provider": req.Service.ServiceProvider,
	})

	p, err := s.registry().Get(req.Service.ServiceProvider)
	if err != nil {
		return nil, nil, err
	}

	pickup, delivery, err := s.loadAddresses(ctx, &req.RatesRequest)
	if err != nil {
		return nil, nil, err
	}
	companyName, err := s.store.DeliveryCompanyName(ctx, req.Shipment)
	if err != nil {
		return nil, nil, err
	}
	pickupContact, deliveryContact, err := s.loadContacts(ctx, &req.RatesRequest)
	if err != nil {
		return nil, nil, err
	}

	result, err := p.Book(ctx, &api.BookingRequest{
		QuoteRequest: api.QuoteRequest{
			PickupAddress:        pickup,
			DeliveryAddress:      delivery,
			PickupContact:        pickupContact,
			DeliveryContact:      deliveryContact,
			Parcels:              req.Parcels,
			DescriptionOfContent: req.DescriptionOfContent,
			PickupDate:           req.PickupDate,
			ValueOfGoods:         req.ValueOfGoods,
		},
		Shipment:            req.Shipment,
		DeliveryCompanyName: companyName,
		Quote:               req.Service,
	})
	if err != nil {
		if api.IsConfigError(err) {
			return nil, nil, err
		}
		return nil, s.alert(ctx, err), nil
	}

	if err := s.store.SetShipmentFields(ctx, req.Shipment, result.Fields()); err != nil {
		// The carrier already holds the booking; keep its id where it can be found.
		err = fmt.Errorf("%s booked shipment %s (awb %q) but saving %s failed: %w",
			result.ServiceProvider, result.ShipmentID, result.AWBNumber, req.Shipment, err)
		log.WithError(err).Error("Failed to save booking")
		if _, logErr := s.store.LogError(ctx, "saving booked Shipment", err.Error()); logErr != nil {
			log.WithError(logErr).Error("Failed to write error log")
		}
		return result, nil, err
	}
	s.updateDeliveryNotes(ctx, req.DeliveryNotes, result.DeliveryNoteFields())

	log.WithFields(logrus.Fields{
		"shipment_id": result.ShipmentID,
		"awb_number":  result.AWBNumber,
	}).Info("Shipment booked")
	return result, nil, nil
}

// PrintLabel fetches the shipping label of a booked shipment
func (s *Service) PrintLabel(ctx context.Context, provider, shipmentID string) (*model.Label, *Alert, error) {
	p, err := s.registry().Get(provider)
	if err != nil {
		return nil, nil, err
	}

	label, err := p.FetchLabel(ctx, shipmentID)
	if err != nil {
		if api.IsConfigError(err) {
			return nil, nil, err
		}
		return nil, s.alert(ctx, err), nil
	}
	return label, nil, nil
}

// UpdateTracking polls the carrier and writes the tracking fields onto the
// Shipment and its Delivery Notes. A nil record means the carrier had no
// tracking data and nothing was written.
func (s *Service) UpdateTracking(ctx context.Context, req *TrackingRequest) (*model.TrackingRecord, *Alert, error) {
	log := s.logger.WithFields(logrus.Fields{
		"function":    "UpdateTracking",
		"shipment":    req.Shipment,
		"provider":    req.ServiceProvider,
		"shipment_id": req.ShipmentID,
	})

	p, err := s.registry().Get(req.ServiceProvider)
	if err != nil {
		return nil, nil, err
	}

	record, err := p.FetchTracking(ctx, req.ShipmentID)
	if err != nil {
		if api.IsConfigError(err) {
			return nil, nil, err
		}
		return nil, s.alert(ctx, err), nil
	}
	if record == nil {
		log.Debug("No tracking data yet")
		return nil, nil, nil
	}

	if record.TrackingURL == "" && record.Carrier != "" {
		record.TrackingURL = s.trackingURL(ctx, record.Carrier, record.AWBNumber)
	}

	if err := s.store.SetShipmentFields(ctx, req.Shipment, record.Fields()); err != nil {
		return nil, nil, err
	}
	s.updateDeliveryNotes(ctx, req.DeliveryNotes, record.DeliveryNoteFields())

	log.WithFields(logrus.Fields{
		"tracking_status": record.TrackingStatus,
	}).Info("Tracking updated")
	return record, nil, nil
}

// TrackShipment refreshes tracking for a stored Shipment using its own
// provider, carrier id and linked Delivery Notes.
func (s *Service) TrackShipment(ctx context.Context, shipment string) (*model.TrackingRecord, *Alert, error) {
	sh, err := s.store.GetShipment(ctx, shipment)
	if err != nil {
		return nil, nil, err
	}

	notes := make([]string, 0, len(sh.DeliveryNotes))
	for _, dn := range sh.DeliveryNotes {
		notes = append(notes, dn.DeliveryNote)
	}
	return s.UpdateTracking(ctx, &TrackingRequest{
		Shipment:        sh.Name,
		ServiceProvider: sh.ServiceProvider,
		ShipmentID:      sh.ShipmentID,
		DeliveryNotes:   notes,
	})
}

func (s *Service) trackingURL(ctx context.Context, carrier, trackingNumber string) string {
	log := s.logger.WithFields(logrus.Fields{
		"function": "trackingURL",
		"carrier":  carrier,
	})

	urlReference, err := s.store.TrackingURLTemplate(ctx, carrier)
	if err != nil {
		log.WithError(err).Warn("Failed to read tracking url template")
		return ""
	}
	url, err := RenderTrackingURL(urlReference, trackingNumber)
	if err != nil {
		log.WithError(err).Warn("Failed to render tracking url")
		return ""
	}
	return url
}

// updateDeliveryNotes mirrors fields onto each distinct Delivery Note. A
// failing note is logged and skipped.
func (s *Service) updateDeliveryNotes(ctx context.Context, notes []string, fields map[string]any) {
	seen := make(map[string]struct{}, len(notes))
	for _, name := range notes {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if err := s.store.SetDeliveryNoteFields(ctx, name, fields); err != nil {
			s.logger.WithFields(logrus.Fields{
				"function":      "updateDeliveryNotes",
				"delivery_note": name,
			}).WithError(err).Warn("Failed to update delivery note")
		}
	}
}

// alert records a carrier failure in the Error Log and returns the alert
// to show the user.
func (s *Service) alert(ctx context.Context, err error) *Alert {
	action := "contacting the carrier"
	var upstream *api.UpstreamError
	if errors.As(err, &upstream) {
		action = upstream.Action
	}

	log := s.logger.WithFields(logrus.Fields{
		"function": "alert",
		"action":   action,
	})
	log.WithError(err).Error("Carrier request failed")

	name, logErr := s.store.LogError(ctx, action, err.Error())
	if logErr != nil {
		log.WithError(logErr).Error("Failed to write error log")
	}
	return newAlert(action, name)
}
