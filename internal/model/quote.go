package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Provider names, used as the dispatch tag on quotes and shipments
const (
	ProviderLetMeShip = "LetMeShip"
	ProviderPacklink  = "Packlink"
	ProviderSendCloud = "SendCloud"
)

// Quote is a normalized carrier rate offer
type Quote struct {
	ServiceProvider string          `json:"service_provider" binding:"required"`
	ServiceID       int64           `json:"service_id"`
	Carrier         string          `json:"carrier"`
	CarrierName     string          `json:"carrier_name"`
	ServiceName     string          `json:"service_name"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	IsPreferred     bool            `json:"is_preferred"`

	// Packlink books at actual_price while quoting base price
	ActualPrice decimal.Decimal `json:"actual_price"`
	// LetMeShip only
	RealWeight decimal.Decimal `json:"real_weight"`

	// Provider payloads needed later to book
	PriceInfo      json.RawMessage `json:"price_info,omitempty"`
	AvailableDates json.RawMessage `json:"available_dates,omitempty"`
}

// BookingResult is what a successful carrier booking writes onto the Shipment
type BookingResult struct {
	ServiceProvider string          `json:"service_provider"`
	ShipmentID      string          `json:"shipment_id"`
	Carrier         string          `json:"carrier"`
	CarrierService  string          `json:"carrier_service"`
	ShipmentAmount  decimal.Decimal `json:"shipment_amount"`
	AWBNumber       string          `json:"awb_number"`
}

// Fields returns the Shipment columns written after booking
func (b *BookingResult) Fields() map[string]any {
	return map[string]any{
		"service_provider": b.ServiceProvider,
		"carrier":          b.Carrier,
		"carrier_service":  b.CarrierService,
		"shipment_id":      b.ShipmentID,
		"shipment_amount":  b.ShipmentAmount,
		"awb_number":       b.AWBNumber,
		"status":           ShipmentStatusBooked,
	}
}

// DeliveryNoteFields returns the Delivery Note columns mirrored after booking
func (b *BookingResult) DeliveryNoteFields() map[string]any {
	return map[string]any{
		"delivery_type":       "Parcel Service",
		"parcel_service":      b.Carrier,
		"parcel_service_type": b.CarrierService,
	}
}

// Label is a printable shipping label
type Label struct {
	ServiceProvider string   `json:"service_provider"`
	Document        []byte   `json:"document,omitempty"`
	URLs            []string `json:"urls,omitempty"`
}
