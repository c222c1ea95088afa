package model

import "strings"

// Coarse tracking states written to Shipment.tracking_status
const (
	TrackingInProgress = "In Progress"
	TrackingDelivered  = "Delivered"
	TrackingReturned   = "Returned"
	TrackingLost       = "Lost"
)

// ShipmentStatusBooked is set on a Shipment once a carrier booking succeeded
const ShipmentStatusBooked = "Booked"

// CompositeSeparator joins per-parcel values of multi-parcel bookings
const CompositeSeparator = ", "

// TrackingRecord is the provider-independent tracking result
type TrackingRecord struct {
	AWBNumber          string `json:"awb_number"`
	TrackingStatus     string `json:"tracking_status"`
	TrackingStatusInfo string `json:"tracking_status_info"`
	TrackingURL        string `json:"tracking_url"`
	// Carrier is used to render TrackingURL when the provider gives none.
	Carrier string `json:"carrier,omitempty"`
}

// Fields returns the Shipment columns updated from a tracking record
func (t *TrackingRecord) Fields() map[string]any {
	return map[string]any{
		"awb_number":           t.AWBNumber,
		"tracking_status":      t.TrackingStatus,
		"tracking_status_info": t.TrackingStatusInfo,
		"tracking_url":         t.TrackingURL,
	}
}

// DeliveryNoteFields returns the Delivery Note columns mirrored from a tracking record
func (t *TrackingRecord) DeliveryNoteFields() map[string]any {
	return map[string]any{
		"tracking_number":      t.AWBNumber,
		"tracking_url":         t.TrackingURL,
		"tracking_status":      t.TrackingStatus,
		"tracking_status_info": t.TrackingStatusInfo,
	}
}

// SplitComposite splits a comma-joined multi-parcel shipment id
func SplitComposite(id string) []string {
	parts := strings.Split(id, CompositeSeparator)
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// JoinComposite joins per-parcel values in input order
func JoinComposite(values []string) string {
	return strings.Join(values, CompositeSeparator)
}
