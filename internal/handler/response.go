package handler

import (
	"erp-shipping/internal/model"
	"erp-shipping/internal/shipping"
)

// Error codes returned in ErrorResponse
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeValidation      = "VALIDATION_ERROR"
	CodeCarrierConfig   = "CARRIER_NOT_CONFIGURED"
	CodeUnknownProvider = "UNKNOWN_PROVIDER"
	CodeNotFound        = "NOT_FOUND"
	CodeCanceled        = "CANCELED"
	CodeInternal        = "INTERNAL_ERROR"
)

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// AlertResponse carries the alert of a failed carrier call
type AlertResponse struct {
	Alert *shipping.Alert `json:"alert"`
}

// RatesResponse lists the available quotes and the carriers that failed
type RatesResponse struct {
	Quotes []model.Quote    `json:"quotes"`
	Alerts []shipping.Alert `json:"alerts,omitempty"`
}

// LabelQuery selects the label to print
type LabelQuery struct {
	ServiceProvider string `form:"service_provider" binding:"required"`
	ShipmentID      string `form:"shipment_id" binding:"required"`
}

// TrackingResponse reports the written tracking record. Updated is false
// when the carrier had no tracking data yet.
type TrackingResponse struct {
	Updated  bool                  `json:"updated"`
	Tracking *model.TrackingRecord `json:"tracking,omitempty"`
}
