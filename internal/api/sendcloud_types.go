package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type sendCloudShippingMethodsResponse struct {
	ShippingMethods *[]struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Carrier   string `json:"carrier"`
		Countries []struct {
			ISO2  string          `json:"iso_2"`
			Price decimal.Decimal `json:"price"`
		} `json:"countries"`
	} `json:"shipping_methods"`
}

type sendCloudParcelsRequest struct {
	Parcels []sendCloudParcel `json:"parcels"`
}

type sendCloudParcel struct {
	Name              string                `json:"name"`
	CompanyName       string                `json:"company_name"`
	Address           string                `json:"address"`
	Address2          string                `json:"address_2"`
	City              string                `json:"city"`
	PostalCode        string                `json:"postal_code"`
	Telephone         string                `json:"telephone"`
	RequestLabel      bool                  `json:"request_label"`
	Email             string                `json:"email"`
	Data              []any                 `json:"data"`
	Country           string                `json:"country"`
	Shipment          sendCloudShipmentRef  `json:"shipment"`
	OrderNumber       string                `json:"order_number"`
	ExternalReference string                `json:"external_reference"`
	Weight            float64               `json:"weight"`
	ParcelItems       []sendCloudParcelItem `json:"parcel_items"`
}

type sendCloudShipmentRef struct {
	ID int64 `json:"id"`
}

type sendCloudParcelItem struct {
	Description string      `json:"description"`
	Quantity    int         `json:"quantity"`
	Weight      float64     `json:"weight"`
	Value       json.Number `json:"value"`
}

type sendCloudParcelsResponse struct {
	Parcels []struct {
		ID             flexID `json:"id"`
		TrackingNumber string `json:"tracking_number"`
	} `json:"parcels"`
	FailedParcels []struct {
		Errors json.RawMessage `json:"errors"`
	} `json:"failed_parcels"`
}

type sendCloudLabelResponse struct {
	Label *struct {
		LabelPrinter string `json:"label_printer"`
	} `json:"label"`
}

type sendCloudParcelResponse struct {
	Parcel *struct {
		TrackingURL    string `json:"tracking_url"`
		TrackingNumber string `json:"tracking_number"`
		Status         struct {
			ID      int    `json:"id"`
			Message string `json:"message"`
		} `json:"status"`
	} `json:"parcel"`
}
