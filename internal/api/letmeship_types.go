package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LetMeShip request payload. Both /available and /shipments take the same
// body; booking adds service, shipmentNotification and labelEmail.
type letMeShipRequest struct {
	PickupInfo           letMeShipPartyInfo             `json:"pickupInfo"`
	DeliveryInfo         letMeShipPartyInfo             `json:"deliveryInfo"`
	ShipmentDetails      letMeShipShipmentDetails       `json:"shipmentDetails"`
	Service              *letMeShipServiceRequest       `json:"service,omitempty"`
	ShipmentNotification *letMeShipShipmentNotification `json:"shipmentNotification,omitempty"`
	LabelEmail           bool                           `json:"labelEmail,omitempty"`
}

type letMeShipPartyInfo struct {
	Address letMeShipAddress `json:"address"`
	Company string           `json:"company"`
	Person  letMeShipPerson  `json:"person"`
	Phone   letMeShipPhone   `json:"phone"`
	Email   string           `json:"email"`
}

type letMeShipAddress struct {
	CountryCode  string `json:"countryCode"`
	Zip          string `json:"zip"`
	City         string `json:"city"`
	Street       string `json:"street"`
	AddressInfo1 string `json:"addressInfo1"`
	HouseNo      string `json:"houseNo"`
}

type letMeShipPerson struct {
	Title     string `json:"title"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

type letMeShipPhone struct {
	PhoneNumber       string `json:"phoneNumber"`
	PhoneNumberPrefix string `json:"phoneNumberPrefix"`
}

type letMeShipShipmentDetails struct {
	ContentDescription string                    `json:"contentDescription"`
	ShipmentType       string                    `json:"shipmentType"`
	ShipmentSettings   letMeShipShipmentSettings `json:"shipmentSettings"`
	GoodsValue         json.Number               `json:"goodsValue"`
	ParcelList         []letMeShipParcel         `json:"parcelList"`
	PickupInterval     letMeShipPickupInterval   `json:"pickupInterval"`
}

type letMeShipShipmentSettings struct {
	SaturdayDelivery bool `json:"saturdayDelivery"`
	DDP              bool `json:"ddp"`
	Insurance        bool `json:"insurance"`
	PickupOrder      bool `json:"pickupOrder"`
	PickupTailLift   bool `json:"pickupTailLift"`
	DeliveryTailLift bool `json:"deliveryTailLift"`
	HolidayDelivery  bool `json:"holidayDelivery"`
}

type letMeShipParcel struct {
	Height             float64 `json:"height"`
	Width              float64 `json:"width"`
	Length             float64 `json:"length"`
	Weight             float64 `json:"weight"`
	Quantity           int     `json:"quantity"`
	ContentDescription string  `json:"contentDescription"`
}

type letMeShipPickupInterval struct {
	Date string `json:"date"`
}

type letMeShipServiceRequest struct {
	BaseServiceDetails  letMeShipBaseServiceDetails `json:"baseServiceDetails"`
	SupportedExWorkType []string                    `json:"supportedExWorkType"`
	Messages            []string                    `json:"messages"`
	Description         string                      `json:"description"`
	ServiceInfo         string                      `json:"serviceInfo"`
}

type letMeShipBaseServiceDetails struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Carrier   string          `json:"carrier"`
	PriceInfo json.RawMessage `json:"priceInfo"`
}

type letMeShipShipmentNotification struct {
	TrackingNotification  letMeShipTrackingNotification  `json:"trackingNotification"`
	RecipientNotification letMeShipRecipientNotification `json:"recipientNotification"`
}

type letMeShipTrackingNotification struct {
	DeliveryNotification bool     `json:"deliveryNotification"`
	ProblemNotification  bool     `json:"problemNotification"`
	Emails               []string `json:"emails"`
	NotificationText     string   `json:"notificationText"`
}

type letMeShipRecipientNotification struct {
	NotificationText string   `json:"notificationText"`
	Emails           []string `json:"emails"`
}

// Responses

type letMeShipAvailableResponse struct {
	ServiceList *[]struct {
		BaseServiceDetails letMeShipBaseServiceDetails `json:"baseServiceDetails"`
	} `json:"serviceList"`
	Message string `json:"message"`
}

type letMeShipPriceInfo struct {
	NetPrice   decimal.Decimal `json:"netPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	RealWeight decimal.Decimal `json:"realWeight"`
}

type letMeShipCreateResponse struct {
	ShipmentID flexID `json:"shipmentId"`
	Service    struct {
		PriceInfo letMeShipPriceInfo `json:"priceInfo"`
	} `json:"service"`
	Message string `json:"message"`
}

type letMeShipShipmentResponse struct {
	TrackingData *struct {
		ParcelList []struct {
			AWBNumber string `json:"awbNumber"`
		} `json:"parcelList"`
	} `json:"trackingData"`
}

type letMeShipDocumentsResponse struct {
	Documents *[]struct {
		Data string `json:"data"`
	} `json:"documents"`
	Message string `json:"message"`
}

type letMeShipTrackingResponse struct {
	AWBNumber         string `json:"awbNumber"`
	LMSTrackingStatus string `json:"lmsTrackingStatus"`
	Carrier           string `json:"carrier"`
	Message           string `json:"message"`
}
