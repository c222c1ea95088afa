package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type packlinkService struct {
	ID          int64  `json:"id"`
	CarrierName string `json:"carrier_name"`
	Name        string `json:"name"`
	Price       struct {
		BasePrice  decimal.Decimal `json:"base_price"`
		TotalPrice decimal.Decimal `json:"total_price"`
	} `json:"price"`
	AvailableDates json.RawMessage `json:"available_dates"`
}

type packlinkPackage struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
	Weight float64 `json:"weight"`
}

type packlinkParty struct {
	City    string `json:"city"`
	Company string `json:"company"`
	Country string `json:"country"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	State   string `json:"state"`
	Street1 string `json:"street1"`
	Street2 string `json:"street2"`
	Surname string `json:"surname"`
	ZipCode string `json:"zip_code"`
}

type packlinkShipmentRequest struct {
	AdditionalData    packlinkAdditionalData `json:"additional_data"`
	CollectionDate    string                 `json:"collection_date"`
	CollectionTime    string                 `json:"collection_time"`
	Content           string                 `json:"content"`
	ContentValue      json.Number            `json:"contentvalue"`
	ContentSecondHand bool                   `json:"content_second_hand"`
	From              packlinkParty          `json:"from"`
	Insurance         packlinkInsurance      `json:"insurance"`
	Price             struct{}               `json:"price"`
	Packages          []packlinkPackage      `json:"packages"`
	ServiceID         int64                  `json:"service_id"`
	To                packlinkParty          `json:"to"`
}

type packlinkAdditionalData struct {
	PostalZoneIDFrom   string `json:"postal_zone_id_from"`
	PostalZoneNameFrom string `json:"postal_zone_name_from"`
	PostalZoneIDTo     string `json:"postal_zone_id_to"`
	PostalZoneNameTo   string `json:"postal_zone_name_to"`
}

type packlinkInsurance struct {
	Amount            int  `json:"amount"`
	InsuranceSelected bool `json:"insurance_selected"`
}

type packlinkShipmentResponse struct {
	Reference string `json:"reference"`
}

type packlinkTrackingResponse struct {
	Trackings *[]string `json:"trackings"`
	State     string    `json:"state"`
	Carrier   string    `json:"carrier"`
}
