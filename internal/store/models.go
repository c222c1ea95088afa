package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is an ERP postal address
type Address struct {
	Name         string `gorm:"primaryKey"`
	AddressTitle string
	AddressLine1 string `gorm:"column:address_line1"`
	AddressLine2 string `gorm:"column:address_line2"`
	City         string
	Pincode      string
	Country      string
}

// Country maps a country name to its ISO code
type Country struct {
	Name string `gorm:"primaryKey"`
	Code string
}

// Contact is an ERP contact person
type Contact struct {
	Name      string `gorm:"primaryKey"`
	FirstName string
	LastName  string
	EmailID   string `gorm:"column:email_id"`
	Phone     string
	MobileNo  string
	Gender    string
}

// User is an ERP user; company-side contacts are read from it
type User struct {
	Name      string `gorm:"primaryKey"`
	FirstName string
	LastName  string
	Email     string
	Phone     string
	MobileNo  string
	Gender    string
}

type Customer struct {
	Name         string `gorm:"primaryKey"`
	CustomerName string
}

type Supplier struct {
	Name         string `gorm:"primaryKey"`
	SupplierName string
}

type Company struct {
	Name        string `gorm:"primaryKey"`
	CompanyName string
}

// Shipment holds the booking and tracking state of one shipment
type Shipment struct {
	Name             string `gorm:"primaryKey"`
	DocStatus        int    `gorm:"column:docstatus;index"`
	Status           string `gorm:"index"`
	DeliveryCustomer string
	DeliverySupplier string
	DeliveryCompany  string

	ServiceProvider    string
	Carrier            string
	CarrierService     string
	ShipmentID         string          `gorm:"column:shipment_id"`
	ShipmentAmount     decimal.Decimal `gorm:"type:decimal(18,2)"`
	AWBNumber          string          `gorm:"column:awb_number"`
	TrackingStatus     string          `gorm:"column:tracking_status"`
	TrackingStatusInfo string          `gorm:"column:tracking_status_info"`
	TrackingURL        string          `gorm:"column:tracking_url"`

	DeliveryNotes []ShipmentDeliveryNote `gorm:"foreignKey:Parent;references:Name"`

	UpdatedAt time.Time
}

// ShipmentDeliveryNote links a Shipment to one of its Delivery Notes
type ShipmentDeliveryNote struct {
	ID           uint   `gorm:"primaryKey"`
	Parent       string `gorm:"index"`
	DeliveryNote string
}

// DeliveryNote carries the shipping fields mirrored from its Shipment
type DeliveryNote struct {
	Name               string `gorm:"primaryKey"`
	DeliveryType       string
	ParcelService      string
	ParcelServiceType  string
	TrackingNumber     string
	TrackingURL        string `gorm:"column:tracking_url"`
	TrackingStatus     string
	TrackingStatusInfo string
}

// ParcelService is a carrier and its tracking URL template
type ParcelService struct {
	Name         string `gorm:"primaryKey"`
	URLReference string `gorm:"column:url_reference"`
}

// ParcelServiceType is a canonical carrier service
type ParcelServiceType struct {
	Name                        string `gorm:"primaryKey"`
	ParcelService               string `gorm:"index"`
	ShowInPreferredServicesList bool

	Aliases []ParcelServiceTypeAlias `gorm:"foreignKey:Parent;references:Name"`
}

// ParcelServiceTypeAlias maps a carrier's own service label to a ParcelServiceType
type ParcelServiceTypeAlias struct {
	ID            uint   `gorm:"primaryKey"`
	Parent        string `gorm:"uniqueIndex:idx_alias_parent"`
	ParcelService string `gorm:"index"`
	Alias         string `gorm:"uniqueIndex:idx_alias_parent"`
}

// ErrorLog stores the full text of a carrier failure shown to the user as an alert
type ErrorLog struct {
	Name      string `gorm:"primaryKey"`
	Method    string
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
}

// AllModels lists every table managed by Migrate
func AllModels() []any {
	return []any{
		&Address{},
		&Country{},
		&Contact{},
		&User{},
		&Customer{},
		&Supplier{},
		&Company{},
		&Shipment{},
		&ShipmentDeliveryNote{},
		&DeliveryNote{},
		&ParcelService{},
		&ParcelServiceType{},
		&ParcelServiceTypeAlias{},
		&ErrorLog{},
	}
}
