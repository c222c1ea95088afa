package model

import (
	"regexp"
	"strings"
)

// Address is a postal address loaded from the ERP for a single request
type Address struct {
	Name         string `json:"name"`
	AddressTitle string `json:"address_title"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
}

// TruncatedTitle returns the address title cut to max characters
func (a *Address) TruncatedTitle(max int) string {
	r := []rune(a.AddressTitle)
	if len(r) > max {
		return string(r[:max])
	}
	return a.AddressTitle
}

// Contact is the person to reach at a pickup or delivery address
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	MobileNo  string `json:"mobile_no"`
	Gender    string `json:"gender"`
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)

// PhonePrefix is the first three characters of the phone number
func (c *Contact) PhonePrefix() string {
	r := []rune(c.Phone)
	if len(r) < 3 {
		return c.Phone
	}
	return string(r[:3])
}

// PhoneNumber is the phone number after the prefix with separators removed
func (c *Contact) PhoneNumber() string {
	r := []rune(c.Phone)
	if len(r) < 3 {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(string(r[3:]), "")
}

// Salutation returns MR for male contacts and MS otherwise
func (c *Contact) Salutation() string {
	if c.Gender == "Male" {
		return "MR"
	}
	return "MS"
}

// FullName joins first and last name
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Parcel is one line of the shipment parcel manifest
type Parcel struct {
	Length float64 `json:"length" binding:"gte=0"`
	Width  float64 `json:"width" binding:"gte=0"`
	Height float64 `json:"height" binding:"gte=0"`
	Weight float64 `json:"weight" binding:"gt=0"`
	Count  int     `json:"count" binding:"gte=1"`
}

// TotalCount sums the count of all parcel lines
func TotalCount(parcels []Parcel) int {
	total := 0
	for _, p := range parcels {
		total += p.Count
	}
	return total
}
