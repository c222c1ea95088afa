package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"erp-shipping/internal/model"
	"erp-shipping/internal/store"
)

// PartyCompany marks a pickup or delivery side handled by the own company
const PartyCompany = "Company"

// LoadAddress reads an Address and validates it for shipping
func (s *Service) LoadAddress(ctx context.Context, name string) (*model.Address, error) {
	rec, err := s.store.GetAddress(ctx, name)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(rec.Pincode) == "" {
		return nil, fmt.Errorf("%w: please set postal code for address %s", ErrMissingPostalCode, name)
	}
	if strings.TrimSpace(rec.Country) == "" {
		return nil, fmt.Errorf("%w: please set country for address %s", ErrMissingCountry, name)
	}

	code, err := s.store.GetCountryCode(ctx, rec.Country)
	if errors.Is(err, store.ErrNotFound) || (err == nil && strings.TrimSpace(code) == "") {
		return nil, fmt.Errorf("%w: %s (address %s)", ErrUnknownCountry, rec.Country, name)
	}
	if err != nil {
		return nil, err
	}

	return &model.Address{
		Name:         name,
		AddressTitle: rec.AddressTitle,
		AddressLine1: rec.AddressLine1,
		AddressLine2: rec.AddressLine2,
		City:         strings.TrimSpace(rec.City),
		Pincode:      strings.ReplaceAll(rec.Pincode, " ", ""),
		Country:      rec.Country,
		CountryCode:  strings.ToUpper(strings.TrimSpace(code)),
	}, nil
}

// LoadContact reads a Contact and validates it for shipping
func (s *Service) LoadContact(ctx context.Context, name string) (*model.Contact, error) {
	rec, err := s.store.GetContact(ctx, name)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(rec.LastName) == "" {
		return nil, fmt.Errorf("%w: please set last name for contact %s", ErrMissingLastName, name)
	}

	phone := rec.Phone
	if phone == "" {
		phone = rec.MobileNo
	}
	return &model.Contact{
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Email:     rec.EmailID,
		Phone:     phone,
		MobileNo:  rec.MobileNo,
		Gender:    rec.Gender,
	}, nil
}

// LoadCompanyContact builds the contact of a company side from a User
func (s *Service) LoadCompanyContact(ctx context.Context, user string) (*model.Contact, error) {
	rec, err := s.store.GetUser(ctx, user)
	if err != nil {
		return nil, err
	}

	phone := rec.Phone
	if phone == "" {
		phone = rec.MobileNo
	}
	return &model.Contact{
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Email:     rec.Email,
		Phone:     phone,
		MobileNo:  rec.MobileNo,
		Gender:    rec.Gender,
	}, nil
}

// loadContacts resolves both parties. A company side always uses the pickup
// contact user, for delivery as well.
func (s *Service) loadContacts(ctx context.Context, req *RatesRequest) (pickup, delivery *model.Contact, err error) {
	if req.PickupFromType != PartyCompany {
		pickup, err = s.LoadContact(ctx, req.PickupContactName)
	} else {
		pickup, err = s.LoadCompanyContact(ctx, req.PickupContactName)
	}
	if err != nil {
		return nil, nil, err
	}

	if req.DeliveryToType != PartyCompany {
		delivery, err = s.LoadContact(ctx, req.DeliveryContactName)
	} else {
		delivery, err = s.LoadCompanyContact(ctx, req.PickupContactName)
	}
	if err != nil {
		return nil, nil, err
	}
	return pickup, delivery, nil
}

func (s *Service) loadAddresses(ctx context.Context, req *RatesRequest) (pickup, delivery *model.Address, err error) {
	if pickup, err = s.LoadAddress(ctx, req.PickupAddressName); err != nil {
		return nil, nil, err
	}
	if delivery, err = s.LoadAddress(ctx, req.DeliveryAddressName); err != nil {
		return nil, nil, err
	}
	return pickup, delivery, nil
}
