package shipping

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"erp-shipping/internal/api"
	"erp-shipping/internal/model"
	"erp-shipping/internal/store"
	"erp-shipping/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeProvider is an in-memory carrier
type fakeProvider struct {
	name     string
	disabled bool

	quotes   []model.Quote
	booking  *model.BookingResult
	label    *model.Label
	tracking *model.TrackingRecord
	err      error

	calls       []string
	lastQuote   *api.QuoteRequest
	lastBooking *api.BookingRequest
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Enabled() bool { return !f.disabled }

func (f *fakeProvider) check(call string) error {
	if f.disabled {
		return fmt.Errorf("%s: %w", f.name, api.ErrProviderDisabled)
	}
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeProvider) Quote(_ context.Context, req *api.QuoteRequest) ([]model.Quote, error) {
	if err := f.check("quote"); err != nil {
		return nil, err
	}
	f.lastQuote = req
	out := make([]model.Quote, len(f.quotes))
	copy(out, f.quotes)
	return out, nil
}

func (f *fakeProvider) Book(_ context.Context, req *api.BookingRequest) (*model.BookingResult, error) {
	if err := f.check("book"); err != nil {
		return nil, err
	}
	f.lastBooking = req
	return f.booking, nil
}

func (f *fakeProvider) FetchLabel(_ context.Context, _ string) (*model.Label, error) {
	if err := f.check("label"); err != nil {
		return nil, err
	}
	return f.label, nil
}

func (f *fakeProvider) FetchTracking(_ context.Context, _ string) (*model.TrackingRecord, error) {
	if err := f.check("tracking"); err != nil {
		return nil, err
	}
	return f.tracking, nil
}

type fixture struct {
	db        *gorm.DB
	store     *store.Store
	letmeship *fakeProvider
	packlink  *fakeProvider
	sendcloud *fakeProvider
	service   *Service
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	st := store.New(db)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{
		db:        db,
		store:     st,
		letmeship: &fakeProvider{name: model.ProviderLetMeShip},
		packlink:  &fakeProvider{name: model.ProviderPacklink},
		sendcloud: &fakeProvider{name: model.ProviderSendCloud},
	}
	f.service = NewService(st, func() *api.Registry {
		return api.NewRegistryOf(f.letmeship, f.packlink, f.sendcloud)
	}, logger.Discard())

	seed := []any{
		&store.Country{Name: "Germany", Code: "de"},
		&store.Country{Name: "France", Code: "FR"},
		&store.Address{Name: "ACME-Pickup", AddressTitle: "Acme", AddressLine1: "Hauptstrasse 1", City: " Berlin ", Pincode: "101 15", Country: "Germany"},
		&store.Address{Name: "GLOBEX-Delivery", AddressTitle: "Globex Paris", AddressLine1: "Rue de Rivoli 10", City: "Paris", Pincode: "75001", Country: "France"},
		&store.User{Name: "jane@acme.test", FirstName: "Jane", LastName: "Doe", Email: "jane@acme.test", MobileNo: "+49 170 1234"},
		&store.Contact{Name: "John Smith-Globex", FirstName: "John", LastName: "Smith", EmailID: "john@globex.test", Phone: "+33 1 2345", Gender: "Male"},
		&store.Customer{Name: "CUST-GLOBEX", CustomerName: "Globex SA"},
		&store.Shipment{Name: "SHIP-1", DocStatus: 1, DeliveryCustomer: "CUST-GLOBEX"},
		&store.DeliveryNote{Name: "DN-1"},
		&store.DeliveryNote{Name: "DN-2"},
	}
	for _, rec := range seed {
		require.NoError(t, db.Create(rec).Error)
	}
	return f
}

func ratesRequest() *RatesRequest {
	return &RatesRequest{
		PickupFromType:       PartyCompany,
		DeliveryToType:       "Customer",
		PickupAddressName:    "ACME-Pickup",
		DeliveryAddressName:  "GLOBEX-Delivery",
		PickupContactName:    "jane@acme.test",
		DeliveryContactName:  "John Smith-Globex",
		Parcels:              []model.Parcel{{Length: 30, Width: 20, Height: 10, Weight: 2, Count: 1}},
		DescriptionOfContent: "Spare parts",
		PickupDate:           "2024-05-06",
		ValueOfGoods:         decimal.NewFromInt(100),
	}
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFetchRates_SortedStableAcrossProviders(t *testing.T) {
	f := setupFixture(t)
	f.letmeship.quotes = []model.Quote{
		{ServiceProvider: model.ProviderLetMeShip, Carrier: "DHL", CarrierName: "DHL Express", TotalPrice: price("12.00")},
		{ServiceProvider: model.ProviderLetMeShip, Carrier: "UPS", CarrierName: "UPS Saver", TotalPrice: price("9.50")},
	}
	f.packlink.quotes = []model.Quote{
		{ServiceProvider: model.ProviderPacklink, Carrier: "DHL", CarrierName: "Parcel Connect", TotalPrice: price("9.5")},
	}
	f.sendcloud.quotes = []model.Quote{
		{ServiceProvider: model.ProviderSendCloud, Carrier: "dpd", ServiceName: "DPD Classic", TotalPrice: price("7.10")},
	}

	quotes, alerts, err := f.service.FetchRates(context.Background(), ratesRequest())
	require.NoError(t, err)
	assert.Empty(t, alerts)
	require.Len(t, quotes, 4)

	assert.Equal(t, model.ProviderSendCloud, quotes[0].ServiceProvider)
	// equal prices keep provider order
	assert.Equal(t, model.ProviderLetMeShip, quotes[1].ServiceProvider)
	assert.Equal(t, model.ProviderPacklink, quotes[2].ServiceProvider)
	assert.Equal(t, "DHL", quotes[3].Carrier)

	// SendCloud quotes are not enriched
	assert.Equal(t, "DPD Classic", quotes[0].ServiceName)

	require.NotNil(t, f.letmeship.lastQuote)
	assert.Equal(t, "Jane", f.letmeship.lastQuote.PickupContact.FirstName)
	assert.Equal(t, "+49 170 1234", f.letmeship.lastQuote.PickupContact.Phone)
	assert.Equal(t, "Smith", f.letmeship.lastQuote.DeliveryContact.LastName)
	assert.Nil(t, f.packlink.lastQuote.PickupContact)
	assert.Equal(t, "10115", f.packlink.lastQuote.PickupAddress.Pincode)
	assert.Equal(t, "Berlin", f.packlink.lastQuote.PickupAddress.City)
	assert.Equal(t, "DE", f.packlink.lastQuote.PickupAddress.CountryCode)
}

func TestFetchRates_AliasEnrichment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertParcelServiceType(ctx, "DHL Paket", "DHL", true))
	require.NoError(t, f.store.AddParcelServiceTypeAlias(ctx, "DHL Paket", "DHL Express", "DHL"))
	require.NoError(t, f.store.AddParcelServiceTypeAlias(ctx, "DHL Paket", "DHL", "Parcel Connect"))

	f.letmeship.quotes = []model.Quote{{ServiceProvider: model.ProviderLetMeShip, Carrier: "DHL", CarrierName: "DHL Express", TotalPrice: price("10")}}
	f.packlink.quotes = []model.Quote{{ServiceProvider: model.ProviderPacklink, Carrier: "DHL", CarrierName: "Parcel Connect", TotalPrice: price("11")}}

	quotes, _, err := f.service.FetchRates(ctx, ratesRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	for _, q := range quotes {
		assert.Equal(t, "DHL Paket", q.ServiceName, q.ServiceProvider)
		assert.True(t, q.IsPreferred, q.ServiceProvider)
	}
}

func TestFetchRates_ProviderSelection(t *testing.T) {
	t.Run("sendcloud only for company pickup", func(t *testing.T) {
		f := setupFixture(t)
		req := ratesRequest()
		req.PickupFromType = "Supplier"
		req.PickupContactName = "John Smith-Globex"

		_, _, err := f.service.FetchRates(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, f.sendcloud.calls)
		assert.Equal(t, []string{"quote"}, f.packlink.calls)
	})

	t.Run("disabled letmeship skips contact loading", func(t *testing.T) {
		f := setupFixture(t)
		f.letmeship.disabled = true
		req := ratesRequest()
		req.DeliveryContactName = "missing-contact"

		_, alerts, err := f.service.FetchRates(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, alerts)
		assert.Empty(t, f.letmeship.calls)
	})

	t.Run("contact without last name", func(t *testing.T) {
		f := setupFixture(t)
		require.NoError(t, f.db.Create(&store.Contact{Name: "Nameless", FirstName: "Pat"}).Error)
		req := ratesRequest()
		req.DeliveryContactName = "Nameless"

		_, _, err := f.service.FetchRates(context.Background(), req)
		assert.ErrorIs(t, err, ErrMissingLastName)
		assert.True(t, IsValidationError(err))
	})
}

func TestFetchRates_UpstreamErrorBecomesAlert(t *testing.T) {
	f := setupFixture(t)
	f.packlink.err = &api.UpstreamError{Provider: model.ProviderPacklink, Action: "fetching Packlink prices", StatusCode: 500}
	f.sendcloud.quotes = []model.Quote{{ServiceProvider: model.ProviderSendCloud, TotalPrice: price("5")}}

	quotes, alerts, err := f.service.FetchRates(context.Background(), ratesRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Len(t, alerts, 1)

	assert.Equal(t, "fetching Packlink prices", alerts[0].Action)
	assert.Equal(t, "An Error occurred while fetching Packlink prices. See error log "+alerts[0].ErrorLog+".", alerts[0].Message)

	var entry store.ErrorLog
	require.NoError(t, f.db.First(&entry, "name = ?", alerts[0].ErrorLog).Error)
	assert.Contains(t, entry.Error, "status: 500")
}

func TestLoadAddress(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&store.Address{Name: "NO-ZIP", Pincode: "   ", Country: "Germany"}).Error)
	require.NoError(t, f.db.Create(&store.Address{Name: "NO-COUNTRY", Pincode: "10115"}).Error)
	require.NoError(t, f.db.Create(&store.Address{Name: "ATLANTIS", Pincode: "1", Country: "Atlantis"}).Error)

	tests := []struct {
		name    string
		address string
		wantErr error
	}{
		{"blank postal code", "NO-ZIP", ErrMissingPostalCode},
		{"blank country", "NO-COUNTRY", ErrMissingCountry},
		{"unknown country", "ATLANTIS", ErrUnknownCountry},
		{"missing record", "NOPE", store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.LoadAddress(ctx, tt.address)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	address, err := f.service.LoadAddress(ctx, "ACME-Pickup")
	require.NoError(t, err)
	assert.Equal(t, "10115", address.Pincode)
	assert.Equal(t, "Berlin", address.City)
	assert.Equal(t, "DE", address.CountryCode)
}

func TestLoadContact_MobileFallback(t *testing.T) {
	f := setupFixture(t)
	require.NoError(t, f.db.Create(&store.Contact{Name: "Mobile Only", FirstName: "Max", LastName: "Muster", MobileNo: "+49 171 5555"}).Error)

	contact, err := f.service.LoadContact(context.Background(), "Mobile Only")
	require.NoError(t, err)
	assert.Equal(t, "+49 171 5555", contact.Phone)

	contact, err = f.service.LoadContact(context.Background(), "John Smith-Globex")
	require.NoError(t, err)
	assert.Equal(t, "+33 1 2345", contact.Phone)
}

func bookRequest() *BookRequest {
	return &BookRequest{
		RatesRequest: *ratesRequest(),
		Shipment:     "SHIP-1",
		Service: model.Quote{
			ServiceProvider: model.ProviderPacklink,
			ServiceID:       20945,
			Carrier:         "DHL",
			ServiceName:     "DHL Paket",
		},
		DeliveryNotes: []string{"DN-1", "DN-2", "DN-1", "DN-404"},
	}
}

func TestCreateShipment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.packlink.booking = &model.BookingResult{
		ServiceProvider: model.ProviderPacklink,
		ShipmentID:      "DE2024PRO0001",
		Carrier:         "DHL",
		CarrierService:  "DHL Paket",
		ShipmentAmount:  price("9.80"),
	}

	result, alert, err := f.service.CreateShipment(ctx, bookRequest())
	require.NoError(t, err)
	assert.Nil(t, alert)
	require.NotNil(t, result)

	assert.Equal(t, "Globex SA", f.packlink.lastBooking.DeliveryCompanyName)
	assert.Equal(t, "Jane", f.packlink.lastBooking.PickupContact.FirstName)

	sh, err := f.store.GetShipment(ctx, "SHIP-1")
	require.NoError(t, err)
	assert.Equal(t, model.ShipmentStatusBooked, sh.Status)
	assert.Equal(t, model.ProviderPacklink, sh.ServiceProvider)
	assert.Equal(t, "DE2024PRO0001", sh.ShipmentID)
	assert.Equal(t, "DHL", sh.Carrier)
	assert.Equal(t, "DHL Paket", sh.CarrierService)
	assert.True(t, price("9.80").Equal(sh.ShipmentAmount))

	for _, name := range []string{"DN-1", "DN-2"} {
		var dn store.DeliveryNote
		require.NoError(t, f.db.First(&dn, "name = ?", name).Error)
		assert.Equal(t, "Parcel Service", dn.DeliveryType)
		assert.Equal(t, "DHL", dn.ParcelService)
		assert.Equal(t, "DHL Paket", dn.ParcelServiceType)
	}
}

func TestCreateShipment_Failures(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		f := setupFixture(t)
		req := bookRequest()
		req.Service.ServiceProvider = "ShipStation"

		_, _, err := f.service.CreateShipment(context.Background(), req)
		assert.ErrorIs(t, err, api.ErrUnknownProvider)
	})

	t.Run("disabled provider blocks", func(t *testing.T) {
		f := setupFixture(t)
		f.packlink.disabled = true

		_, alert, err := f.service.CreateShipment(context.Background(), bookRequest())
		assert.ErrorIs(t, err, api.ErrProviderDisabled)
		assert.Nil(t, alert)
	})

	t.Run("upstream failure alerts and writes nothing", func(t *testing.T) {
		f := setupFixture(t)
		f.packlink.err = &api.UpstreamError{Provider: model.ProviderPacklink, Action: "creating Packlink Shipment", Err: errors.New("timeout")}

		result, alert, err := f.service.CreateShipment(context.Background(), bookRequest())
		require.NoError(t, err)
		assert.Nil(t, result)
		require.NotNil(t, alert)
		assert.Equal(t, "creating Packlink Shipment", alert.Action)

		sh, err := f.store.GetShipment(context.Background(), "SHIP-1")
		require.NoError(t, err)
		assert.Empty(t, sh.Status)
		assert.Empty(t, sh.ShipmentID)
	})
}

// unsavableStore fails every Shipment write
type unsavableStore struct {
	*store.Store
}

func (unsavableStore) SetShipmentFields(context.Context, string, map[string]any) error {
	return errors.New("database is locked")
}

func TestCreateShipment_SaveFailureKeepsBooking(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	f.packlink.booking = &model.BookingResult{
		ServiceProvider: model.ProviderPacklink,
		ShipmentID:      "DE2024PRO0002",
		AWBNumber:       "AWB-77",
	}
	svc := NewService(unsavableStore{f.store}, func() *api.Registry {
		return api.NewRegistryOf(f.letmeship, f.packlink, f.sendcloud)
	}, logger.Discard())

	result, alert, err := svc.CreateShipment(ctx, bookRequest())
	require.Error(t, err)
	assert.Nil(t, alert)
	require.NotNil(t, result)
	assert.Equal(t, "DE2024PRO0002", result.ShipmentID)
	assert.Contains(t, err.Error(), "DE2024PRO0002")

	var logs []store.ErrorLog
	require.NoError(t, f.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "saving booked Shipment", logs[0].Method)
	assert.Contains(t, logs[0].Error, "DE2024PRO0002")
	assert.Contains(t, logs[0].Error, "AWB-77")
}

func TestPrintLabel(t *testing.T) {
	f := setupFixture(t)
	f.sendcloud.label = &model.Label{ServiceProvider: model.ProviderSendCloud, URLs: []string{"https://label.test/12.pdf"}}

	label, alert, err := f.service.PrintLabel(context.Background(), model.ProviderSendCloud, "12")
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, []string{"https://label.test/12.pdf"}, label.URLs)

	f.sendcloud.err = &api.UpstreamError{Provider: model.ProviderSendCloud, Action: "printing SendCloud Label"}
	label, alert, err = f.service.PrintLabel(context.Background(), model.ProviderSendCloud, "12")
	require.NoError(t, err)
	assert.Nil(t, label)
	require.NotNil(t, alert)
	assert.Equal(t, "printing SendCloud Label", alert.Action)
}

func TestUpdateTracking(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.UpsertParcelService(ctx, "DHL", "https://dhl.test/track?id={{ tracking_number }}"))
	f.letmeship.tracking = &model.TrackingRecord{
		AWBNumber:          "AWB-1",
		TrackingStatus:     model.TrackingInProgress,
		TrackingStatusInfo: "IN_TRANSIT",
		Carrier:            "DHL",
	}

	record, alert, err := f.service.UpdateTracking(ctx, &TrackingRequest{
		Shipment:        "SHIP-1",
		ServiceProvider: model.ProviderLetMeShip,
		ShipmentID:      "4711",
		DeliveryNotes:   []string{"DN-2"},
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Equal(t, "https://dhl.test/track?id=AWB-1", record.TrackingURL)

	sh, err := f.store.GetShipment(ctx, "SHIP-1")
	require.NoError(t, err)
	assert.Equal(t, "AWB-1", sh.AWBNumber)
	assert.Equal(t, model.TrackingInProgress, sh.TrackingStatus)
	assert.Equal(t, "IN_TRANSIT", sh.TrackingStatusInfo)
	assert.Equal(t, "https://dhl.test/track?id=AWB-1", sh.TrackingURL)

	var dn store.DeliveryNote
	require.NoError(t, f.db.First(&dn, "name = ?", "DN-2").Error)
	assert.Equal(t, "AWB-1", dn.TrackingNumber)
	assert.Equal(t, "IN_TRANSIT", dn.TrackingStatusInfo)
	assert.Equal(t, "https://dhl.test/track?id=AWB-1", dn.TrackingURL)
}

func TestUpdateTracking_NoDataWritesNothing(t *testing.T) {
	f := setupFixture(t)

	record, alert, err := f.service.UpdateTracking(context.Background(), &TrackingRequest{
		Shipment:        "SHIP-1",
		ServiceProvider: model.ProviderPacklink,
		ShipmentID:      "DE2024",
	})
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.Nil(t, record)

	sh, err := f.store.GetShipment(context.Background(), "SHIP-1")
	require.NoError(t, err)
	assert.Empty(t, sh.TrackingStatus)
}

func TestTrackShipment_UsesStoredShipment(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&store.Shipment{
		Name:            "SHIP-2",
		DocStatus:       1,
		Status:          model.ShipmentStatusBooked,
		ServiceProvider: model.ProviderSendCloud,
		ShipmentID:      "12, 34",
		DeliveryNotes:   []store.ShipmentDeliveryNote{{DeliveryNote: "DN-1"}},
	}).Error)
	f.sendcloud.tracking = &model.TrackingRecord{
		AWBNumber:      "A, B",
		TrackingStatus: "Delivered, In Progress",
		TrackingURL:    "u1, u2",
	}

	_, _, err := f.service.TrackShipment(ctx, "SHIP-2")
	require.NoError(t, err)

	var dn store.DeliveryNote
	require.NoError(t, f.db.First(&dn, "name = ?", "DN-1").Error)
	assert.Equal(t, "A, B", dn.TrackingNumber)
	assert.Equal(t, "Delivered, In Progress", dn.TrackingStatus)
}

func TestRenderTrackingURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"jinja style", "https://track.test/{{ tracking_number }}", "https://track.test/123", false},
		{"compact", "https://track.test/?n={{tracking_number}}&l=de", "https://track.test/?n=123&l=de", false},
		{"static", "https://track.test/", "https://track.test/", false},
		{"empty", "", "", false},
		{"unsupported syntax", "https://track.test/{{ tracking_number | upper }}", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTrackingURL(tt.template, "123")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
