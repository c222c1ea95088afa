package store

import (
	"context"
	"errors"
	"fmt"

	"erp-shipping/config"
	"erp-shipping/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// Store is the ERP document store backed by gorm
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database
func Open(cfg *config.DatabaseConfig, log *logrus.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"driver": cfg.Driver,
	}).Info("Connected to document store")
	return New(db), nil
}

// New wraps an existing connection
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates all tables
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func (s *Store) first(ctx context.Context, dest any, name string) error {
	if err := s.db.WithContext(ctx).First(dest, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// GetAddress loads an Address by name
func (s *Store) GetAddress(ctx context.Context, name string) (*Address, error) {
	var address Address
	if err := s.first(ctx, &address, name); err != nil {
		return nil, err
	}
	return &address, nil
}

// GetCountryCode returns the ISO code of a country
func (s *Store) GetCountryCode(ctx context.Context, country string) (string, error) {
	var c Country
	if err := s.first(ctx, &c, country); err != nil {
		return "", err
	}
	return c.Code, nil
}

// GetContact loads a Contact by name
func (s *Store) GetContact(ctx context.Context, name string) (*Contact, error) {
	var contact Contact
	if err := s.first(ctx, &contact, name); err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetUser loads a User by name
func (s *Store) GetUser(ctx context.Context, name string) (*User, error) {
	var user User
	if err := s.first(ctx, &user, name); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetShipment loads a Shipment together with its delivery note links
func (s *Store) GetShipment(ctx context.Context, name string) (*Shipment, error) {
	var shipment Shipment
	err := s.db.WithContext(ctx).
		Preload("DeliveryNotes").
		First(&shipment, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return &shipment, nil
}

// DeliveryCompanyName resolves the receiving party's name from the customer,
// supplier or company set on the Shipment, in that order. It returns "" when
// none is set.
func (s *Store) DeliveryCompanyName(ctx context.Context, shipment string) (string, error) {
	sh, err := s.GetShipment(ctx, shipment)
	if err != nil {
		return "", err
	}

	switch {
	case sh.DeliveryCustomer != "":
		var c Customer
		if err := s.first(ctx, &c, sh.DeliveryCustomer); err != nil {
			return "", err
		}
		return c.CustomerName, nil
	case sh.DeliverySupplier != "":
		var c Supplier
		if err := s.first(ctx, &c, sh.DeliverySupplier); err != nil {
			return "", err
		}
		return c.SupplierName, nil
	case sh.DeliveryCompany != "":
		var c Company
		if err := s.first(ctx, &c, sh.DeliveryCompany); err != nil {
			return "", err
		}
		return c.CompanyName, nil
	}
	return "", nil
}

// SetShipmentFields writes the given columns onto one Shipment
func (s *Store) SetShipmentFields(ctx context.Context, name string, fields map[string]any) error {
	return s.update(ctx, &Shipment{}, name, fields)
}

// SetDeliveryNoteFields writes the given columns onto one Delivery Note
func (s *Store) SetDeliveryNoteFields(ctx context.Context, name string, fields map[string]any) error {
	return s.update(ctx, &DeliveryNote{}, name, fields)
}

func (s *Store) update(ctx context.Context, model any, name string, fields map[string]any) error {
	result := s.db.WithContext(ctx).Model(model).Where("name = ?", name).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// ShipmentsToTrack returns the names of submitted, booked shipments that
// have a carrier id and are not yet delivered.
func (s *Store) ShipmentsToTrack(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&Shipment{}).
		Where("docstatus = ?", 1).
		Where("status = ?", "Booked").
		Where("shipment_id IS NOT NULL AND shipment_id != ?", "").
		Where("COALESCE(tracking_status, '') != ?", "Delivered").
		Order("name").
		Pluck("name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select shipments: %w", err)
	}
	return names, nil
}

// MatchParcelServiceType resolves a carrier's service label to the canonical
// Parcel Service Type through the alias table. When no alias matches the
// label is returned unchanged. preferred reports the type's
// show_in_preferred_services_list flag.
func (s *Store) MatchParcelServiceType(ctx context.Context, serviceType, parcelService string) (name string, preferred bool, err error) {
	name = serviceType

	var alias ParcelServiceTypeAlias
	err = s.db.WithContext(ctx).
		Where("alias = ? AND parcel_service = ?", serviceType, parcelService).
		First(&alias).Error
	switch {
	case err == nil:
		name = alias.Parent
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, err
	}

	var pst ParcelServiceType
	err = s.db.WithContext(ctx).First(&pst, "name = ?", name).Error
	switch {
	case err == nil:
		return name, pst.ShowInPreferredServicesList, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return name, false, nil
	}
	return "", false, err
}

// TrackingURLTemplate returns the url_reference of a Parcel Service, or ""
func (s *Store) TrackingURLTemplate(ctx context.Context, parcelService string) (string, error) {
	var ps ParcelService
	err := s.db.WithContext(ctx).First(&ps, "name = ?", parcelService).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ps.URLReference, nil
}

// LogError persists an Error Log entry and returns its name
func (s *Store) LogError(ctx context.Context, method, text string) (string, error) {
	entry := &ErrorLog{
		Name:   uuid.NewString(),
		Method: method,
		Error:  text,
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return "", fmt.Errorf("failed to write error log: %w", err)
	}
	return entry.Name, nil
}

// UpsertParcelService creates or updates a Parcel Service
func (s *Store) UpsertParcelService(ctx context.Context, name, urlReference string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"url_reference"}),
		}).
		Create(&ParcelService{Name: name, URLReference: urlReference}).Error
}

// UpsertParcelServiceType creates or updates a Parcel Service Type
func (s *Store) UpsertParcelServiceType(ctx context.Context, name, parcelService string, preferred bool) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"parcel_service", "show_in_preferred_services_list"}),
		}).
		Create(&ParcelServiceType{Name: name, ParcelService: parcelService, ShowInPreferredServicesList: preferred}).Error
}

// AddParcelServiceTypeAlias registers alias for a Parcel Service Type; an
// existing alias is left as is.
func (s *Store) AddParcelServiceTypeAlias(ctx context.Context, parent, parcelService, alias string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parent"}, {Name: "alias"}},
			DoNothing: true,
		}).
		Create(&ParcelServiceTypeAlias{Parent: parent, ParcelService: parcelService, Alias: alias}).Error
}
