package persistence

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/erp/portalsync/internal/domain/erpsync"
	"github.com/erp/portalsync/internal/infrastructure/persistence/models"
)

// SyncStore implements erpsync.Store on top of one reconciler per table.
type SyncStore struct {
	db          *gorm.DB
	customers   *Reconciler[models.ERPCustomer, *models.ERPCustomer]
	etas        *Reconciler[models.ShipmentETA, *models.ShipmentETA]
	instruments *Reconciler[models.PaymentInstrument, *models.PaymentInstrument]
	identifiers *Reconciler[models.CustomerIdentifier, *models.CustomerIdentifier]
}

// NewSyncStore builds the reconcilers for every synced table.
func NewSyncStore(db *gorm.DB, logger *zap.Logger) (*SyncStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	customers, err := NewReconciler[models.ERPCustomer](db, TableSpec{
		KeyColumns:      []string{"customer_id"},
		PreserveColumns: models.CustomerPreservedColumns,
	}, logger)
	if err != nil {
		return nil, err
	}
	etas, err := NewReconciler[models.ShipmentETA](db, TableSpec{
		KeyColumns:      []string{"item_id", "location_id", "so_id", "line_seq"},
		PreserveColumns: models.ShipmentETAPreservedColumns,
	}, logger)
	if err != nil {
		return nil, err
	}
	instruments, err := NewReconciler[models.PaymentInstrument](db, TableSpec{
		KeyColumns:      []string{"instrument_id"},
		PreserveColumns: models.InstrumentPreservedColumns,
	}, logger)
	if err != nil {
		return nil, err
	}
	identifiers, err := NewReconciler[models.CustomerIdentifier](db, TableSpec{
		KeyColumns:      []string{"customer_id", "identifier_type"},
		PreserveColumns: models.IdentifierPreservedColumns,
	}, logger)
	if err != nil {
		return nil, err
	}
	return &SyncStore{
		db:          db,
		customers:   customers,
		etas:        etas,
		instruments: instruments,
		identifiers: identifiers,
	}, nil
}

// UpsertCustomers merges customers; nothing is soft-deleted.
func (s *SyncStore) UpsertCustomers(ctx context.Context, rows []erpsync.Customer, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	out := make([]models.ERPCustomer, len(rows))
	for i, r := range rows {
		out[i] = models.NewERPCustomer(r)
	}
	return s.customers.Reconcile(ctx, erpsync.Scope{}, out, opts)
}

// ReplaceShipmentETAs replaces the ETA snapshot for the locations in scope.
func (s *SyncStore) ReplaceShipmentETAs(ctx context.Context, scope erpsync.Scope, rows []erpsync.ShipmentETA, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	out := make([]models.ShipmentETA, len(rows))
	for i, r := range rows {
		out[i] = models.NewShipmentETA(r)
	}
	return s.etas.Reconcile(ctx, scope, out, opts)
}

// ReplaceInstruments replaces the instruments of a single customer.
func (s *SyncStore) ReplaceInstruments(ctx context.Context, customerID string, rows []erpsync.PaymentInstrument, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	if customerID == "" {
		return erpsync.ReconcileResult{}, erpsync.NewInvalidInputError("customer id is required to replace instruments")
	}
	out := make([]models.PaymentInstrument, len(rows))
	for i, r := range rows {
		out[i] = models.NewPaymentInstrument(r)
	}
	return s.instruments.Reconcile(ctx, erpsync.ScopeOf("customer_id", customerID), out, opts)
}

// ReplaceIdentifiers replaces the identifier snapshot for the customers in scope.
func (s *SyncStore) ReplaceIdentifiers(ctx context.Context, scope erpsync.Scope, rows []erpsync.CustomerIdentifier, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	out := make([]models.CustomerIdentifier, len(rows))
	for i, r := range rows {
		out[i] = models.NewCustomerIdentifier(r)
	}
	return s.identifiers.Reconcile(ctx, scope, out, opts)
}

// LiveCustomerIDs lists active customers that are not soft-deleted.
func (s *SyncStore) LiveCustomerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ERPCustomer{}).
		Where("ns_deleted_at IS NULL AND inactive = ?", false).
		Order("customer_id").
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, erpsync.NewPersistenceError("list live customers", err)
	}
	return ids, nil
}

var _ erpsync.Store = (*SyncStore)(nil)
