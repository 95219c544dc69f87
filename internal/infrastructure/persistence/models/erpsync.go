package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// SyncLifecycle holds the reconciliation bookkeeping shared by every synced
// table. A non-nil NsDeletedAt means the row is no longer present upstream.
type SyncLifecycle struct {
	SyncedAt    time.Time  `gorm:"not null;index"`
	NsDeletedAt *time.Time `gorm:"index"`
}

// MarkSynced stamps the row and revives it if it was soft-deleted.
func (l *SyncLifecycle) MarkSynced(at time.Time) {
	l.SyncedAt = at
	l.NsDeletedAt = nil
}

// IsLive reports whether the row is present upstream.
func (l *SyncLifecycle) IsLive() bool {
	return l.NsDeletedAt == nil
}

// ERPCustomer is the local copy of an ERP customer.
type ERPCustomer struct {
	ID             uint64          `gorm:"primaryKey;autoIncrement"`
	CustomerID     string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_erp_customers_customer_id"`
	EntityID       string          `gorm:"type:varchar(128)"`
	CompanyName    string          `gorm:"type:varchar(255);not null"`
	Email          string          `gorm:"type:varchar(255);index"`
	Phone          string          `gorm:"type:varchar(64)"`
	Subsidiary     string          `gorm:"type:varchar(64)"`
	Terms          string          `gorm:"type:varchar(64)"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Inactive       bool            `gorm:"not null"`
	LastModifiedAt time.Time       `gorm:"not null"`

	// Portal-owned; never overwritten by a sync.
	PortalVerified  bool       `gorm:"not null"`
	TermsAcceptedAt *time.Time
	PortalUserID    *uuid.UUID `gorm:"type:uuid"`

	SyncLifecycle
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ERPCustomer) TableName() string {
	return "erp_customers"
}

// NaturalKey returns the conflict target values.
func (m *ERPCustomer) NaturalKey() []any {
	return []any{m.CustomerID}
}

// CustomerPreservedColumns are portal-owned columns of erp_customers.
var CustomerPreservedColumns = []string{"portal_verified", "terms_accepted_at", "portal_user_id"}

// NewERPCustomer maps a domain record to a model.
func NewERPCustomer(c erpsync.Customer) ERPCustomer {
	return ERPCustomer{
		CustomerID:     c.CustomerID,
		EntityID:       c.EntityID,
		CompanyName:    c.CompanyName,
		Email:          c.Email,
		Phone:          c.Phone,
		Subsidiary:     c.Subsidiary,
		Terms:          c.Terms,
		CreditLimit:    c.CreditLimit,
		Balance:        c.Balance,
		Inactive:       c.Inactive,
		LastModifiedAt: c.LastModified,
	}
}

// ShipmentETA is one open order line's expected arrival.
type ShipmentETA struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	ItemID       string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_shipment_etas_key,priority:1"`
	LocationID   string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_shipment_etas_key,priority:2;index"`
	SOID         string          `gorm:"column:so_id;type:varchar(32);not null;uniqueIndex:idx_shipment_etas_key,priority:3"`
	LineSeq      int             `gorm:"not null;uniqueIndex:idx_shipment_etas_key,priority:4"`
	CustomerID   string          `gorm:"type:varchar(32);index"`
	ItemName     string          `gorm:"type:varchar(255)"`
	SONumber     string          `gorm:"column:so_number;type:varchar(64)"`
	PONumber     string          `gorm:"column:po_number;type:varchar(64)"`
	QuantityOpen decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpectedDate *time.Time      `gorm:"type:date"`
	Status       string          `gorm:"type:varchar(64)"`

	// Portal-owned.
	CustomerNotifiedAt *time.Time

	SyncLifecycle
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShipmentETA) TableName() string {
	return "shipment_etas"
}

// NaturalKey returns the conflict target values.
func (m *ShipmentETA) NaturalKey() []any {
	return []any{m.ItemID, m.LocationID, m.SOID, m.LineSeq}
}

// ShipmentETAPreservedColumns are portal-owned columns of shipment_etas.
var ShipmentETAPreservedColumns = []string{"customer_notified_at"}

// NewShipmentETA maps a domain record to a model.
func NewShipmentETA(e erpsync.ShipmentETA) ShipmentETA {
	return ShipmentETA{
		ItemID:       e.ItemID,
		LocationID:   e.LocationID,
		SOID:         e.SOID,
		LineSeq:      e.LineSeq,
		CustomerID:   e.CustomerID,
		ItemName:     e.ItemName,
		SONumber:     e.SONumber,
		PONumber:     e.PONumber,
		QuantityOpen: e.QuantityOpen,
		ExpectedDate: e.ExpectedDate,
		Status:       e.Status,
	}
}

// PaymentInstrument is a customer's stored card or bank account.
type PaymentInstrument struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	InstrumentID   string `gorm:"type:varchar(32);not null;uniqueIndex:idx_payment_instruments_instrument_id"`
	CustomerID     string `gorm:"type:varchar(32);not null;index"`
	InstrumentType string `gorm:"type:varchar(16);not null"`
	Brand          string `gorm:"type:varchar(64)"`
	Last4          string `gorm:"column:last4;type:varchar(4)"`
	ExpMonth       int
	ExpYear        int
	IsDefault      bool `gorm:"not null"`
	Inactive       bool `gorm:"not null"`

	// Portal-owned.
	PortalNickname *string `gorm:"type:varchar(64)"`
	HiddenInPortal bool    `gorm:"not null"`

	SyncLifecycle
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentInstrument) TableName() string {
	return "payment_instruments"
}

// NaturalKey returns the conflict target values.
func (m *PaymentInstrument) NaturalKey() []any {
	return []any{m.InstrumentID}
}

// InstrumentPreservedColumns are portal-owned columns of payment_instruments.
var InstrumentPreservedColumns = []string{"portal_nickname", "hidden_in_portal"}

// NewPaymentInstrument maps a domain record to a model.
func NewPaymentInstrument(p erpsync.PaymentInstrument) PaymentInstrument {
	return PaymentInstrument{
		InstrumentID:   p.InstrumentID,
		CustomerID:     p.CustomerID,
		InstrumentType: p.InstrumentType,
		Brand:          p.Brand,
		Last4:          p.Last4,
		ExpMonth:       p.ExpMonth,
		ExpYear:        p.ExpYear,
		IsDefault:      p.IsDefault,
		Inactive:       p.Inactive,
	}
}

// CustomerIdentifier links an external identifier to a customer.
type CustomerIdentifier struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	CustomerID     string `gorm:"type:varchar(32);not null;uniqueIndex:idx_customer_identifiers_key,priority:1"`
	IdentifierType string `gorm:"type:varchar(64);not null;uniqueIndex:idx_customer_identifiers_key,priority:2"`
	Value          string `gorm:"type:varchar(255);not null;index"`
	Source         string `gorm:"type:varchar(64)"`

	// Portal-owned.
	LinkedUserID *uuid.UUID `gorm:"type:uuid"`
	VerifiedAt   *time.Time

	SyncLifecycle
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerIdentifier) TableName() string {
	return "customer_identifiers"
}

// NaturalKey returns the conflict target values.
func (m *CustomerIdentifier) NaturalKey() []any {
	return []any{m.CustomerID, m.IdentifierType}
}

// IdentifierPreservedColumns are portal-owned columns of customer_identifiers.
var IdentifierPreservedColumns = []string{"linked_user_id", "verified_at"}

// NewCustomerIdentifier maps a domain record to a model.
func NewCustomerIdentifier(i erpsync.CustomerIdentifier) CustomerIdentifier {
	return CustomerIdentifier{
		CustomerID:     i.CustomerID,
		IdentifierType: i.IdentifierType,
		Value:          i.Value,
		Source:         i.Source,
	}
}

// SyncedModels lists every reconciled model, for AutoMigrate in tests.
func SyncedModels() []any {
	return []any{&ERPCustomer{}, &ShipmentETA{}, &PaymentInstrument{}, &CustomerIdentifier{}, &SyncCursor{}, &SyncRun{}}
}
