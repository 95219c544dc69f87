package erpsync

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is an ERP customer record merged incrementally into the portal.
type Customer struct {
	CustomerID   string          `json:"customer_id" validate:"required,numeric,max=32"`
	EntityID     string          `json:"entity_id" validate:"max=128"`
	CompanyName  string          `json:"company_name" validate:"required,max=255"`
	Email        string          `json:"email" validate:"omitempty,email,max=255"`
	Phone        string          `json:"phone" validate:"max=64"`
	Subsidiary   string          `json:"subsidiary" validate:"max=64"`
	Terms        string          `json:"terms" validate:"max=64"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	Balance      decimal.Decimal `json:"balance"`
	Inactive     bool            `json:"inactive"`
	LastModified time.Time       `json:"last_modified" validate:"required"`
}

// ShipmentETA is one open sales order line's expected arrival at a location.
// Natural key: (ItemID, LocationID, SOID, LineSeq).
type ShipmentETA struct {
	ItemID       string          `json:"item_id" validate:"required,max=32"`
	LocationID   string          `json:"location_id" validate:"required,max=32"`
	SOID         string          `json:"so_id" validate:"required,max=32"`
	LineSeq      int             `json:"line_seq" validate:"gte=0"`
	CustomerID   string          `json:"customer_id" validate:"max=32"`
	ItemName     string          `json:"item_name" validate:"max=255"`
	SONumber     string          `json:"so_number" validate:"max=64"`
	PONumber     string          `json:"po_number" validate:"max=64"`
	QuantityOpen decimal.Decimal `json:"quantity_open"`
	ExpectedDate *time.Time      `json:"expected_date"`
	Status       string          `json:"status" validate:"max=64"`
}

// PaymentInstrument is a stored card or bank account belonging to a customer.
type PaymentInstrument struct {
	InstrumentID   string `json:"instrument_id" validate:"required,max=32"`
	CustomerID     string `json:"customer_id" validate:"required,max=32"`
	InstrumentType string `json:"instrument_type" validate:"required,oneof=card ach other"`
	Brand          string `json:"brand" validate:"max=64"`
	Last4          string `json:"last4" validate:"omitempty,len=4,numeric"`
	ExpMonth       int    `json:"exp_month" validate:"omitempty,min=1,max=12"`
	ExpYear        int    `json:"exp_year" validate:"omitempty,min=2000,max=2200"`
	IsDefault      bool   `json:"is_default"`
	Inactive       bool   `json:"inactive"`
}

// CustomerIdentifier links an external identifier (tax id, account number,
// login email) to a customer. Natural key: (CustomerID, IdentifierType).
type CustomerIdentifier struct {
	CustomerID     string `json:"customer_id" validate:"required,max=32"`
	IdentifierType string `json:"identifier_type" validate:"required,max=64"`
	Value          string `json:"value" validate:"required,max=255"`
	Source         string `json:"source" validate:"max=64"`
}
