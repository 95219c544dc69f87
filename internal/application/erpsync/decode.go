package erpsync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// maxSkipSamples bounds the per-run list of skipped-row reasons kept in
// the report context.
const maxSkipSamples = 20

// remoteString accepts JSON strings, numbers and null. Query results
// return ids as numbers or strings depending on the column.
type remoteString string

func (s *remoteString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = remoteString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = remoteString(n.String())
	return nil
}

// remoteBool accepts "T"/"F", "true"/"false" and JSON booleans.
type remoteBool bool

func (v *remoteBool) UnmarshalJSON(b []byte) error {
	var s remoteString
	if err := s.UnmarshalJSON(b); err != nil {
		var raw bool
		if err2 := json.Unmarshal(b, &raw); err2 != nil {
			return err
		}
		*v = remoteBool(raw)
		return nil
	}
	switch strings.ToUpper(string(s)) {
	case "T", "TRUE", "Y", "YES", "1":
		*v = true
	case "", "F", "FALSE", "N", "NO", "0":
		*v = false
	default:
		return fmt.Errorf("invalid boolean %q", string(s))
	}
	return nil
}

var (
	foldCase = cases.Fold()
	lowerUnd = cases.Lower(language.Und)
)

// cleanText trims and NFC-normalizes a display string.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// cleanEmail case-folds an address so lookups by email are stable.
func cleanEmail(s string) string {
	return foldCase.String(cleanText(s))
}

// cleanCode lowercases an enumerated value such as an identifier type.
func cleanCode(s string) string {
	return strings.ReplaceAll(lowerUnd.String(cleanText(s)), " ", "_")
}

func parseDecimal(s remoteString) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(string(s), ",", ""))
}

func parseInt(s remoteString) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(string(s))
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp reads an ERP timestamp. Values without a zone are UTC.
func parseTimestamp(s remoteString) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, string(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", string(s))
}

func parseDate(s remoteString) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", "1/2/2006"} {
		if t, err := time.Parse(layout, string(s)); err == nil {
			return &t, nil
		}
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", string(s))
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

// rowDecoder turns raw remote rows into validated records of type R via
// the wire shape W. Rows that fail to decode, convert or validate are
// skipped and counted, never passed on.
type rowDecoder[W any, R any] struct {
	kind     string
	validate *validator.Validate
	convert  func(W) (R, error)
	logger   *zap.Logger

	skipped int
	samples []string
}

func newRowDecoder[W any, R any](kind string, v *validator.Validate, convert func(W) (R, error), logger *zap.Logger) *rowDecoder[W, R] {
	return &rowDecoder[W, R]{kind: kind, validate: v, convert: convert, logger: logger}
}

// Decode appends the valid records of raws to out.
func (d *rowDecoder[W, R]) Decode(raws []json.RawMessage, out []R) []R {
	for _, raw := range raws {
		var w W
		if err := json.Unmarshal(raw, &w); err != nil {
			d.skip(raw, "decode", err)
			continue
		}
		rec, err := d.convert(w)
		if err != nil {
			d.skip(raw, "convert", err)
			continue
		}
		if err := d.validate.Struct(rec); err != nil {
			d.skip(raw, "validate", err)
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (d *rowDecoder[W, R]) skip(raw json.RawMessage, stage string, err error) {
	d.skipped++
	reason := stage + ": " + err.Error()
	if len(d.samples) < maxSkipSamples {
		d.samples = append(d.samples, reason)
	}
	d.logger.Debug("Skipping invalid remote row",
		zap.String("kind", d.kind),
		zap.String("stage", stage),
		zap.String("row", erpsync.Excerpt(raw)),
		zap.Error(err),
	)
}

// Report copies the skip counters into report.
func (d *rowDecoder[W, R]) Report(report *erpsync.JobReport) {
	report.RowsSkipped += d.skipped
	if len(d.samples) > 0 {
		report.Set("skipped_samples", d.samples)
	}
}

// customerRow is the query projection of a customer.
type customerRow struct {
	ID           remoteString `json:"id"`
	EntityID     remoteString `json:"entityid"`
	CompanyName  remoteString `json:"companyname"`
	Email        remoteString `json:"email"`
	Phone        remoteString `json:"phone"`
	Subsidiary   remoteString `json:"subsidiary"`
	Terms        remoteString `json:"terms"`
	CreditLimit  remoteString `json:"creditlimit"`
	Balance      remoteString `json:"balance"`
	IsInactive   remoteBool   `json:"isinactive"`
	LastModified remoteString `json:"lastmodified"`
}

func toCustomer(w customerRow) (erpsync.Customer, error) {
	creditLimit, err := parseDecimal(w.CreditLimit)
	if err != nil {
		return erpsync.Customer{}, fmt.Errorf("creditlimit: %w", err)
	}
	balance, err := parseDecimal(w.Balance)
	if err != nil {
		return erpsync.Customer{}, fmt.Errorf("balance: %w", err)
	}
	modified, err := parseTimestamp(w.LastModified)
	if err != nil {
		return erpsync.Customer{}, fmt.Errorf("lastmodified: %w", err)
	}
	name := cleanText(string(w.CompanyName))
	if name == "" {
		// individuals carry no company name
		name = cleanText(string(w.EntityID))
	}
	return erpsync.Customer{
		CustomerID:   string(w.ID),
		EntityID:     cleanText(string(w.EntityID)),
		CompanyName:  name,
		Email:        cleanEmail(string(w.Email)),
		Phone:        cleanText(string(w.Phone)),
		Subsidiary:   string(w.Subsidiary),
		Terms:        cleanText(string(w.Terms)),
		CreditLimit:  creditLimit,
		Balance:      balance,
		Inactive:     bool(w.IsInactive),
		LastModified: modified,
	}, nil
}

// etaRow is one line of the ETA export file.
type etaRow struct {
	ItemID       remoteString `json:"item_id"`
	LocationID   remoteString `json:"location_id"`
	SOID         remoteString `json:"so_id"`
	LineSeq      remoteString `json:"line_seq"`
	CustomerID   remoteString `json:"customer_id"`
	ItemName     remoteString `json:"item_name"`
	SONumber     remoteString `json:"so_number"`
	PONumber     remoteString `json:"po_number"`
	QuantityOpen remoteString `json:"quantity_open"`
	ExpectedDate remoteString `json:"expected_date"`
	Status       remoteString `json:"status"`
}

func toShipmentETA(w etaRow) (erpsync.ShipmentETA, error) {
	seq, err := parseInt(w.LineSeq)
	if err != nil {
		return erpsync.ShipmentETA{}, fmt.Errorf("line_seq: %w", err)
	}
	qty, err := parseDecimal(w.QuantityOpen)
	if err != nil {
		return erpsync.ShipmentETA{}, fmt.Errorf("quantity_open: %w", err)
	}
	expected, err := parseDate(w.ExpectedDate)
	if err != nil {
		return erpsync.ShipmentETA{}, fmt.Errorf("expected_date: %w", err)
	}
	return erpsync.ShipmentETA{
		ItemID:       string(w.ItemID),
		LocationID:   string(w.LocationID),
		SOID:         string(w.SOID),
		LineSeq:      seq,
		CustomerID:   string(w.CustomerID),
		ItemName:     cleanText(string(w.ItemName)),
		SONumber:     cleanText(string(w.SONumber)),
		PONumber:     cleanText(string(w.PONumber)),
		QuantityOpen: qty,
		ExpectedDate: expected,
		Status:       cleanText(string(w.Status)),
	}, nil
}

// instrumentRow is the query projection of a payment instrument.
type instrumentRow struct {
	ID             remoteString `json:"id"`
	Entity         remoteString `json:"entity"`
	InstrumentType remoteString `json:"instrumenttype"`
	Brand          remoteString `json:"brand"`
	Mask           remoteString `json:"mask"`
	ExpMonth       remoteString `json:"expmonth"`
	ExpYear        remoteString `json:"expyear"`
	IsDefault      remoteBool   `json:"isdefault"`
	IsInactive     remoteBool   `json:"isinactive"`
}

func toPaymentInstrument(w instrumentRow) (erpsync.PaymentInstrument, error) {
	month, err := parseInt(w.ExpMonth)
	if err != nil {
		return erpsync.PaymentInstrument{}, fmt.Errorf("expmonth: %w", err)
	}
	year, err := parseInt(w.ExpYear)
	if err != nil {
		return erpsync.PaymentInstrument{}, fmt.Errorf("expyear: %w", err)
	}
	return erpsync.PaymentInstrument{
		InstrumentID:   string(w.ID),
		CustomerID:     string(w.Entity),
		InstrumentType: instrumentType(string(w.InstrumentType)),
		Brand:          cleanText(string(w.Brand)),
		Last4:          last4(string(w.Mask)),
		ExpMonth:       month,
		ExpYear:        year,
		IsDefault:      bool(w.IsDefault),
		Inactive:       bool(w.IsInactive),
	}, nil
}

// instrumentType maps the ERP's numeric or textual instrument type.
func instrumentType(v string) string {
	switch cleanCode(v) {
	case "1", "card", "payment_card", "paymentcard", "credit_card":
		return "card"
	case "2", "ach", "bank", "general_token", "generaltoken":
		return "ach"
	default:
		return "other"
	}
}

// last4 keeps the trailing digits of a masked number like "************4242".
func last4(mask string) string {
	digits := make([]rune, 0, 4)
	for _, r := range mask {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

// identifierRow is one line of the identifier export file.
type identifierRow struct {
	CustomerID     remoteString `json:"customer_id"`
	IdentifierType remoteString `json:"identifier_type"`
	Value          remoteString `json:"value"`
	Source         remoteString `json:"source"`
}

func toCustomerIdentifier(w identifierRow) (erpsync.CustomerIdentifier, error) {
	typ := cleanCode(string(w.IdentifierType))
	value := cleanText(string(w.Value))
	if typ == "email" {
		value = cleanEmail(value)
	}
	return erpsync.CustomerIdentifier{
		CustomerID:     string(w.CustomerID),
		IdentifierType: typ,
		Value:          value,
		Source:         cleanText(string(w.Source)),
	}, nil
}
