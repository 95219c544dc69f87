package erpsync

import (
	"context"
	"time"
)

// DefaultBatchSize is the number of rows written per upsert statement.
const DefaultBatchSize = 500

// Scope is the slice of natural-key space a run claims to represent fully.
// Only live rows whose Field value is in Values can be soft-deleted.
// An empty Values list means incremental merge: nothing is soft-deleted.
type Scope struct {
	Field  string
	Values []string
}

// ScopeOf builds a scope on field over the distinct non-empty values.
func ScopeOf(field string, values ...string) Scope {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return Scope{Field: field, Values: out}
}

// IsSnapshot reports whether the scope triggers the soft-delete phase.
func (s Scope) IsSnapshot() bool {
	return s.Field != "" && len(s.Values) > 0
}

// ReconcileOptions tunes one reconcile call.
type ReconcileOptions struct {
	DryRun    bool
	BatchSize int
	// Now overrides the timestamp written to synced_at and ns_deleted_at.
	Now time.Time
}

// Normalize fills defaults.
func (o ReconcileOptions) Normalize() ReconcileOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	return o
}

// ReconcileResult holds the write counts of a reconcile.
type ReconcileResult struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	SoftDeleted int `json:"soft_deleted"`
	Batches     int `json:"batches"`
}

// Add accumulates other into r.
func (r *ReconcileResult) Add(other ReconcileResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.SoftDeleted += other.SoftDeleted
	r.Batches += other.Batches
}

// Written is the total number of rows touched.
func (r ReconcileResult) Written() int {
	return r.Inserted + r.Updated + r.SoftDeleted
}

// Store is the persistence port for synced records.
//
// Every method is two-phase (soft-delete in scope, then upsert). On a write
// failure the partial result committed so far is returned with the error.
type Store interface {
	// UpsertCustomers merges customers without soft-deleting anything.
	UpsertCustomers(ctx context.Context, rows []Customer, opts ReconcileOptions) (ReconcileResult, error)
	// ReplaceShipmentETAs replaces the ETA snapshot within scope.
	ReplaceShipmentETAs(ctx context.Context, scope Scope, rows []ShipmentETA, opts ReconcileOptions) (ReconcileResult, error)
	// ReplaceInstruments replaces one customer's payment instruments.
	ReplaceInstruments(ctx context.Context, customerID string, rows []PaymentInstrument, opts ReconcileOptions) (ReconcileResult, error)
	// ReplaceIdentifiers replaces the identifier snapshot within scope.
	ReplaceIdentifiers(ctx context.Context, scope Scope, rows []CustomerIdentifier, opts ReconcileOptions) (ReconcileResult, error)
	// LiveCustomerIDs lists customers that are not soft-deleted.
	LiveCustomerIDs(ctx context.Context) ([]string, error)
}

// CursorRepository persists the watermark of incremental jobs by job name.
type CursorRepository interface {
	// Get returns the stored watermark; ok is false when none exists.
	Get(ctx context.Context, job string) (watermark time.Time, ok bool, err error)
	Save(ctx context.Context, job string, watermark time.Time) error
}
