package persistence

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// scopeChunkSize bounds the IN list of one soft-delete statement.
const scopeChunkSize = 1000

// SyncedRow is implemented by pointers to reconciled models.
type SyncedRow[M any] interface {
	*M
	TableName() string
	NaturalKey() []any
	MarkSynced(at time.Time)
}

// TableSpec describes how a table is reconciled.
type TableSpec struct {
	// KeyColumns is the natural key and the ON CONFLICT target.
	KeyColumns []string
	// PreserveColumns are portal-owned and left out of the update clause.
	PreserveColumns []string
}

// Reconciler merges snapshots of M into its table. A reconcile is always
// soft-delete in scope first, then batched upsert; callers cannot reorder
// the phases.
type Reconciler[M any, P SyncedRow[M]] struct {
	db            *gorm.DB
	table         string
	keyColumns    []string
	updateColumns []string
	columns       map[string]struct{}
	logger        *zap.Logger
}

// NewReconciler derives the update column list from the model schema.
func NewReconciler[M any, P SyncedRow[M]](db *gorm.DB, spec TableSpec, logger *zap.Logger) (*Reconciler[M, P], error) {
	if len(spec.KeyColumns) == 0 {
		return nil, fmt.Errorf("persistence: reconciler needs key columns")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s, err := schema.Parse(new(M), &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("persistence: parse schema: %w", err)
	}

	columns := make(map[string]struct{}, len(s.DBNames))
	for _, name := range s.DBNames {
		columns[name] = struct{}{}
	}
	for _, c := range append(slices.Clone(spec.KeyColumns), spec.PreserveColumns...) {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("persistence: %s has no column %q", s.Table, c)
		}
	}
	for _, c := range []string{"synced_at", "ns_deleted_at"} {
		if _, ok := columns[c]; !ok {
			return nil, fmt.Errorf("persistence: %s is missing lifecycle column %q", s.Table, c)
		}
	}

	skip := map[string]struct{}{"created_at": {}}
	for _, f := range s.PrimaryFields {
		skip[f.DBName] = struct{}{}
	}
	for _, c := range spec.KeyColumns {
		skip[c] = struct{}{}
	}
	for _, c := range spec.PreserveColumns {
		skip[c] = struct{}{}
	}
	var update []string
	for _, name := range s.DBNames {
		if _, ok := skip[name]; !ok {
			update = append(update, name)
		}
	}

	return &Reconciler[M, P]{
		db:            db,
		table:         P(new(M)).TableName(),
		keyColumns:    spec.KeyColumns,
		updateColumns: update,
		columns:       columns,
		logger:        logger.With(zap.String("table", s.Table)),
	}, nil
}

// UpdateColumns returns the columns written on conflict.
func (r *Reconciler[M, P]) UpdateColumns() []string {
	return slices.Clone(r.updateColumns)
}

// Reconcile writes rows. When scope is a snapshot scope, live rows in scope
// are soft-deleted first so that rows missing from the snapshot stay deleted
// and rows present are revived by the upsert. Each batch commits on its own;
// on error the counts committed so far are returned.
func (r *Reconciler[M, P]) Reconcile(ctx context.Context, scope erpsync.Scope, rows []M, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	opts = opts.Normalize()
	rows = r.dedupe(rows)

	var result erpsync.ReconcileResult
	if scope.IsSnapshot() {
		if _, ok := r.columns[scope.Field]; !ok {
			return result, erpsync.NewInvalidInputError("%s cannot be scoped by %q", r.table, scope.Field)
		}
		deleted, err := r.softDeleteScope(ctx, scope, rows, opts)
		if err != nil {
			return result, r.wrap(ctx, "soft-delete", err)
		}
		result.SoftDeleted = deleted
	}

	for start := 0; start < len(rows); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(rows))
		batch := slices.Clone(rows[start:end])

		inserted, updated, err := r.upsertBatch(ctx, batch, opts)
		if err != nil {
			r.logger.Error("Batch upsert failed, aborting remaining batches",
				zap.Int("batch", result.Batches+1),
				zap.Int("committed_rows", result.Inserted+result.Updated),
				zap.Error(err),
			)
			return result, r.wrap(ctx, "upsert", err)
		}
		result.Inserted += inserted
		result.Updated += updated
		result.Batches++
	}

	r.logger.Debug("Reconcile finished",
		zap.Bool("dry_run", opts.DryRun),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("soft_deleted", result.SoftDeleted),
	)
	return result, nil
}

// softDeleteScope marks every live row in scope deleted and returns how many
// of them are absent from rows, i.e. how many stay deleted after the upsert.
func (r *Reconciler[M, P]) softDeleteScope(ctx context.Context, scope erpsync.Scope, rows []M, opts erpsync.ReconcileOptions) (int, error) {
	incoming := make(map[string]struct{}, len(rows))
	for i := range rows {
		incoming[keyString(P(&rows[i]).NaturalKey())] = struct{}{}
	}

	absent := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for chunk := range slices.Chunk(scope.Values, scopeChunkSize) {
			values := toAny(chunk)

			var live []M
			if err := r.liveInScope(tx, scope.Field, values).Select(r.keyColumns).Find(&live).Error; err != nil {
				return err
			}
			for i := range live {
				if _, ok := incoming[keyString(P(&live[i]).NaturalKey())]; !ok {
					absent++
				}
			}
			if opts.DryRun || len(live) == 0 {
				continue
			}

			res := r.liveInScope(tx, scope.Field, values).Updates(map[string]any{
				"ns_deleted_at": opts.Now,
				"synced_at":     opts.Now,
			})
			if res.Error != nil {
				return res.Error
			}
		}
		return nil
	})
	return absent, err
}

func (r *Reconciler[M, P]) liveInScope(tx *gorm.DB, field string, values []any) *gorm.DB {
	return tx.Model(new(M)).
		Where("ns_deleted_at IS NULL").
		Where(clause.IN{Column: clause.Column{Name: field}, Values: values})
}

// upsertBatch counts which keys already exist, then writes the batch with a
// single ON CONFLICT statement inside one transaction.
func (r *Reconciler[M, P]) upsertBatch(ctx context.Context, batch []M, opts erpsync.ReconcileOptions) (inserted, updated int, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := r.existingKeys(tx, batch)
		if err != nil {
			return err
		}
		for i := range batch {
			if _, ok := existing[keyString(P(&batch[i]).NaturalKey())]; ok {
				updated++
			} else {
				inserted++
			}
			P(&batch[i]).MarkSynced(opts.Now)
		}
		if opts.DryRun {
			return nil
		}

		conflictCols := make([]clause.Column, len(r.keyColumns))
		for i, c := range r.keyColumns {
			conflictCols[i] = clause.Column{Name: c}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   conflictCols,
			DoUpdates: clause.AssignmentColumns(r.updateColumns),
		}).Create(&batch).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// existingKeys returns the keys of batch already stored, soft-deleted or not.
func (r *Reconciler[M, P]) existingKeys(tx *gorm.DB, batch []M) (map[string]struct{}, error) {
	keys := make([][]any, len(batch))
	for i := range batch {
		keys[i] = P(&batch[i]).NaturalKey()
	}

	q := tx.Model(new(M)).Select(r.keyColumns)
	if len(r.keyColumns) == 1 {
		flat := make([]any, len(keys))
		for i, k := range keys {
			flat[i] = k[0]
		}
		q = q.Where(clause.IN{Column: clause.Column{Name: r.keyColumns[0]}, Values: flat})
	} else {
		// Row-value IN lists are not portable, so composite keys are
		// matched as an OR of per-key equalities.
		conds := make([]clause.Expression, len(keys))
		for i, k := range keys {
			eqs := make([]clause.Expression, len(r.keyColumns))
			for j, c := range r.keyColumns {
				eqs[j] = clause.Eq{Column: clause.Column{Name: c}, Value: k[j]}
			}
			conds[i] = clause.And(eqs...)
		}
		q = q.Where(clause.Or(conds...))
	}

	var found []M
	if err := q.Find(&found).Error; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(found))
	for i := range found {
		out[keyString(P(&found[i]).NaturalKey())] = struct{}{}
	}
	return out, nil
}

// dedupe collapses rows sharing a natural key, keeping the last one at the
// position of the first. ON CONFLICT cannot touch one row twice per statement.
func (r *Reconciler[M, P]) dedupe(rows []M) []M {
	index := make(map[string]int, len(rows))
	out := make([]M, 0, len(rows))
	for _, row := range rows {
		k := keyString(P(&row).NaturalKey())
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	if dropped := len(rows) - len(out); dropped > 0 {
		r.logger.Warn("Duplicate natural keys in snapshot", zap.Int("dropped", dropped))
	}
	return out
}

func (r *Reconciler[M, P]) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return erpsync.NewPersistenceError(op+" "+r.table, err)
}

func keyString(parts []any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
