package erpsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// Job is one purpose-built extraction and reconcile run. Run fills report
// as it goes so that a failed run still reports what was committed.
type Job interface {
	Name() string
	Run(ctx context.Context, params JobParams, report *erpsync.JobReport) error
}

// JobConfig holds the tunables shared by the jobs.
type JobConfig struct {
	BatchSize           int
	DefaultConcurrency  int
	MaxConcurrency      int
	DefaultLookbackDays int
	PageLines           int
	ETAManifestFileID   string
	ETAExportName       string
	IdentifierFileName  string
	IdentifierFolder    string
}

// Deps are the collaborators the jobs drive.
type Deps struct {
	Query   erpsync.RemoteQuerier
	Files   erpsync.ExportFiles
	Store   erpsync.Store
	Cursors erpsync.CursorRepository
	// Archive is optional.
	Archive erpsync.Archive
	Logger  *zap.Logger
	// Now is overridable in tests.
	Now func() time.Time
}

// NewJobs builds the four sync jobs.
func NewJobs(deps Deps, cfg JobConfig) []Job {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	v := NewValidator()
	return []Job{
		&CustomersJob{deps: deps, cfg: cfg, validate: v},
		&ETAJob{deps: deps, cfg: cfg, validate: v},
		&InstrumentsJob{deps: deps, cfg: cfg, validate: v},
		&IdentifiersJob{deps: deps, cfg: cfg, validate: v},
	}
}

// NewValidator returns a validator that reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func reconcileOptions(cfg JobConfig, params JobParams, now time.Time) erpsync.ReconcileOptions {
	return erpsync.ReconcileOptions{
		DryRun:    params.DryRun,
		BatchSize: cfg.BatchSize,
		Now:       now.UTC(),
	}
}

func pageLines(cfg JobConfig, params JobParams) int {
	if params.PageLines > 0 {
		return params.PageLines
	}
	return cfg.PageLines
}

// readExport drains reader page by page, decoding every batch. Counters
// are folded into report even when a page fails.
func readExport[W any, R any](ctx context.Context, reader erpsync.PageReader, dec *rowDecoder[W, R], report *erpsync.JobReport) (out []R, err error) {
	pages := 0
	defer func() {
		report.RowsRead += reader.Skipped()
		report.RowsSkipped += reader.Skipped()
		report.RowsValid += len(out)
		dec.Report(report)
		report.Set("pages", pages)
		report.Set("lines_read", reader.LinesRead())
	}()
	for {
		batch, err := reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		pages++
		report.RowsRead += len(batch)
		out = dec.Decode(batch, out)
	}
}

// requireValidRows rejects an export that had content but produced no valid
// row. Replacing a scope with nothing would soft-delete every row in it.
func requireValidRows(fileID string, declared, valid int, report *erpsync.JobReport) error {
	if valid > 0 || (declared <= 0 && report.RowsSkipped == 0) {
		return nil
	}
	return erpsync.NewMalformedError("NO_VALID_ROWS",
		"export %s has no valid rows (%d declared, %d read, %d skipped)",
		fileID, declared, report.RowsRead, report.RowsSkipped)
}

// ArchiveKey is the object key for an audit artifact of a run.
func ArchiveKey(job, runID, name string) string {
	return fmt.Sprintf("sync/%s/%s/%s", job, runID, name)
}

// archive stores body when an archive is configured. Failures are logged
// and never fail the run.
func archive(ctx context.Context, deps Deps, key string, body []byte, contentType string) {
	if deps.Archive == nil || len(body) == 0 {
		return
	}
	if err := deps.Archive.Put(ctx, key, body, contentType); err != nil {
		deps.Logger.Warn("Failed to archive sync artifact", zap.String("key", key), zap.Error(err))
	}
}

func distinct[T any](rows []T, field func(T) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		v := field(r)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// keepIn drops rows whose field is outside allowed and returns how many
// were dropped.
func keepIn[T any](rows []T, allowed []string, field func(T) string) ([]T, int) {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	out := rows[:0]
	for _, r := range rows {
		if _, ok := set[field(r)]; ok {
			out = append(out, r)
		}
	}
	return out, len(rows) - len(out)
}
