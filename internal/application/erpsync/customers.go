package erpsync

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// maxIDsPerQuery bounds the IN list of one customer query.
const maxIDsPerQuery = 500

const customerColumns = `c.id, c.entityid, c.companyname, c.email, c.phone, c.subsidiary,
 BUILTIN.DF(c.terms) AS terms, c.creditlimit, c.balance, c.isinactive,
 TO_CHAR(c.lastmodifieddate, 'YYYY-MM-DD"T"HH24:MI:SS') AS lastmodified`

// CustomersJob merges recently modified customers. It never soft-deletes:
// a time window is not a complete view of the customer list.
type CustomersJob struct {
	deps     Deps
	cfg      JobConfig
	validate *validator.Validate
}

func (j *CustomersJob) Name() string { return erpsync.JobCustomers }

func (j *CustomersJob) Run(ctx context.Context, params JobParams, report *erpsync.JobReport) error {
	now := j.deps.Now()
	explicit := len(params.IDs) > 0

	var statements []string
	if explicit {
		for chunk := range slices.Chunk(params.IDs, maxIDsPerQuery) {
			statements = append(statements, customerQuery("c.id IN ("+strings.Join(chunk, ", ")+")"))
		}
		report.Set("ids", len(params.IDs))
	} else {
		since, source, err := j.window(ctx, params, now)
		if err != nil {
			return err
		}
		report.Set("since", since.Format(time.RFC3339))
		report.Set("window", source)
		statements = append(statements, customerQuery(fmt.Sprintf(
			"c.lastmodifieddate >= TO_TIMESTAMP('%s', 'YYYY-MM-DD HH24:MI:SS')",
			since.Format("2006-01-02 15:04:05"),
		)))
	}

	dec := newRowDecoder(erpsync.JobCustomers, j.validate, toCustomer, j.deps.Logger)
	var rows []erpsync.Customer
	for i, stmt := range statements {
		raws, err := j.deps.Query.Query(ctx, stmt, fmt.Sprintf("customers#%d", i+1))
		if err != nil {
			return err
		}
		report.RowsRead += len(raws)
		rows = dec.Decode(raws, rows)
	}
	dec.Report(report)
	report.RowsValid = len(rows)

	res, err := j.deps.Store.UpsertCustomers(ctx, rows, reconcileOptions(j.cfg, params, now))
	report.AddResult(res)
	if err != nil {
		return err
	}

	watermark, ok := maxModified(rows)
	if !ok {
		return nil
	}
	report.Set("watermark", watermark.Format(time.RFC3339))
	if explicit || params.DryRun {
		return nil
	}
	if err := j.deps.Cursors.Save(ctx, erpsync.JobCustomers, watermark); err != nil {
		return err
	}
	j.deps.Logger.Debug("Advanced customer cursor", zap.Time("watermark", watermark))
	return nil
}

// window picks the lower bound of the incremental query: an explicit
// lookback wins, then the stored cursor, then the configured default.
func (j *CustomersJob) window(ctx context.Context, params JobParams, now time.Time) (time.Time, string, error) {
	if params.Days > 0 {
		return now.UTC().AddDate(0, 0, -params.Days).Truncate(time.Second), "days", nil
	}
	cursor, ok, err := j.deps.Cursors.Get(ctx, erpsync.JobCustomers)
	if err != nil {
		return time.Time{}, "", err
	}
	if ok {
		return cursor.UTC().Truncate(time.Second), "cursor", nil
	}
	days := max(j.cfg.DefaultLookbackDays, 1)
	return now.UTC().AddDate(0, 0, -days).Truncate(time.Second), "default", nil
}

func customerQuery(where string) string {
	return "SELECT " + customerColumns + " FROM customer c WHERE " + where + " ORDER BY c.lastmodifieddate, c.id"
}

func maxModified(rows []erpsync.Customer) (time.Time, bool) {
	var out time.Time
	for _, r := range rows {
		if r.LastModified.After(out) {
			out = r.LastModified
		}
	}
	return out, !out.IsZero()
}
