package erpsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

const instrumentQuery = `SELECT pi.id, pi.entity, pi.instrumenttype, BUILTIN.DF(pi.paymentmethod) AS brand,
 pi.mask, pi.expirationmonth AS expmonth, pi.expirationyear AS expyear, pi.isdefault, pi.isinactive
 FROM paymentinstrument pi WHERE pi.entity = %s ORDER BY pi.id`

// InstrumentsJob fetches payment instruments one customer at a time and
// replaces each customer's instruments independently.
type InstrumentsJob struct {
	deps     Deps
	cfg      JobConfig
	validate *validator.Validate
}

func (j *InstrumentsJob) Name() string { return erpsync.JobInstruments }

func (j *InstrumentsJob) Run(ctx context.Context, params JobParams, report *erpsync.JobReport) error {
	now := j.deps.Now()
	opts := reconcileOptions(j.cfg, params, now)

	ids := params.IDs
	if len(ids) == 0 {
		var err error
		if ids, err = j.deps.Store.LiveCustomerIDs(ctx); err != nil {
			return err
		}
	}
	concurrency := j.concurrency(params)
	report.Set("concurrency", concurrency)

	var mu sync.Mutex
	fo, err := FanOut(ctx, ids, func(ctx context.Context, id string) error {
		raws, err := j.deps.Query.Query(ctx, fmt.Sprintf(instrumentQuery, id), "instruments:"+id)
		if err != nil {
			return err
		}
		dec := newRowDecoder(erpsync.JobInstruments, j.validate, toPaymentInstrument, j.deps.Logger)
		rows := dec.Decode(raws, nil)
		rows, foreign := keepIn(rows, []string{id}, func(p erpsync.PaymentInstrument) string { return p.CustomerID })

		res, err := j.deps.Store.ReplaceInstruments(ctx, id, rows, opts)

		mu.Lock()
		report.RowsRead += len(raws)
		report.RowsValid += len(rows)
		report.RowsSkipped += dec.skipped + foreign
		report.AddResult(res)
		mu.Unlock()
		return err
	}, FanOutOptions{Concurrency: concurrency, Logger: j.deps.Logger})

	report.Requested = fo.Requested
	report.Processed = fo.Processed
	report.Failed = fo.Failed
	if len(fo.Failures) > 0 {
		report.Failures = fo.Failures
	}
	return err
}

func (j *InstrumentsJob) concurrency(params JobParams) int {
	c := params.Concurrency
	if c <= 0 {
		c = j.cfg.DefaultConcurrency
	}
	if j.cfg.MaxConcurrency > 0 {
		c = min(c, j.cfg.MaxConcurrency)
	}
	return max(c, 1)
}
