package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig holds database instrumentation settings.
type DBConfig struct {
	TraceEnabled    bool
	LogFullSQL      bool          // include bind variables in spans, dev only
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default postgresql
	// TracerProvider overrides the global provider for otelgorm.
	TracerProvider trace.TracerProvider
}

// DBInstrumentation is a gorm plugin that records query metrics, flags slow
// statements on the active span and, when enabled, installs otelgorm.
type DBInstrumentation struct {
	cfg    DBConfig
	meter  metric.Meter
	logger *zap.Logger

	queryTotal    *Counter
	queryDuration *Histogram
	slowTotal     *Counter
}

var _ gorm.Plugin = (*DBInstrumentation)(nil)

type dbStartKey struct{}

// NewDBInstrumentation creates the plugin; register it with db.Use.
func NewDBInstrumentation(cfg DBConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if cfg.SlowQueryThresh == 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	queryTotal, err := NewCounter(meter, "db_query_total", "Database statements by operation and table", "{query}")
	if err != nil {
		return nil, err
	}
	queryDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	slowTotal, err := NewCounter(meter, "db_slow_query_total", "Statements slower than the slow query threshold", "{query}")
	if err != nil {
		return nil, err
	}

	return &DBInstrumentation{
		cfg:           cfg,
		meter:         meter,
		logger:        logger,
		queryTotal:    queryTotal,
		queryDuration: queryDuration,
		slowTotal:     slowTotal,
	}, nil
}

// Name implements gorm.Plugin.
func (p *DBInstrumentation) Name() string {
	return "portalsync:db_instrumentation"
}

// Initialize implements gorm.Plugin.
func (p *DBInstrumentation) Initialize(db *gorm.DB) error {
	if p.cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(p.cfg.DBSystem)}
		if !p.cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if p.cfg.TracerProvider != nil {
			opts = append(opts, otelgorm.WithTracerProvider(p.cfg.TracerProvider))
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	if err := p.registerCallbacks(db); err != nil {
		return err
	}
	if err := p.observePool(db); err != nil {
		return err
	}

	p.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", p.cfg.TraceEnabled),
		zap.Duration("slow_query_threshold", p.cfg.SlowQueryThresh),
	)
	return nil
}

type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerCallbacks wraps every statement kind. The after hooks run before
// otelgorm ends its span so slow statements can be annotated on it.
func (p *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name     string
		callback registrar
		fn       func(*gorm.DB)
	}{
		{"before_create", cb.Create().Before("gorm:create"), p.before},
		{"before_query", cb.Query().Before("gorm:query"), p.before},
		{"before_update", cb.Update().Before("gorm:update"), p.before},
		{"before_delete", cb.Delete().Before("gorm:delete"), p.before},
		{"before_row", cb.Row().Before("gorm:row"), p.before},
		{"before_raw", cb.Raw().Before("gorm:raw"), p.before},

		{"after_create", cb.Create().After("gorm:create").Before("otel:after:create"), p.after("INSERT")},
		{"after_query", cb.Query().After("gorm:query").Before("otel:after:query"), p.after("SELECT")},
		{"after_update", cb.Update().After("gorm:update").Before("otel:after:update"), p.after("UPDATE")},
		{"after_delete", cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.after("DELETE")},
		{"after_row", cb.Row().After("gorm:row").Before("otel:after:row"), p.after("")},
		{"after_raw", cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.after("")},
	}
	for _, h := range hooks {
		if err := h.callback.Register("instrumentation:"+h.name, h.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p *DBInstrumentation) before(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	db.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

// after records the statement. An empty operation is inferred from the SQL.
func (p *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		op := operation
		if op == "" {
			op = DetectOperation(db.Statement.SQL.String())
		}

		attrs := []attribute.KeyValue{AttrDBOp.String(op), AttrDBTable.String(db.Statement.Table)}
		p.queryTotal.Inc(ctx, attrs...)

		start, ok := ctx.Value(dbStartKey{}).(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		p.queryDuration.RecordDuration(ctx, elapsed, attrs...)

		span := trace.SpanFromContext(ctx)
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) && span.IsRecording() {
			span.RecordError(db.Error)
		}
		if elapsed > p.cfg.SlowQueryThresh {
			p.slowTotal.Inc(ctx, attrs...)
			if span.IsRecording() {
				span.AddEvent("slow_query", trace.WithAttributes(
					attribute.String("db.table", db.Statement.Table),
					attribute.Int64("duration_ms", elapsed.Milliseconds()),
					attribute.Int64("threshold_ms", p.cfg.SlowQueryThresh.Milliseconds()),
				))
			}
		}
	}
}

// observePool exports sql.DB pool stats on every collection.
func (p *DBInstrumentation) observePool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	state := attribute.Key("db.pool.state")
	_, err = p.meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			s := sqlDB.Stats()
			o.Observe(int64(s.InUse), metric.WithAttributes(state.String("in_use")))
			o.Observe(int64(s.Idle), metric.WithAttributes(state.String("idle")))
			o.Observe(int64(s.MaxOpenConnections), metric.WithAttributes(state.String("max")))
			return nil
		}),
	)
	return err
}

// DetectOperation returns the SQL verb of a raw statement.
func DetectOperation(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}
