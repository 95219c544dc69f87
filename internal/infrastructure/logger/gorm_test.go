package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func sqlFn() (string, int64) { return "UPDATE erp_customers SET synced_at = ?", 3 }

func TestGormLogger_TraceLevels(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(10*time.Millisecond))
	ctx := WithRun(context.Background(), "etas", "run-1")

	gl.Trace(ctx, time.Now(), sqlFn, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), sqlFn, nil)
	gl.Trace(ctx, time.Now(), sqlFn, errors.New("deadlock"))
	gl.Trace(ctx, time.Now(), sqlFn, gormlogger.ErrRecordNotFound)

	entries := recorded.All()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
		assert.Equal(t, "run-1", entries[0].ContextMap()["run_id"])
		assert.Equal(t, int64(3), entries[0].ContextMap()["rows"])
	}
}

func TestGormLogger_SilentAndLogMode(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithIgnoreRecordNotFoundError(false))

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), sqlFn, errors.New("x"))
	assert.Equal(t, 0, recorded.Len())
	assert.Equal(t, gormlogger.Info, gl.logLevel)

	gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.Len())
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("whatever"))
}
