package erpsync

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

// MockStore is a mock implementation of erpsync.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) UpsertCustomers(ctx context.Context, rows []erpsync.Customer, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	args := m.Called(ctx, rows, opts)
	return args.Get(0).(erpsync.ReconcileResult), args.Error(1)
}

func (m *MockStore) ReplaceShipmentETAs(ctx context.Context, scope erpsync.Scope, rows []erpsync.ShipmentETA, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	args := m.Called(ctx, scope, rows, opts)
	return args.Get(0).(erpsync.ReconcileResult), args.Error(1)
}

func (m *MockStore) ReplaceInstruments(ctx context.Context, customerID string, rows []erpsync.PaymentInstrument, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	args := m.Called(ctx, customerID, rows, opts)
	return args.Get(0).(erpsync.ReconcileResult), args.Error(1)
}

func (m *MockStore) ReplaceIdentifiers(ctx context.Context, scope erpsync.Scope, rows []erpsync.CustomerIdentifier, opts erpsync.ReconcileOptions) (erpsync.ReconcileResult, error) {
	args := m.Called(ctx, scope, rows, opts)
	return args.Get(0).(erpsync.ReconcileResult), args.Error(1)
}

func (m *MockStore) LiveCustomerIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockQuerier is a mock implementation of erpsync.RemoteQuerier
type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, statement, tag string) ([]json.RawMessage, error) {
	args := m.Called(ctx, statement, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

// MockFiles is a mock implementation of erpsync.ExportFiles
type MockFiles struct {
	mock.Mock
}

func (m *MockFiles) ResolveFileID(ctx context.Context, name, folder string) (string, error) {
	args := m.Called(ctx, name, folder)
	return args.String(0), args.Error(1)
}

func (m *MockFiles) ResolveViaManifest(ctx context.Context, manifestFileID, export string) (*erpsync.ManifestEntry, error) {
	args := m.Called(ctx, manifestFileID, export)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erpsync.ManifestEntry), args.Error(1)
}

func (m *MockFiles) Stream(fileID string, opts erpsync.StreamOptions) erpsync.PageReader {
	args := m.Called(fileID, opts)
	return args.Get(0).(erpsync.PageReader)
}

// MockCursors is a mock implementation of erpsync.CursorRepository
type MockCursors struct {
	mock.Mock
}

func (m *MockCursors) Get(ctx context.Context, job string) (time.Time, bool, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockCursors) Save(ctx context.Context, job string, watermark time.Time) error {
	args := m.Called(ctx, job, watermark)
	return args.Error(0)
}

// MockRuns is a mock implementation of erpsync.RunRepository
type MockRuns struct {
	mock.Mock
}

func (m *MockRuns) Create(ctx context.Context, run *erpsync.SyncRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRuns) Save(ctx context.Context, run *erpsync.SyncRun) error {
	return m.Called(ctx, run).Error(0)
}

func (m *MockRuns) FindByID(ctx context.Context, id uuid.UUID) (*erpsync.SyncRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*erpsync.SyncRun), args.Error(1)
}

func (m *MockRuns) ListRecent(ctx context.Context, job string, limit int) ([]erpsync.SyncRun, error) {
	args := m.Called(ctx, job, limit)
	return args.Get(0).([]erpsync.SyncRun), args.Error(1)
}

// memArchive records archived objects.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *memArchive) Put(_ context.Context, key string, body []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objects == nil {
		a.objects = map[string][]byte{}
	}
	a.objects[key] = body
	return nil
}

// pagesReader serves fixed pages and then io.EOF.
type pagesReader struct {
	pages   [][]json.RawMessage
	err     error
	skipped int
	read    int
}

func (r *pagesReader) Next(context.Context) ([]json.RawMessage, error) {
	if len(r.pages) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	p := r.pages[0]
	r.pages = r.pages[1:]
	r.read += len(p)
	return p, nil
}

func (r *pagesReader) LinesRead() int { return r.read + r.skipped }
func (r *pagesReader) Skipped() int   { return r.skipped }

func raws(lines ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(lines))
	for i, l := range lines {
		out[i] = json.RawMessage(l)
	}
	return out
}

var fixedNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func testDeps(q *MockQuerier, f *MockFiles, s *MockStore, c *MockCursors) Deps {
	d := Deps{Now: func() time.Time { return fixedNow }}
	if q != nil {
		d.Query = q
	}
	if f != nil {
		d.Files = f
	}
	if s != nil {
		d.Store = s
	}
	if c != nil {
		d.Cursors = c
	}
	return d
}

func jobByName(t interface{ Fatalf(string, ...any) }, deps Deps, cfg JobConfig, name string) Job {
	for _, j := range NewJobs(deps, cfg) {
		if j.Name() == name {
			return j
		}
	}
	t.Fatalf("no job %s", name)
	return nil
}
