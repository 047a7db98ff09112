package migration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/propflow/migrator/internal/adapter/source/docstore"
	"github.com/propflow/migrator/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *Config {
	return &Config{
		BatchSize:       10,
		Concurrency:     2,
		ErrorSampleSize: 25,
		DefaultRegion:   "Greater Cairo",
		CodePrefix:      "PROP",
		SampleJoinLimit: 50,
	}
}

// mockSource serves a fixed record set page by page.
type mockSource struct {
	mu      sync.Mutex
	records []map[string]any
	total   int
	calls   int
	err     error
	// errAfter fails every FetchPage once calls exceeds it; 0 disables.
	errAfter int
}

func (m *mockSource) FetchPage(_ context.Context, offset, limit int) (*docstore.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil && (m.errAfter == 0 || m.calls > m.errAfter) {
		return nil, m.err
	}

	end := min(offset+limit, len(m.records))
	if offset > len(m.records) {
		offset = len(m.records)
	}
	page := &docstore.Page{
		Total:   m.total,
		HasMore: end < len(m.records),
	}
	for _, fields := range m.records[offset:end] {
		page.Records = append(page.Records, domain.NewSourceRecord(fields))
	}
	return page, nil
}

// mockDimStore keeps dimensions in memory keyed by kind and natural key.
type mockDimStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[domain.DimensionKind]map[string]*domain.Dimension

	getCalls    int
	createCalls int

	getErr    error
	createErr error
	// panicOn makes GetByNaturalKey panic for this key, standing in for
	// a record whose assembly blows up mid-flight.
	panicOn string
	// conflictOn makes Create report a uniqueness conflict for this key
	// while also inserting the row, simulating a lost insert race.
	conflictOn string
}

func newMockDimStore() *mockDimStore {
	return &mockDimStore{rows: make(map[domain.DimensionKind]map[string]*domain.Dimension)}
}

func (m *mockDimStore) GetByNaturalKey(_ context.Context, kind domain.DimensionKind, naturalKey string) (*domain.Dimension, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.panicOn != "" && naturalKey == m.panicOn {
		panic(fmt.Sprintf("dimension lookup %q", naturalKey))
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	if row, ok := m.rows[kind][naturalKey]; ok {
		return row, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockDimStore) Create(_ context.Context, kind domain.DimensionKind, name, naturalKey string, parentID *int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return 0, m.createErr
	}
	if m.rows[kind] == nil {
		m.rows[kind] = make(map[string]*domain.Dimension)
	}
	if _, exists := m.rows[kind][naturalKey]; exists {
		return 0, fmt.Errorf("%s %q: %w", kind, naturalKey, domain.ErrAlreadyExists)
	}
	m.nextID++
	row := &domain.Dimension{ID: m.nextID, Kind: kind, Name: name, NaturalKey: naturalKey, ParentID: parentID}
	m.rows[kind][naturalKey] = row
	if naturalKey == m.conflictOn {
		return 0, fmt.Errorf("%s %q: %w", kind, naturalKey, domain.ErrAlreadyExists)
	}
	return row.ID, nil
}

func (m *mockDimStore) CountByKind(_ context.Context, kind domain.DimensionKind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows[kind])), nil
}

func (m *mockDimStore) get(kind domain.DimensionKind, naturalKey string) *domain.Dimension {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[kind][naturalKey]
}

// mockPropStore keeps properties in memory keyed by external id.
type mockPropStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*domain.Property

	upsertCalls int
	upsertErr   error
	idMapErr    error
}

func newMockPropStore() *mockPropStore {
	return &mockPropStore{rows: make(map[string]*domain.Property)}
}

func (m *mockPropStore) BulkUpsert(_ context.Context, props []domain.Property) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertCalls++
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	for i := range props {
		p := props[i]
		if existing, ok := m.rows[p.ExternalID]; ok {
			p.ID = existing.ID
		} else {
			m.nextID++
			p.ID = m.nextID
		}
		m.rows[p.ExternalID] = &p
	}
	return len(props), nil
}

func (m *mockPropStore) GetIDsByExternalIDs(_ context.Context, externalIDs []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idMapErr != nil {
		return nil, m.idMapErr
	}
	ids := make(map[string]int64, len(externalIDs))
	for _, ext := range externalIDs {
		if row, ok := m.rows[ext]; ok {
			ids[ext] = row.ID
		}
	}
	return ids, nil
}

func (m *mockPropStore) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *mockPropStore) CountUnresolvedAreas(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.AreaID == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockPropStore) SampleJoin(_ context.Context, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return min(len(m.rows), limit), nil
}

func (m *mockPropStore) get(externalID string) *domain.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[externalID]
}

// mockMediaStore keeps media rows per property.
type mockMediaStore struct {
	mu     sync.Mutex
	images map[int64][]domain.PropertyImage
	videos map[int64][]domain.PropertyVideo

	replaceCalls int
	replaceErr   error
	// failFor makes ReplaceForProperty fail for one property id only.
	failFor int64
}

func newMockMediaStore() *mockMediaStore {
	return &mockMediaStore{
		images: make(map[int64][]domain.PropertyImage),
		videos: make(map[int64][]domain.PropertyVideo),
	}
}

func (m *mockMediaStore) ReplaceForProperty(_ context.Context, propertyID int64, images []domain.PropertyImage, videos []domain.PropertyVideo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if m.failFor != 0 && propertyID == m.failFor {
		return fmt.Errorf("property %d: %w", propertyID, domain.ErrStoreUnavailable)
	}
	m.images[propertyID] = images
	m.videos[propertyID] = videos
	return nil
}

func (m *mockMediaStore) CountImages(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rows := range m.images {
		n += int64(len(rows))
	}
	return n, nil
}

func (m *mockMediaStore) CountVideos(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rows := range m.videos {
		n += int64(len(rows))
	}
	return n, nil
}

func (m *mockMediaStore) CountOrphans(_ context.Context) (int64, error) {
	return 0, nil
}

// mockRunStore records the audit calls.
type mockRunStore struct {
	mu       sync.Mutex
	started  []domain.MigrationRun
	finished []domain.MigrationRun
	startErr error
}

func (m *mockRunStore) Start(_ context.Context, run domain.MigrationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.started = append(m.started, run)
	return nil
}

func (m *mockRunStore) Finish(_ context.Context, run domain.MigrationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, run)
	return nil
}

// listingRecord builds a plausible source document for tests.
func listingRecord(id string, overrides map[string]any) map[string]any {
	fields := map[string]any{
		"id":           id,
		"title":        "Apartment " + id,
		"area":         "New Cairo",
		"category":     "Residential",
		"type":         "Apartment",
		"totalPrice":   "2,500,000",
		"bedrooms":     float64(3),
		"lastModified": "2026-01-15T10:00:00Z",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

func sourceRecords(fields ...map[string]any) []domain.SourceRecord {
	records := make([]domain.SourceRecord, 0, len(fields))
	for _, f := range fields {
		records = append(records, domain.NewSourceRecord(f))
	}
	return records
}
