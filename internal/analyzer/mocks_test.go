package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/rustcentral/behavior-api/internal/config"
	"github.com/rustcentral/behavior-api/internal/models"
	"github.com/rustcentral/behavior-api/internal/store"
)

// testConfig returns the documented defaults without touching the
// environment.
func testConfig() *config.Config {
	return &config.Config{
		EventsTable:      "events",
		PlayerStateTable: "players",
		DetectionsTable:  "detections",
		EventTTLDays:     90,

		ZScoreThreshold:        3.0,
		MinSamplesForDetection: 100,

		AccuracyInterestingThreshold: 0.7,
		HeadshotInterestingThreshold: 0.5,
		MinShotsForInteresting:       5,
		HighDamageThreshold:          100,

		AccuracyRiskThreshold: 0.5,
		HeadshotRiskThreshold: 0.3,

		PlayerConcurrency: 1,
	}
}

// MockStore records writes per table and serves reads from a seeded map.
// Function fields override the default behavior.
type MockStore struct {
	GetFunc      func(ctx context.Context, table, pk, sk string) (store.Attrs, error)
	PutBatchFunc func(ctx context.Context, table string, records []store.Record) (int, error)

	mu      sync.Mutex
	seeded  map[string]store.Attrs // "table/pk/sk" -> attrs
	writes  map[string][]store.Record
	getErrs map[string]error // "table/pk/sk" -> error
}

func NewMockStore() *MockStore {
	return &MockStore{
		seeded:  make(map[string]store.Attrs),
		writes:  make(map[string][]store.Record),
		getErrs: make(map[string]error),
	}
}

func mockKey(table, pk, sk string) string {
	return table + "/" + pk + "/" + sk
}

// Seed plants a record for subsequent Gets.
func (m *MockStore) Seed(table string, rec store.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeded[mockKey(table, rec.PK, rec.SK)] = rec.Attrs
}

// FailGet makes one key's Get return err.
func (m *MockStore) FailGet(table, pk, sk string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErrs[mockKey(table, pk, sk)] = err
}

func (m *MockStore) Get(ctx context.Context, table, pk, sk string) (store.Attrs, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, table, pk, sk)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.getErrs[mockKey(table, pk, sk)]; ok {
		return nil, err
	}
	return m.seeded[mockKey(table, pk, sk)], nil
}

func (m *MockStore) PutBatch(ctx context.Context, table string, records []store.Record) (int, error) {
	if m.PutBatchFunc != nil {
		return m.PutBatchFunc(ctx, table, records)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes[table] = append(m.writes[table], records...)
	for _, rec := range records {
		m.seeded[mockKey(table, rec.PK, rec.SK)] = rec.Attrs
	}
	return len(records), nil
}

// Writes returns everything written to one table, in write order.
func (m *MockStore) Writes(table string) []store.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Record(nil), m.writes[table]...)
}

// MockArchiver records enqueued events.
type MockArchiver struct {
	mu     sync.Mutex
	Events []*models.TelemetryEvent
}

func (m *MockArchiver) Enqueue(evt *models.TelemetryEvent) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, evt)
	return true
}

// fixedNow pins a pipeline's clock for deterministic keys and TTLs.
func fixedNow(p *Pipeline, at time.Time) {
	p.now = func() time.Time { return at }
}
