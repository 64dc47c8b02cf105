package iostore

import (
	"context"
	"time"

	"github.com/outpostlabs/outpost/internal/contract"
	"github.com/outpostlabs/outpost/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetCacheStore implements the StoreManager interface.
func (m *MockStoreManager) GetCacheStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetMutationStore implements the StoreManager interface.
func (m *MockStoreManager) GetMutationStore() contract.MutationStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.MutationStore)
	return store
}

// GetHistoryStore implements the StoreManager interface.
func (m *MockStoreManager) GetHistoryStore() contract.HistoryStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HistoryStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Put implements the CacheStore interface.
func (m *MockCacheStore) Put(ctx context.Context, namespace, key string, payload []byte) error {
	args := m.Called(ctx, namespace, key, payload)
	return args.Error(0)
}

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	args := m.Called(ctx, namespace, key)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Error(1)
}

// Delete implements the CacheStore interface.
func (m *MockCacheStore) Delete(ctx context.Context, namespace, key string) error {
	args := m.Called(ctx, namespace, key)
	return args.Error(0)
}

// ListKeys implements the CacheStore interface.
func (m *MockCacheStore) ListKeys(ctx context.Context, namespace string) ([]string, error) {
	args := m.Called(ctx, namespace)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

// ListNamespaces implements the CacheStore interface.
func (m *MockCacheStore) ListNamespaces(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	namespaces, _ := args.Get(0).([]string)
	return namespaces, args.Error(1)
}

// DeleteNamespace implements the CacheStore interface.
func (m *MockCacheStore) DeleteNamespace(ctx context.Context, namespace string) error {
	args := m.Called(ctx, namespace)
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMutationStore is a mock implementation of MutationStore for testing.
type MockMutationStore struct {
	mock.Mock
}

var _ contract.MutationStore = &MockMutationStore{} // Compile-time check

// Enqueue implements the MutationStore interface.
func (m *MockMutationStore) Enqueue(ctx context.Context, mut schema.DeferredMutation) error {
	args := m.Called(ctx, mut)
	return args.Error(0)
}

// List implements the MutationStore interface.
func (m *MockMutationStore) List(ctx context.Context, tag string) ([]schema.DeferredMutation, error) {
	args := m.Called(ctx, tag)
	mutations, _ := args.Get(0).([]schema.DeferredMutation)
	return mutations, args.Error(1)
}

// Remove implements the MutationStore interface.
func (m *MockMutationStore) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// IncrementAttempts implements the MutationStore interface.
func (m *MockMutationStore) IncrementAttempts(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ListTags implements the MutationStore interface.
func (m *MockMutationStore) ListTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

// GetStatus implements the MutationStore interface.
func (m *MockMutationStore) GetStatus() (schema.QueueStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.QueueStatus), args.Error(1)
}

// Close implements the MutationStore interface.
func (m *MockMutationStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of HistoryStore for testing.
type MockHistoryStore struct {
	mock.Mock
}

var _ contract.HistoryStore = &MockHistoryStore{} // Compile-time check

// BeginRun implements the HistoryStore interface.
func (m *MockHistoryStore) BeginRun(trigger schema.ReplayTrigger, startTime time.Time) (int64, error) {
	args := m.Called(trigger, startTime)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the HistoryStore interface.
func (m *MockHistoryStore) EndRun(runID int64, endTime time.Time, summary schema.ReplaySummary) error {
	args := m.Called(runID, endTime, summary)
	return args.Error(0)
}

// RecordOutcome implements the HistoryStore interface.
func (m *MockHistoryStore) RecordOutcome(runID int64, mut schema.DeferredMutation, outcome schema.MutationOutcome, occurredAt time.Time) error {
	args := m.Called(runID, mut, outcome, occurredAt)
	return args.Error(0)
}

// GetAllRuns implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllRuns() ([]schema.ReplayRunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.ReplayRunRecord)
	return runs, args.Error(1)
}

// GetAllOutcomes implements the HistoryStore interface.
func (m *MockHistoryStore) GetAllOutcomes() ([]schema.MutationOutcomeRecord, error) {
	args := m.Called()
	outcomes, _ := args.Get(0).([]schema.MutationOutcomeRecord)
	return outcomes, args.Error(1)
}

// GetStatus implements the HistoryStore interface.
func (m *MockHistoryStore) GetStatus() (schema.HistoryStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.HistoryStatus), args.Error(1)
}

// Close implements the HistoryStore interface.
func (m *MockHistoryStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
