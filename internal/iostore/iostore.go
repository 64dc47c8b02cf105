// Package iostore is for durable cache, queue, and history storage.
package iostore

import (
	"sync"

	"github.com/outpostlabs/outpost/internal/contract"
)

// StoreManagerImpl manages the durable store instances.
type StoreManagerImpl struct {
	sync.RWMutex // Protects the store pointers during initialization
	cache        contract.CacheStore
	mutations    contract.MutationStore
	history      contract.HistoryStore
}

var _ contract.StoreManager = &StoreManagerImpl{} // Compile-time check

// GetCacheStore returns the namespaced CacheStore.
func (mgr *StoreManagerImpl) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetMutationStore returns the deferred MutationStore.
func (mgr *StoreManagerImpl) GetMutationStore() contract.MutationStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.mutations
}

// GetHistoryStore returns the replay HistoryStore.
func (mgr *StoreManagerImpl) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
