package application

import (
	"sync"

	"github.com/draftea/order-orchestrator/shared/models"
	"github.com/puzpuzpuz/xsync/v3"
)

// keyedMutex serialises work per correlation ID. Entries are reference
// counted and removed once the last holder or waiter releases them.
type keyedMutex struct {
	locks *xsync.MapOf[models.ID, *refMutex]
}

type refMutex struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: xsync.NewMapOf[models.ID, *refMutex]()}
}

// Lock blocks until id is free and returns the matching unlock func
func (k *keyedMutex) Lock(id models.ID) func() {
	m, _ := k.locks.Compute(id, func(current *refMutex, loaded bool) (*refMutex, bool) {
		if !loaded {
			current = &refMutex{}
		}
		current.refs++
		return current, false
	})

	m.mu.Lock()

	return func() {
		m.mu.Unlock()
		k.locks.Compute(id, func(current *refMutex, loaded bool) (*refMutex, bool) {
			if !loaded {
				return current, true
			}
			current.refs--
			return current, current.refs == 0
		})
	}
}

// Len returns the number of IDs currently locked or waited on
func (k *keyedMutex) Len() int {
	return k.locks.Size()
}
