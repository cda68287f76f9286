package services

import (
	"sync"

	"github.com/coralbank/backend/internal/models"
)

// LockManager hands out one mutex per distinct account number, shared by
// every caller that obtains the same number. Entries are reference-counted
// and reclaimed once the last holder unlocks, so the registry stays bounded
// by the number of accounts under concurrent mutation, not the number of
// accounts ever seen. The registry map itself is guarded by a short-lived
// internal mutex distinct from the per-account locks.
type LockManager struct {
	mu    sync.Mutex
	locks map[models.AccountNumber]*AccountLock
}

// AccountLock is the handle for one account's mutex. It is single-use:
// Lock it once, Unlock it once. Unlock also releases the handle's reference
// in the registry.
type AccountLock struct {
	key models.AccountNumber
	mu  sync.Mutex
	mgr *LockManager

	refs int // guarded by mgr.mu
}

// NewLockManager creates an empty registry.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[models.AccountNumber]*AccountLock)}
}

// Obtain returns the lock handle for the given account number, creating the
// underlying mutex on first use. Handles obtained for equal numbers contend
// on the same mutex.
func (m *LockManager) Obtain(number models.AccountNumber) *AccountLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[number]
	if !ok {
		l = &AccountLock{key: number, mgr: m}
		m.locks[number] = l
	}
	l.refs++
	return l
}

// ObtainOrdered returns handles for both accounts of a transfer, first the
// one with the lower account number. Locking in the returned order is what
// keeps two opposite-direction transfers between the same pair of accounts
// from deadlocking; callers must never lock in caller-supplied order.
func (m *LockManager) ObtainOrdered(a, b models.AccountNumber) (first, second *AccountLock) {
	if b.Int64() < a.Int64() {
		a, b = b, a
	}
	return m.Obtain(a), m.Obtain(b)
}

func (m *LockManager) release(l *AccountLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, l.key)
	}
}

// Lock blocks until the account's mutex is held. No timeout and no deadlock
// detection; mutual exclusion is the whole contract.
func (l *AccountLock) Lock() {
	l.mu.Lock()
}

// Unlock releases the mutex and drops this handle's registry reference. The
// handle must not be used again afterwards.
func (l *AccountLock) Unlock() {
	l.mu.Unlock()
	l.mgr.release(l)
}

// held returns the number of live handles, for tests.
func (m *LockManager) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
