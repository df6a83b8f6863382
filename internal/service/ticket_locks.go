package service

import "sync"

// ticketLocks serialises lifecycle operations on the same ticket within one
// process. Cross-process safety comes from the conditional updates in the store.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func newTicketLocks() *ticketLocks {
	return &ticketLocks{locks: make(map[string]*ticketLock)}
}

// lock blocks until the caller owns ticketID and returns the release func.
func (l *ticketLocks) lock(ticketID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[ticketID]
	if !ok {
		entry = &ticketLock{}
		l.locks[ticketID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, ticketID)
		}
		l.mu.Unlock()
	}
}
