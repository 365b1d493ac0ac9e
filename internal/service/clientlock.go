package service

import "sync"

// clientLocks hands out one mutex per client id and forgets it once no
// goroutine holds or waits for it.
type clientLocks struct {
	mu    sync.Mutex
	locks map[string]*clientLock
}

type clientLock struct {
	mu   sync.Mutex
	refs int
}

func newClientLocks() *clientLocks {
	return &clientLocks{locks: map[string]*clientLock{}}
}

// Lock blocks until the caller owns clientID and returns the unlock func.
func (l *clientLocks) Lock(clientID string) func() {
	l.mu.Lock()
	cl, ok := l.locks[clientID]
	if !ok {
		cl = &clientLock{}
		l.locks[clientID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()
	return func() {
		cl.mu.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, clientID)
		}
		l.mu.Unlock()
	}
}
