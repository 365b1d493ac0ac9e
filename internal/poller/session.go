package poller

import (
	"context"
	"sync"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/logger"
)

// SessionLoader fetches a full client snapshot.
type SessionLoader interface {
	LoadClientSession(ctx context.Context, clientID string) (*domain.ClientSession, error)
}

// SessionCache holds the latest snapshot of one client. As an Observer it
// reloads the snapshot whenever a watched job finishes, so plan lists and
// questionnaire flags always come from the store.
type SessionCache struct {
	loader   SessionLoader
	clientID string
	log      *logger.Logger

	mu      sync.RWMutex
	session *domain.ClientSession
	notice  string
}

func NewSessionCache(loader SessionLoader, clientID string, log *logger.Logger) *SessionCache {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionCache{loader: loader, clientID: clientID, log: log.With("component", "session_cache", "client_id", clientID)}
}

// Refresh replaces the snapshot. On error the previous one is kept.
func (c *SessionCache) Refresh(ctx context.Context) error {
	session, err := c.loader.LoadClientSession(ctx, c.clientID)
	if err != nil {
		c.log.Warn("session refresh failed", "error", err)
		return err
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
	return nil
}

// Session returns the current snapshot, nil before the first Refresh.
func (c *SessionCache) Session() *domain.ClientSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Notice is the last message meant for the user: a worker error, a
// timeout hint, or empty after a success.
func (c *SessionCache) Notice() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notice
}

func (c *SessionCache) setNotice(msg string) {
	c.mu.Lock()
	c.notice = msg
	c.mu.Unlock()
}

func (c *SessionCache) JobCompleted(ctx context.Context, view domain.JobStatusView) {
	c.setNotice("")
	_ = c.Refresh(ctx)
}

func (c *SessionCache) JobFailed(ctx context.Context, view domain.JobStatusView) {
	c.setNotice(view.Error)
	_ = c.Refresh(ctx)
}

func (c *SessionCache) JobTimedOut(ctx context.Context, err *TimeoutError) {
	c.setNotice(err.Error())
}

func (c *SessionCache) WatchFailed(ctx context.Context, jobID string, err error) {
	c.setNotice(err.Error())
}
