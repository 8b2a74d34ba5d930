package session

import (
	"context"
	"time"

	"github.com/erickdv/guardia/internal/apperror"
)

// msgSessionExpired is shown when a session idles past the allowed window.
const msgSessionExpired = "La sesión ha expirado por inactividad."

// Tracker enforces the inactivity timeout on authenticated sessions. Expiry
// is evaluated lazily at the start of each authenticated request -- there is
// no background sweeper, so an idle session stays in Redis until its next
// use (or its absolute TTL) and is rejected then.
type Tracker struct {
	store         *Store
	maxInactivity time.Duration

	// now is swappable in tests to pin the clock.
	now func() time.Time
}

// NewTracker creates a tracker with the given inactivity window.
func NewTracker(store *Store, maxInactivity time.Duration) *Tracker {
	return &Tracker{
		store:         store,
		maxInactivity: maxInactivity,
		now:           time.Now,
	}
}

// CheckAndStamp gates one authenticated request. If the session has been
// idle longer than the inactivity window it is destroyed -- the token can
// never be reused -- and an unauthorized error is returned so the caller
// redirects to login. Otherwise the last-activity timestamp is stamped to
// now, extending the window. An absent timestamp (first request after
// login) counts as active.
func (t *Tracker) CheckAndStamp(ctx context.Context, token string) (*Session, error) {
	sess, err := t.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	now := t.now().UTC()

	if sess.LastActivity != nil && now.Sub(*sess.LastActivity) > t.maxInactivity {
		if err := t.store.Destroy(ctx, token); err != nil {
			return nil, err
		}
		return nil, apperror.NewUnauthorized(msgSessionExpired)
	}

	sess.LastActivity = &now
	if err := t.store.Save(ctx, token, sess); err != nil {
		return nil, err
	}

	return sess, nil
}
