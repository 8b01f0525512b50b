// Package kiosk manages anonymous session carts used by unattended ordering
// terminals. Sessions expire lazily: an idle session is only marked EXPIRED
// the next time it is presented.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
)

const (
	SessionHeader = "X-Session-Key"

	DefaultTimeout = 180 * time.Second
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// ErrSessionTimedOut is the ErrSessionExpired raised by the inactivity
	// check itself, as opposed to a session found already closed.
	ErrSessionTimedOut = fmt.Errorf("%w: inactivity timeout", ErrSessionExpired)
)

type Session struct {
	SessionKey string `json:"session_key"`
	CartID     string `json:"cart_id"`
}

type Ping struct {
	SessionKey     string    `json:"session_key"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Init opens a new session with an empty, active cart.
func Init(ctx context.Context, db sqlx.ExtContext, now time.Time) (Session, error) {
	key := validate.GenerateID()
	c := cart.Cart{
		ID:             validate.GenerateID(),
		SessionKey:     &key,
		Status:         cart.Active,
		LastActivityAt: &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := cart.Create(ctx, db, c); err != nil {
		return Session{}, fmt.Errorf("creating kiosk cart: %w", err)
	}

	return Session{SessionKey: key, CartID: c.ID}, nil
}

// Resolve returns the active cart bound to key and refreshes its activity
// timestamp. A cart idle for longer than timeout is marked EXPIRED.
func Resolve(ctx context.Context, db sqlx.ExtContext, key string, now time.Time, timeout time.Duration) (cart.Cart, error) {
	c, err := cart.FetchBySessionKey(ctx, db, key)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return cart.Cart{}, fmt.Errorf("looking up kiosk session: %w", ErrSessionNotFound)
		}
		return cart.Cart{}, err
	}

	if c.Status != cart.Active {
		return cart.Cart{}, fmt.Errorf("cart[%s] is %s: %w", c.ID, c.Status, ErrSessionExpired)
	}

	if idle(c, now) > timeout {
		if err := cart.UpdateStatus(ctx, db, c.ID, cart.Expired, now); err != nil {
			return cart.Cart{}, err
		}
		return cart.Cart{}, fmt.Errorf("cart[%s] idle for %s: %w", c.ID, idle(c, now).Round(time.Second), ErrSessionTimedOut)
	}

	if err := cart.Touch(ctx, db, c.ID, now); err != nil {
		return cart.Cart{}, err
	}
	c.LastActivityAt = &now
	c.UpdatedAt = now

	return c, nil
}

func idle(c cart.Cart, now time.Time) time.Duration {
	last := c.CreatedAt
	if c.LastActivityAt != nil {
		last = *c.LastActivityAt
	}
	return now.Sub(last)
}
