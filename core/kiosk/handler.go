package kiosk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// Guard validates the session key on every kiosk request.
type Guard struct {
	DB      *sqlx.DB
	Timeout time.Duration
	Expired prometheus.Counter
	Now     func() time.Time
}

func NewGuard(db *sqlx.DB, timeout time.Duration, expired prometheus.Counter) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{
		DB:      db,
		Timeout: timeout,
		Expired: expired,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolver resolves the X-Session-Key header to its kiosk cart.
func (g *Guard) Resolver() cart.Resolver {
	return func(ctx context.Context, r *http.Request) (cart.Cart, error) {
		key := r.Header.Get(SessionHeader)
		if key == "" {
			return cart.Cart{}, weberr.NewError(
				errors.New("missing session key header"),
				"SESSION_KEY_REQUIRED",
				http.StatusUnauthorized,
			)
		}

		c, err := Resolve(ctx, g.DB, key, g.Now(), g.Timeout)
		switch {
		case err == nil:
			return c, nil
		case errors.Is(err, ErrSessionNotFound):
			return cart.Cart{}, weberr.NewError(err, "SESSION_NOT_FOUND", http.StatusNotFound)
		case errors.Is(err, ErrSessionExpired):
			if errors.Is(err, ErrSessionTimedOut) && g.Expired != nil {
				g.Expired.Inc()
			}
			return cart.Cart{}, weberr.SessionExpired(err)
		}
		return cart.Cart{}, fmt.Errorf("resolving kiosk session: %w", err)
	}
}

func HandleInit(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		s, err := Init(ctx, db, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("initializing kiosk session: %w", err)
		}

		return web.Respond(ctx, w, s, http.StatusCreated)
	}
}

// HandlePing extends the session without touching the cart contents.
func HandlePing(g *Guard) web.Handler {
	resolve := g.Resolver()
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		p := Ping{SessionKey: *c.SessionKey, LastActivityAt: *c.LastActivityAt}
		return web.Respond(ctx, w, p, http.StatusOK)
	}
}
