package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/claims"
	"github.com/irsalhamdi/pos-kiosk/core/inventory"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
)

// Resolver yields the caller's cart. Errors it returns are already decorated
// for the HTTP layer.
type Resolver func(ctx context.Context, r *http.Request) (Cart, error)

// UserResolver returns the authenticated caller's cart, creating it on
// first access.
func UserResolver(db *sqlx.DB) Resolver {
	return func(ctx context.Context, r *http.Request) (Cart, error) {
		clm, err := claims.Get(ctx)
		if err != nil {
			return Cart{}, weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		c, err := FetchOrCreateForUser(ctx, db, clm.UserID, validate.GenerateID(), time.Now().UTC())
		if err != nil {
			return Cart{}, fmt.Errorf("resolving cart: %w", err)
		}
		return c, nil
	}
}

// WebError maps cart and inventory failures onto client responses.
func WebError(err error, opts ...weberr.Opt) error {
	var fe *validate.FieldError
	switch {
	case errors.As(err, &fe):
		return weberr.Invalid(err, opts...)
	case errors.Is(err, validate.ErrInvalidID):
		return weberr.Invalid(err, opts...)
	case errors.Is(err, database.ErrDBNotFound):
		return weberr.NotFound(err, opts...)
	case errors.Is(err, inventory.ErrInsufficientStock):
		return weberr.Unprocessable(err, "Not enough stock", opts...)
	case errors.Is(err, inventory.ErrVariantInactive):
		return weberr.Unprocessable(err, "Variant is not available", opts...)
	case errors.Is(err, ErrSessionClosed):
		return weberr.SessionExpired(err, opts...)
	case errors.Is(err, ErrCartInactive):
		return weberr.Conflict(err, "Cart is not active", opts...)
	}
	return err
}

func HandleShow(db *sqlx.DB, resolve Resolver) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		view, err := Show(ctx, db, c)
		if err != nil {
			return fmt.Errorf("showing %s: %w", c, err)
		}

		return web.Respond(ctx, w, view, http.StatusOK)
	}
}

func HandleCreateItem(db *sqlx.DB, resolve Resolver) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		it, err := AddItem(ctx, db, c, in, time.Now().UTC())
		if err != nil {
			return WebError(fmt.Errorf("adding variant[%s] to %s: %w", in.VariantID, c, err),
				weberr.WithField("cart_id", c.ID))
		}

		return web.Respond(ctx, w, it, http.StatusCreated)
	}
}

func HandleUpdateItem(db *sqlx.DB, resolve Resolver) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Invalid(err)
		}

		var in ItemUp
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		it, err := UpdateItem(ctx, db, c, id, in, time.Now().UTC())
		if err != nil {
			return WebError(fmt.Errorf("updating item[%s] of %s: %w", id, c, err),
				weberr.WithField("cart_id", c.ID))
		}

		return web.Respond(ctx, w, it, http.StatusOK)
	}
}

func HandleDeleteItem(db *sqlx.DB, resolve Resolver) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Invalid(err)
		}

		if err := RemoveItem(ctx, db, c, id); err != nil {
			return WebError(fmt.Errorf("removing item[%s] of %s: %w", id, c, err))
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleClear(db *sqlx.DB, resolve Resolver) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		if err := Clear(ctx, db, c); err != nil {
			return WebError(fmt.Errorf("clearing %s: %w", c, err))
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
