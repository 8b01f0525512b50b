package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/claims"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		orders, err := ListByOwner(ctx, db, cart.User(clm.UserID))
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

// HandleShow returns one of the caller's orders. Orders of other owners are
// reported as missing.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Invalid(err)
		}

		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ord, err := FetchByID(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		if ord.UserID == nil || !claims.IsUser(ctx, *ord.UserID) {
			return weberr.NotFound(fmt.Errorf("order[%s] not owned by user[%s]", id, clm.UserID))
		}

		rc, err := FetchReceipt(ctx, db, ord)
		if err != nil {
			return fmt.Errorf("fetching receipt of order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, rc, http.StatusOK)
	}
}

// HandleReceipt looks an order up by its public number, as printed on the
// kiosk ticket.
func HandleReceipt(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		no := web.Param(r, "orderNo")

		ord, err := FetchByNumber(ctx, db, no)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching order[%s]: %w", no, err)
		}

		rc, err := FetchReceipt(ctx, db, ord)
		if err != nil {
			return fmt.Errorf("fetching receipt of order[%s]: %w", no, err)
		}

		return web.Respond(ctx, w, rc, http.StatusOK)
	}
}

func statusFilter(r *http.Request) (Status, error) {
	raw := web.Query(r, "status")
	if raw == "" {
		return "", nil
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return "", weberr.Invalid(err)
	}
	return st, nil
}

func HandleAdminList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st, err := statusFilter(r)
		if err != nil {
			return err
		}

		orders, err := List(ctx, db, st)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		return web.Respond(ctx, w, orders, http.StatusOK)
	}
}

func HandleAdminUpdateStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.Invalid(err)
		}

		var in StatusUp
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}
		if err := validate.Check(in); err != nil {
			return weberr.Invalid(err)
		}

		err := UpdateStatus(ctx, db, id, Status(in.Status), time.Now().UTC())
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("updating order[%s]: %w", id, err)
		}

		ord, err := FetchByID(ctx, db, id)
		if err != nil {
			return fmt.Errorf("fetching order[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}
