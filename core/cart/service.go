package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/irsalhamdi/pos-kiosk/core/inventory"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	// ErrCartInactive is returned when mutating a cart that expired or was
	// already checked out.
	ErrCartInactive = errors.New("cart is not active")

	// ErrSessionClosed is the ErrCartInactive of a kiosk cart. The terminal
	// has to open a new session.
	ErrSessionClosed = fmt.Errorf("kiosk session closed: %w", ErrCartInactive)
)

// CheckActive rejects changes to a cart that is no longer ACTIVE.
func CheckActive(c Cart) error {
	if c.Status == Active {
		return nil
	}
	if c.Owner().Kind == OwnerKiosk {
		return fmt.Errorf("%s is %s: %w", c, c.Status, ErrSessionClosed)
	}
	return fmt.Errorf("%s is %s: %w", c, c.Status, ErrCartInactive)
}

// AddItem merges quantity into the cart's line for the variant, checking the
// combined quantity against current stock and refreshing the price snapshot.
func AddItem(ctx context.Context, db sqlx.ExtContext, c Cart, in ItemNew, now time.Time) (Item, error) {
	if err := validate.Check(in); err != nil {
		return Item{}, err
	}
	if err := CheckActive(c); err != nil {
		return Item{}, err
	}

	v, err := catalog.FetchVariant(ctx, db, in.VariantID)
	if err != nil {
		return Item{}, err
	}

	it := Item{
		ID:        validate.GenerateID(),
		CartID:    c.ID,
		VariantID: v.ID,
		Quantity:  in.Quantity,
		CreatedAt: now,
	}

	existing, err := FetchItemByVariant(ctx, db, c.ID, v.ID)
	switch {
	case err == nil:
		it.Quantity += existing.Quantity
	case errors.Is(err, database.ErrDBNotFound):
	default:
		return Item{}, err
	}

	if err := inventory.Available(v, it.Quantity); err != nil {
		return Item{}, err
	}

	it.Price = v.Price
	it.UpdatedAt = now

	return UpsertItem(ctx, db, it)
}

// UpdateItem sets an absolute quantity on a line of the cart.
func UpdateItem(ctx context.Context, db sqlx.ExtContext, c Cart, itemID string, in ItemUp, now time.Time) (Item, error) {
	if err := validate.Check(in); err != nil {
		return Item{}, err
	}
	if err := CheckActive(c); err != nil {
		return Item{}, err
	}

	it, err := FetchItem(ctx, db, c.ID, itemID)
	if err != nil {
		return Item{}, err
	}

	v, err := catalog.FetchVariant(ctx, db, it.VariantID)
	if err != nil {
		return Item{}, err
	}
	if err := inventory.Available(v, in.Quantity); err != nil {
		return Item{}, err
	}

	it.Quantity = in.Quantity
	it.Price = v.Price
	it.UpdatedAt = now

	if err := SaveItem(ctx, db, it); err != nil {
		return Item{}, err
	}
	return it, nil
}

func RemoveItem(ctx context.Context, db sqlx.ExtContext, c Cart, itemID string) error {
	if err := CheckActive(c); err != nil {
		return err
	}
	return DeleteItem(ctx, db, c.ID, itemID)
}

// Clear empties the cart. Clearing an empty cart is not an error.
func Clear(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	if err := CheckActive(c); err != nil {
		return err
	}
	return DeleteItems(ctx, db, c.ID)
}

func Show(ctx context.Context, db sqlx.ExtContext, c Cart) (View, error) {
	items, err := FetchItems(ctx, db, c.ID)
	if err != nil {
		return View{}, err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}

	variants, err := catalog.FetchViews(ctx, db, ids)
	if err != nil {
		return View{}, err
	}

	view := View{Cart: c, Items: make([]ItemView, 0, len(items))}
	total := decimal.Zero
	for _, it := range items {
		sub := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(sub)
		view.Items = append(view.Items, ItemView{
			Item:     it,
			Subtotal: sub,
			Variant:  variants[it.VariantID],
		})
	}
	view.Total = total.Round(2)

	return view, nil
}
