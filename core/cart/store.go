package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const cartColumns = `cart_id, user_id, session_key, status, last_activity_at, created_at, updated_at`

const itemColumns = `cart_item_id, cart_id, variant_id, quantity, price, created_at, updated_at`

// Lock reads the cart and holds its row until tx ends, serializing
// checkouts of the same cart. Must run inside a transaction.
func Lock(ctx context.Context, tx sqlx.ExtContext, id string) (Cart, error) {
	const q = `SELECT ` + cartColumns + ` FROM carts WHERE cart_id = $1 FOR UPDATE`

	var c Cart
	if err := sqlx.GetContext(ctx, tx, &c, q, id); err != nil {
		return Cart{}, fmt.Errorf("locking cart[%s]: %w", id, database.Classify(err))
	}
	return c, nil
}

func FetchBySessionKey(ctx context.Context, db sqlx.ExtContext, key string) (Cart, error) {
	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, `SELECT `+cartColumns+` FROM carts WHERE session_key = $1`, key); err != nil {
		return Cart{}, fmt.Errorf("selecting kiosk cart: %w", database.Classify(err))
	}
	return c, nil
}

// FetchOrCreateForUser returns the user's cart, creating it on first access.
func FetchOrCreateForUser(ctx context.Context, db sqlx.ExtContext, userID string, id string, now time.Time) (Cart, error) {
	const q = `
	INSERT INTO carts (cart_id, user_id, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	ON CONFLICT (user_id) DO NOTHING`

	if _, err := db.ExecContext(ctx, q, id, userID, Active, now); err != nil {
		return Cart{}, fmt.Errorf("ensuring cart for user[%s]: %w", userID, database.Classify(err))
	}

	var c Cart
	if err := sqlx.GetContext(ctx, db, &c, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID); err != nil {
		return Cart{}, fmt.Errorf("selecting cart of user[%s]: %w", userID, database.Classify(err))
	}
	return c, nil
}

func Create(ctx context.Context, db sqlx.ExtContext, c Cart) error {
	const q = `
	INSERT INTO carts (cart_id, user_id, session_key, status, last_activity_at, created_at, updated_at)
	VALUES (:cart_id, :user_id, :session_key, :status, :last_activity_at, :created_at, :updated_at)`

	if _, err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting cart[%s]: %w", c.ID, err)
	}
	return nil
}

func Touch(ctx context.Context, db sqlx.ExtContext, id string, now time.Time) error {
	const q = `UPDATE carts SET last_activity_at = $1, updated_at = $1 WHERE cart_id = $2`
	if _, err := db.ExecContext(ctx, q, now, id); err != nil {
		return fmt.Errorf("touching cart[%s]: %w", id, database.Classify(err))
	}
	return nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, status Status, now time.Time) error {
	const q = `UPDATE carts SET status = $1, updated_at = $2 WHERE cart_id = $3`
	if _, err := db.ExecContext(ctx, q, status, now, id); err != nil {
		return fmt.Errorf("updating status of cart[%s] to %s: %w", id, status, database.Classify(err))
	}
	return nil
}

// FetchItems returns the cart's lines in the order they were stored.
func FetchItems(ctx context.Context, db sqlx.ExtContext, cartID string) ([]Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY created_at, cart_item_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, cartID); err != nil {
		return nil, fmt.Errorf("selecting items of cart[%s]: %w", cartID, database.Classify(err))
	}
	return items, nil
}

func FetchItem(ctx context.Context, db sqlx.ExtContext, cartID string, itemID string) (Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM cart_items WHERE cart_id = $1 AND cart_item_id = $2`

	var it Item
	if err := sqlx.GetContext(ctx, db, &it, q, cartID, itemID); err != nil {
		return Item{}, fmt.Errorf("selecting item[%s] of cart[%s]: %w", itemID, cartID, database.Classify(err))
	}
	return it, nil
}

func FetchItemByVariant(ctx context.Context, db sqlx.ExtContext, cartID string, variantID string) (Item, error) {
	const q = `SELECT ` + itemColumns + ` FROM cart_items WHERE cart_id = $1 AND variant_id = $2`

	var it Item
	if err := sqlx.GetContext(ctx, db, &it, q, cartID, variantID); err != nil {
		return Item{}, fmt.Errorf("selecting variant[%s] line of cart[%s]: %w", variantID, cartID, database.Classify(err))
	}
	return it, nil
}

// UpsertItem writes the line for (cart, variant) with an absolute quantity.
func UpsertItem(ctx context.Context, db sqlx.ExtContext, it Item) (Item, error) {
	const q = `
	INSERT INTO cart_items (cart_item_id, cart_id, variant_id, quantity, price, created_at, updated_at)
	VALUES (:cart_item_id, :cart_id, :variant_id, :quantity, :price, :created_at, :updated_at)
	ON CONFLICT (cart_id, variant_id)
	DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
	RETURNING ` + itemColumns

	var out Item
	if err := database.NamedQueryStruct(ctx, db, q, it, &out); err != nil {
		return Item{}, fmt.Errorf("upserting variant[%s] line of cart[%s]: %w", it.VariantID, it.CartID, err)
	}
	return out, nil
}

// SaveItem writes quantity and price of an existing line.
func SaveItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	UPDATE cart_items
	SET quantity = :quantity, price = :price, updated_at = :updated_at
	WHERE cart_item_id = :cart_item_id AND cart_id = :cart_id`

	res, err := database.NamedExecContext(ctx, db, q, it)
	if err != nil {
		return fmt.Errorf("updating item[%s]: %w", it.ID, err)
	}
	return expectRow(res, fmt.Sprintf("item[%s] of cart[%s]", it.ID, it.CartID))
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, cartID string, itemID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND cart_item_id = $2`, cartID, itemID)
	if err != nil {
		return fmt.Errorf("deleting item[%s] of cart[%s]: %w", itemID, cartID, database.Classify(err))
	}
	return expectRow(res, fmt.Sprintf("item[%s] of cart[%s]", itemID, cartID))
}

func DeleteItems(ctx context.Context, db sqlx.ExtContext, cartID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("deleting items of cart[%s]: %w", cartID, database.Classify(err))
	}
	return nil
}

// DeleteItemsByID removes only the listed lines, leaving anything added to
// the cart after they were read.
func DeleteItemsByID(ctx context.Context, db sqlx.ExtContext, cartID string, ids []string) error {
	const q = `DELETE FROM cart_items WHERE cart_id = $1 AND cart_item_id = ANY($2)`
	if _, err := db.ExecContext(ctx, q, cartID, pq.Array(ids)); err != nil {
		return fmt.Errorf("deleting %d items of cart[%s]: %w", len(ids), cartID, database.Classify(err))
	}
	return nil
}

type rowsAffected interface{ RowsAffected() (int64, error) }

func expectRow(res rowsAffected, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, database.ErrDBNotFound)
	}
	return nil
}
