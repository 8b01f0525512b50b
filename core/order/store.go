package order

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `order_id, order_no, user_id, session_key, status, total_amount, created_at, updated_at`

const itemColumns = `order_item_id, order_id, variant_id, quantity, price, subtotal, created_at`

// Create inserts ord unless its number is taken, reporting whether the row
// was written. A taken number leaves the transaction usable.
func Create(ctx context.Context, db sqlx.ExtContext, ord Order) (bool, error) {
	const q = `
	INSERT INTO orders (order_id, order_no, user_id, session_key, status, total_amount, created_at, updated_at)
	VALUES (:order_id, :order_no, :user_id, :session_key, :status, :total_amount, :created_at, :updated_at)
	ON CONFLICT (order_no) DO NOTHING`

	res, err := database.NamedExecContext(ctx, db, q, ord)
	if err != nil {
		return false, fmt.Errorf("inserting order[%s]: %w", ord.Number, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting order[%s]: %w", ord.Number, err)
	}
	return n == 1, nil
}

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	const q = `
	INSERT INTO order_items (order_item_id, order_id, variant_id, quantity, price, subtotal, created_at)
	VALUES (:order_item_id, :order_id, :variant_id, :quantity, :price, :subtotal, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, q, it); err != nil {
		return fmt.Errorf("inserting line for variant[%s]: %w", it.VariantID, err)
	}
	return nil
}

func UpdateTotal(ctx context.Context, db sqlx.ExtContext, id string, total decimal.Decimal, now time.Time) error {
	const q = `UPDATE orders SET total_amount = $1, updated_at = $2 WHERE order_id = $3`
	if _, err := db.ExecContext(ctx, q, total, now, id); err != nil {
		return fmt.Errorf("updating total of order[%s]: %w", id, database.Classify(err))
	}
	return nil
}

func UpdateStatus(ctx context.Context, db sqlx.ExtContext, id string, status Status, now time.Time) error {
	const q = `UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3`
	res, err := db.ExecContext(ctx, q, status, now, id)
	if err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", id, database.Classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating status of order[%s]: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("order[%s]: %w", id, database.ErrDBNotFound)
	}
	return nil
}

func FetchByID(ctx context.Context, db sqlx.ExtContext, id string) (Order, error) {
	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, id); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", id, database.Classify(err))
	}
	return ord, nil
}

func FetchByNumber(ctx context.Context, db sqlx.ExtContext, number string) (Order, error) {
	var ord Order
	if err := sqlx.GetContext(ctx, db, &ord, `SELECT `+orderColumns+` FROM orders WHERE order_no = $1`, number); err != nil {
		return Order{}, fmt.Errorf("selecting order[%s]: %w", number, database.Classify(err))
	}
	return ord, nil
}

// ListByOwner returns the orders placed by o, newest first.
func ListByOwner(ctx context.Context, db sqlx.ExtContext, o cart.Owner) ([]Order, error) {
	col := "user_id"
	if o.Kind == cart.OwnerKiosk {
		col = "session_key"
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE ` + col + ` = $1 ORDER BY created_at DESC`

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, db, &orders, q, o.ID); err != nil {
		return nil, fmt.Errorf("selecting orders of %s: %w", o, database.Classify(err))
	}
	return orders, nil
}

// List returns every order, optionally restricted to one status.
func List(ctx context.Context, db sqlx.ExtContext, status Status) ([]Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`

	orders := []Order{}
	if err := sqlx.SelectContext(ctx, db, &orders, q, args...); err != nil {
		return nil, fmt.Errorf("selecting orders: %w", database.Classify(err))
	}
	return orders, nil
}

func FetchItems(ctx context.Context, db sqlx.ExtContext, orderID string) ([]Item, error) {
	q := `SELECT ` + itemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, order_item_id`

	items := []Item{}
	if err := sqlx.SelectContext(ctx, db, &items, q, orderID); err != nil {
		return nil, fmt.Errorf("selecting items of order[%s]: %w", orderID, database.Classify(err))
	}
	return items, nil
}

// FetchReceipt attaches the lines of ord and the variant/product of each.
func FetchReceipt(ctx context.Context, db sqlx.ExtContext, ord Order) (Receipt, error) {
	items, err := FetchItems(ctx, db, ord.ID)
	if err != nil {
		return Receipt{}, err
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}

	views, err := catalog.FetchViews(ctx, db, ids)
	if err != nil {
		return Receipt{}, err
	}

	rc := Receipt{Order: ord, Items: make([]ItemView, 0, len(items))}
	for _, it := range items {
		rc.Items = append(rc.Items, ItemView{Item: it, Variant: views[it.VariantID]})
	}
	return rc, nil
}
