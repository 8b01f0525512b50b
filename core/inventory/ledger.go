// Package inventory owns the stock counters of product variants. The only
// write path is Decrement, which must run inside the transaction that holds
// the row lock taken by Lock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVariantInactive   = errors.New("variant is not active")
)

// Available checks that v can be sold in quantity qty.
func Available(v catalog.Variant, qty int) error {
	if !v.Active {
		return fmt.Errorf("variant[%s]: %w", v.SKU, ErrVariantInactive)
	}
	if v.StockQty < qty {
		return fmt.Errorf("variant[%s] has %d, requested %d: %w", v.SKU, v.StockQty, qty, ErrInsufficientStock)
	}
	return nil
}

// Lock reads the variant and holds an exclusive row lock on it until tx ends.
func Lock(ctx context.Context, tx sqlx.ExtContext, variantID string) (catalog.Variant, error) {
	const q = `
	SELECT variant_id, product_id, sku, name, price, stock_qty, active, created_at, updated_at
	FROM product_variants
	WHERE variant_id = $1
	FOR UPDATE`

	var v catalog.Variant
	if err := sqlx.GetContext(ctx, tx, &v, q, variantID); err != nil {
		return catalog.Variant{}, fmt.Errorf("locking variant[%s]: %w", variantID, database.Classify(err))
	}
	return v, nil
}

// Decrement removes qty units from the variant's stock. The guard in the
// WHERE clause keeps stock from going negative even if a caller skipped Lock.
func Decrement(ctx context.Context, tx sqlx.ExtContext, variantID string, qty int) error {
	const q = `
	UPDATE product_variants
	SET stock_qty = stock_qty - $1, updated_at = now()
	WHERE variant_id = $2 AND stock_qty >= $1`

	res, err := tx.ExecContext(ctx, q, qty, variantID)
	if err != nil {
		return fmt.Errorf("decrementing variant[%s]: %w", variantID, database.Classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrementing variant[%s]: %w", variantID, err)
	}
	if n == 0 {
		return fmt.Errorf("decrementing variant[%s] by %d: %w", variantID, qty, ErrInsufficientStock)
	}
	return nil
}
