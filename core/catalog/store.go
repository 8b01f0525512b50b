package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const variantColumns = `v.variant_id, v.product_id, v.sku, v.name, v.price, v.stock_qty, v.active, v.created_at, v.updated_at`

type viewRow struct {
	Variant
	ProductName        string    `db:"p_name"`
	ProductDescription string    `db:"p_description"`
	ProductCreatedAt   time.Time `db:"p_created_at"`
	ProductUpdatedAt   time.Time `db:"p_updated_at"`
}

func (r viewRow) view() VariantView {
	return VariantView{
		Variant: r.Variant,
		Product: Product{
			ID:          r.ProductID,
			Name:        r.ProductName,
			Description: r.ProductDescription,
			CreatedAt:   r.ProductCreatedAt,
			UpdatedAt:   r.ProductUpdatedAt,
		},
	}
}

const viewQuery = `
	SELECT ` + variantColumns + `,
		p.name AS p_name, p.description AS p_description,
		p.created_at AS p_created_at, p.updated_at AS p_updated_at
	FROM product_variants v
	JOIN products p ON p.product_id = v.product_id`

// FetchVariant reads a variant without locking it.
func FetchVariant(ctx context.Context, db sqlx.ExtContext, id string) (Variant, error) {
	q := `SELECT ` + variantColumns + ` FROM product_variants v WHERE v.variant_id = $1`

	var v Variant
	if err := sqlx.GetContext(ctx, db, &v, q, id); err != nil {
		return Variant{}, fmt.Errorf("selecting variant[%s]: %w", id, database.Classify(err))
	}
	return v, nil
}

func FetchView(ctx context.Context, db sqlx.ExtContext, id string) (VariantView, error) {
	var row viewRow
	if err := sqlx.GetContext(ctx, db, &row, viewQuery+` WHERE v.variant_id = $1`, id); err != nil {
		return VariantView{}, fmt.Errorf("selecting variant view[%s]: %w", id, database.Classify(err))
	}
	return row.view(), nil
}

// FetchViews returns the views for ids keyed by variant id. Unknown ids are
// absent from the result.
func FetchViews(ctx context.Context, db sqlx.ExtContext, ids []string) (map[string]VariantView, error) {
	out := make(map[string]VariantView, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []viewRow
	if err := sqlx.SelectContext(ctx, db, &rows, viewQuery+` WHERE v.variant_id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("selecting variant views: %w", database.Classify(err))
	}

	for _, r := range rows {
		out[r.ID] = r.view()
	}
	return out, nil
}
