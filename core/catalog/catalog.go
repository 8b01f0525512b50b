package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string    `json:"id" db:"product_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Variant is the unit inventory is tracked against.
type Variant struct {
	ID        string          `json:"id" db:"variant_id"`
	ProductID string          `json:"product_id" db:"product_id"`
	SKU       string          `json:"sku" db:"sku"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	StockQty  int             `json:"stock_qty" db:"stock_qty"`
	Active    bool            `json:"active" db:"active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// VariantView is a variant with its product, as shown on carts and receipts.
type VariantView struct {
	Variant
	Product Product `json:"product"`
}
