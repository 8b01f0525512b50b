package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/irsalhamdi/pos-kiosk/random"
	"github.com/shopspring/decimal"
)

type Status string

const (
	Pending   Status = "PENDING"
	Paid      Status = "PAID"
	Cancelled Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case Pending, Paid, Cancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type Order struct {
	ID          string          `json:"id" db:"order_id"`
	Number      string          `json:"order_no" db:"order_no"`
	UserID      *string         `json:"user_id,omitempty" db:"user_id"`
	SessionKey  *string         `json:"-" db:"session_key"`
	Status      Status          `json:"status" db:"status"`
	TotalAmount decimal.Decimal `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// SetOwner records o as the order's single owner.
func (ord *Order) SetOwner(o cart.Owner) {
	ord.UserID, ord.SessionKey = nil, nil
	id := o.ID
	switch o.Kind {
	case cart.OwnerUser:
		ord.UserID = &id
	case cart.OwnerKiosk:
		ord.SessionKey = &id
	}
}

type Item struct {
	ID        string          `json:"id" db:"order_item_id"`
	OrderID   string          `json:"order_id" db:"order_id"`
	VariantID string          `json:"variant_id" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Subtotal  decimal.Decimal `json:"subtotal" db:"subtotal"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

type ItemView struct {
	Item
	Variant catalog.VariantView `json:"variant"`
}

// Receipt is an order with its lines, as returned after checkout.
type Receipt struct {
	Order
	Items []ItemView `json:"items"`
}

type StatusUp struct {
	Status string `json:"status" validate:"required,oneof=PENDING PAID CANCELLED"`
}

// NewNumber builds a human-readable order number such as
// ORD-20261019153000-7K2QFA.
func NewNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("20060102150405"), random.Upper(6))
}
