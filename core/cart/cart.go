package cart

import (
	"fmt"
	"time"

	"github.com/irsalhamdi/pos-kiosk/core/catalog"
	"github.com/shopspring/decimal"
)

type Status string

const (
	Active     Status = "ACTIVE"
	Expired    Status = "EXPIRED"
	CheckedOut Status = "CHECKED_OUT"
)

type OwnerKind int

const (
	OwnerUser OwnerKind = iota + 1
	OwnerKiosk
)

// Owner identifies who a cart (and the order made from it) belongs to:
// either an authenticated user or a kiosk session, never both.
type Owner struct {
	Kind OwnerKind
	ID   string
}

func User(userID string) Owner { return Owner{Kind: OwnerUser, ID: userID} }

func Kiosk(sessionKey string) Owner { return Owner{Kind: OwnerKiosk, ID: sessionKey} }

func (o Owner) String() string {
	switch o.Kind {
	case OwnerUser:
		return "user[" + o.ID + "]"
	case OwnerKiosk:
		return "kiosk"
	}
	return "unknown"
}

type Cart struct {
	ID             string     `json:"cart_id" db:"cart_id"`
	UserID         *string    `json:"-" db:"user_id"`
	SessionKey     *string    `json:"-" db:"session_key"`
	Status         Status     `json:"status" db:"status"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty" db:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

func (c Cart) Owner() Owner {
	if c.SessionKey != nil {
		return Kiosk(*c.SessionKey)
	}
	if c.UserID != nil {
		return User(*c.UserID)
	}
	return Owner{}
}

func (c Cart) String() string {
	return fmt.Sprintf("cart[%s] of %s", c.ID, c.Owner())
}

type Item struct {
	ID        string          `json:"id" db:"cart_item_id"`
	CartID    string          `json:"-" db:"cart_id"`
	VariantID string          `json:"variant_id" db:"variant_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type ItemNew struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100000"`
}

type ItemUp struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=100000"`
}

type ItemView struct {
	Item
	Subtotal decimal.Decimal     `json:"subtotal"`
	Variant  catalog.VariantView `json:"variant"`
}

// View is a cart as displayed: snapshot prices, not live ones.
type View struct {
	Cart
	Items []ItemView      `json:"items"`
	Total decimal.Decimal `json:"total"`
}
