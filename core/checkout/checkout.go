// Package checkout converts a cart into an order. Stock is decremented and
// the order written in one transaction, so a failure on any line leaves no
// trace.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/irsalhamdi/pos-kiosk/config"
	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/inventory"
	"github.com/irsalhamdi/pos-kiosk/core/order"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/metrics"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart = errors.New("cart is empty")

	errNumberExhausted = errors.New("no free order number")
)

const numberAttempts = 5

type Engine struct {
	DB          *sqlx.DB
	LockTimeout time.Duration
	SortLocks   bool
	Prefix      string
	Metrics     *metrics.Metrics
	Now         func() time.Time
}

func New(db *sqlx.DB, cfg config.Checkout, m *metrics.Metrics) *Engine {
	prefix := cfg.OrderPrefix
	if prefix == "" {
		prefix = "ORD"
	}
	return &Engine{
		DB:          db,
		LockTimeout: cfg.LockTimeout,
		SortLocks:   cfg.SortLocks,
		Prefix:      prefix,
		Metrics:     m,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Checkout places an order for the contents of c and returns its receipt.
func (e *Engine) Checkout(ctx context.Context, c cart.Cart) (order.Receipt, error) {
	start := time.Now()
	rc, err := e.checkout(ctx, c)
	e.observe(err, time.Since(start))
	return rc, err
}

func (e *Engine) checkout(ctx context.Context, c cart.Cart) (order.Receipt, error) {
	if err := cart.CheckActive(c); err != nil {
		return order.Receipt{}, err
	}

	var ord order.Order
	err := database.Transaction(ctx, e.DB, func(tx sqlx.ExtContext) error {
		var err error
		ord, err = e.place(ctx, tx, c.ID)
		return err
	})
	if err != nil {
		return order.Receipt{}, err
	}

	rc, err := order.FetchReceipt(ctx, e.DB, ord)
	if err != nil {
		return order.Receipt{}, fmt.Errorf("reading back order[%s]: %w", ord.Number, err)
	}
	return rc, nil
}

// place does all writes of a checkout on tx. The cart row is locked first
// and its status and lines are read under that lock, so a second checkout of
// the same cart waits and then finds it closed or empty.
func (e *Engine) place(ctx context.Context, tx sqlx.ExtContext, cartID string) (order.Order, error) {
	now := e.Now()

	if err := database.LockTimeout(ctx, tx, e.LockTimeout); err != nil {
		return order.Order{}, err
	}

	c, err := cart.Lock(ctx, tx, cartID)
	if err != nil {
		return order.Order{}, err
	}
	if err := cart.CheckActive(c); err != nil {
		return order.Order{}, err
	}

	items, err := cart.FetchItems(ctx, tx, c.ID)
	if err != nil {
		return order.Order{}, err
	}
	if len(items) == 0 {
		return order.Order{}, fmt.Errorf("%s: %w", c, ErrEmptyCart)
	}

	ord, err := e.createOrder(ctx, tx, c.Owner(), now)
	if err != nil {
		return order.Order{}, err
	}

	lines := items
	if e.SortLocks {
		lines = append([]cart.Item(nil), items...)
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })
	}

	total := decimal.Zero
	processed := make([]string, 0, len(lines))
	for _, it := range lines {
		v, err := inventory.Lock(ctx, tx, it.VariantID)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return order.Order{}, fmt.Errorf("variant[%s] no longer exists: %w", it.VariantID, inventory.ErrVariantInactive)
			}
			return order.Order{}, err
		}

		if err := inventory.Available(v, it.Quantity); err != nil {
			return order.Order{}, err
		}
		if err := inventory.Decrement(ctx, tx, v.ID, it.Quantity); err != nil {
			return order.Order{}, err
		}

		line := order.Item{
			ID:        validate.GenerateID(),
			OrderID:   ord.ID,
			VariantID: v.ID,
			Quantity:  it.Quantity,
			Price:     v.Price,
			Subtotal:  v.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
			CreatedAt: now,
		}
		if err := order.CreateItem(ctx, tx, line); err != nil {
			return order.Order{}, err
		}

		total = total.Add(line.Subtotal)
		processed = append(processed, it.ID)
	}

	ord.TotalAmount = total
	if err := order.UpdateTotal(ctx, tx, ord.ID, total, now); err != nil {
		return order.Order{}, err
	}

	if err := cart.DeleteItemsByID(ctx, tx, c.ID, processed); err != nil {
		return order.Order{}, err
	}

	if c.Owner().Kind == cart.OwnerKiosk {
		if err := cart.UpdateStatus(ctx, tx, c.ID, cart.CheckedOut, now); err != nil {
			return order.Order{}, err
		}
	}

	return ord, nil
}

// createOrder inserts a PENDING order, drawing a new number while the
// generated one is taken.
func (e *Engine) createOrder(ctx context.Context, tx sqlx.ExtContext, owner cart.Owner, now time.Time) (order.Order, error) {
	ord := order.Order{
		ID:          validate.GenerateID(),
		Status:      order.Pending,
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ord.SetOwner(owner)

	for i := 0; i < numberAttempts; i++ {
		ord.Number = order.NewNumber(e.Prefix, now)

		ok, err := order.Create(ctx, tx, ord)
		if err != nil {
			return order.Order{}, err
		}
		if ok {
			return ord, nil
		}
	}

	return order.Order{}, fmt.Errorf("after %d attempts: %w", numberAttempts, errNumberExhausted)
}

func (e *Engine) observe(err error, took time.Duration) {
	if e.Metrics == nil {
		return
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case err == nil:
		e.Metrics.CheckoutLatency.Observe(took.Seconds())
	case errors.Is(err, ErrEmptyCart):
		outcome = metrics.OutcomeEmptyCart
	case errors.Is(err, inventory.ErrInsufficientStock):
		outcome = metrics.OutcomeInsufficientStock
	case errors.Is(err, inventory.ErrVariantInactive):
		outcome = metrics.OutcomeVariantInactive
	case errors.Is(err, database.ErrRetryable):
		outcome = metrics.OutcomeContention
	default:
		outcome = metrics.OutcomeError
	}
	e.Metrics.CheckoutTotal.WithLabelValues(outcome).Inc()
}
