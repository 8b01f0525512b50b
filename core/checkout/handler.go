package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/background"
	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/events"
	"github.com/irsalhamdi/pos-kiosk/core/order"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 10 * time.Second

// Notifier announces placed orders without holding up the response.
type Notifier struct {
	Log        logrus.FieldLogger
	Background *background.Background
	Publisher  events.Publisher
}

func (n Notifier) orderPlaced(c cart.Cart, rc order.Receipt) {
	if n.Publisher == nil || n.Background == nil {
		return
	}

	channel := "user"
	if c.Owner().Kind == cart.OwnerKiosk {
		channel = "kiosk"
	}

	ev := events.OrderPlaced{
		Type:        events.TypeOrderPlaced,
		OrderID:     rc.ID,
		OrderNo:     rc.Number,
		Channel:     channel,
		TotalAmount: rc.TotalAmount,
		PlacedAt:    rc.CreatedAt,
	}
	for _, it := range rc.Items {
		ev.Lines = append(ev.Lines, events.Line{VariantID: it.VariantID, Quantity: it.Quantity, Subtotal: it.Subtotal})
	}

	n.Background.Add(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := n.Publisher.Publish(ctx, ev.OrderNo, ev); err != nil {
			n.Log.WithError(err).WithField("order_no", ev.OrderNo).Error("publishing order placed event")
		}
	})
}

func webError(err error) error {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return weberr.Unprocessable(err, "Cart is empty")
	case errors.Is(err, database.ErrRetryable):
		return weberr.Unavailable(err, "checkout contention, retry")
	}
	return cart.WebError(err)
}

func HandleCheckout(e *Engine, resolve cart.Resolver, n Notifier) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := resolve(ctx, r)
		if err != nil {
			return err
		}

		rc, err := e.Checkout(ctx, c)
		if err != nil {
			return webError(fmt.Errorf("checking out %s: %w", c, err))
		}

		n.orderPlaced(c, rc)

		return web.Respond(ctx, w, rc, http.StatusCreated)
	}
}
