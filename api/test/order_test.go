package test

import (
	"net/http"
	"testing"

	"github.com/irsalhamdi/pos-kiosk/core/cart"
	"github.com/irsalhamdi/pos-kiosk/core/order"
	"github.com/shopspring/decimal"
)

type orderTest struct {
	*TestEnv
}

func TestOrder(t *testing.T) {
	env, err := NewTestEnv(t, "order_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}

	coffee := env.SeedVariant(t, "COFFEE-L", "3.20", 10)
	bagel := env.SeedVariant(t, "BAGEL", "1.80", 4)

	ot.addOK(t, coffee, 2)
	ot.addOK(t, bagel, 1)

	rc := ot.checkoutOK(t)
	if !rc.TotalAmount.Equal(decimal.RequireFromString("8.20")) {
		t.Fatalf("expected total 8.20, got %s", rc.TotalAmount)
	}

	ot.listOK(t, 1)
	ot.showOK(t, rc.ID)
	ot.adminOK(t, rc.ID)
}

func TestCheckoutAtomicity(t *testing.T) {
	env, err := NewTestEnv(t, "checkout_atomicity_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	ot := &orderTest{env}

	first := env.SeedVariant(t, "FIRST", "1.00", 10)
	second := env.SeedVariant(t, "SECOND", "1.00", 5)

	ot.addOK(t, first, 3)
	ot.addOK(t, second, 2)

	// Stock drops below the cart quantity after the line was added.
	if _, err := env.DB.Exec(`UPDATE product_variants SET stock_qty = 1 WHERE variant_id = $1`, second); err != nil {
		t.Fatal(err)
	}

	code, body := env.Do(t, http.MethodPost, "/checkout", nil, bearer(env.UserToken))
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", code, body)
	}

	if got := env.Stock(t, first); got != 10 {
		t.Fatalf("expected first variant untouched at 10, got %d", got)
	}
	if got := env.Count(t, "orders"); got != 0 {
		t.Fatalf("expected no order, got %d", got)
	}
	if got := env.Count(t, "order_items"); got != 0 {
		t.Fatalf("expected no order items, got %d", got)
	}
	if got := env.Count(t, "cart_items"); got != 2 {
		t.Fatalf("expected cart untouched, got %d items", got)
	}
}

func (ot *orderTest) addOK(t *testing.T, variantID string, qty int) {
	t.Helper()
	in := cart.ItemNew{VariantID: variantID, Quantity: qty}
	ot.DoJSON(t, http.MethodPost, "/cart/items", in, http.StatusCreated, nil, bearer(ot.UserToken))
}

func (ot *orderTest) checkoutOK(t *testing.T) order.Receipt {
	t.Helper()
	var rc order.Receipt
	ot.DoJSON(t, http.MethodPost, "/checkout", nil, http.StatusCreated, &rc, bearer(ot.UserToken))

	sum := decimal.Zero
	for _, it := range rc.Items {
		sum = sum.Add(it.Subtotal)
	}
	if !sum.Equal(rc.TotalAmount) {
		t.Fatalf("subtotals %s do not add up to %s", sum, rc.TotalAmount)
	}
	return rc
}

func (ot *orderTest) listOK(t *testing.T, want int) {
	t.Helper()
	var orders []order.Order
	ot.DoJSON(t, http.MethodGet, "/orders", nil, http.StatusOK, &orders, bearer(ot.UserToken))
	if len(orders) != want {
		t.Fatalf("expected %d orders, got %d", want, len(orders))
	}
}

func (ot *orderTest) showOK(t *testing.T, id string) {
	t.Helper()
	var rc order.Receipt
	ot.DoJSON(t, http.MethodGet, "/orders/"+id, nil, http.StatusOK, &rc, bearer(ot.UserToken))
	if rc.ID != id {
		t.Fatalf("expected order %s, got %s", id, rc.ID)
	}

	code, _ := ot.Do(t, http.MethodGet, "/orders/"+id, nil, bearer(ot.AdminToken))
	if code != http.StatusNotFound {
		t.Fatalf("expected other owners to get 404, got %d", code)
	}
}

func (ot *orderTest) adminOK(t *testing.T, id string) {
	t.Helper()
	path := "/admin/orders/" + id + "/status"

	code, _ := ot.Do(t, http.MethodPut, path, order.StatusUp{Status: "PAID"}, bearer(ot.UserToken))
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 for a user, got %d", code)
	}

	code, _ = ot.Do(t, http.MethodPut, path, order.StatusUp{Status: "SHIPPED"}, bearer(ot.AdminToken))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", code)
	}

	var ord order.Order
	ot.DoJSON(t, http.MethodPut, path, order.StatusUp{Status: "PAID"}, http.StatusOK, &ord, bearer(ot.AdminToken))
	if ord.Status != order.Paid {
		t.Fatalf("expected PAID, got %s", ord.Status)
	}

	var paid []order.Order
	ot.DoJSON(t, http.MethodGet, "/admin/orders?status=PAID", nil, http.StatusOK, &paid, bearer(ot.AdminToken))
	if len(paid) != 1 || paid[0].ID != id {
		t.Fatalf("expected the paid order listed, got %+v", paid)
	}

	code, _ = ot.Do(t, http.MethodGet, "/admin/orders/export", nil, bearer(ot.AdminToken))
	if code != http.StatusOK {
		t.Fatalf("expected export to succeed, got %d", code)
	}
}
