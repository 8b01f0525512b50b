package cart

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/irsalhamdi/pos-kiosk/core/inventory"
	"github.com/irsalhamdi/pos-kiosk/database"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var (
	variantCols = []string{"variant_id", "product_id", "sku", "name", "price", "stock_qty", "active", "created_at", "updated_at"}
	itemCols    = []string{"cart_item_id", "cart_id", "variant_id", "quantity", "price", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mdb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { mdb.Close() })
	return sqlx.NewDb(mdb, "postgres"), mock
}

func activeCart() Cart {
	key := "session-key"
	now := time.Now()
	return Cart{ID: validate.GenerateID(), SessionKey: &key, Status: Active, LastActivityAt: &now}
}

func expectVariant(mock sqlmock.Sqlmock, id string, price string, stock int, active bool) {
	now := time.Now()
	mock.ExpectQuery("FROM product_variants v WHERE").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(variantCols).
			AddRow(id, "p1", "SKU-001", "Regular", price, stock, active, now, now))
}

func TestAddItemMergesExistingLine(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()
	vid := validate.GenerateID()
	now := time.Now()

	expectVariant(mock, vid, "2.50", 10, true)
	mock.ExpectQuery("FROM cart_items WHERE cart_id = (.+) AND variant_id").
		WithArgs(c.ID, vid).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("line-1", c.ID, vid, 3, "2.00", now, now))
	mock.ExpectQuery("INSERT INTO cart_items").
		WithArgs(sqlmock.AnyArg(), c.ID, vid, 5, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("line-1", c.ID, vid, 5, "2.50", now, now))

	it, err := AddItem(context.Background(), db, c, ItemNew{VariantID: vid, Quantity: 2}, now)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if it.ID != "line-1" || it.Quantity != 5 {
		t.Fatalf("expected merged line with qty 5, got %+v", it)
	}
	if !it.Price.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected refreshed snapshot 2.50, got %s", it.Price)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddItemChecksCombinedQuantity(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()
	vid := validate.GenerateID()
	now := time.Now()

	expectVariant(mock, vid, "2.50", 4, true)
	mock.ExpectQuery("FROM cart_items WHERE cart_id = (.+) AND variant_id").
		WithArgs(c.ID, vid).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("line-1", c.ID, vid, 3, "2.50", now, now))

	_, err := AddItem(context.Background(), db, c, ItemNew{VariantID: vid, Quantity: 2}, now)
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddItemRejects(t *testing.T) {
	vid := validate.GenerateID()

	t.Run("inactive variant", func(t *testing.T) {
		db, mock := newMock(t)
		expectVariant(mock, vid, "1.00", 10, false)
		mock.ExpectQuery("FROM cart_items").WillReturnRows(sqlmock.NewRows(itemCols))

		_, err := AddItem(context.Background(), db, activeCart(), ItemNew{VariantID: vid, Quantity: 1}, time.Now())
		if !errors.Is(err, inventory.ErrVariantInactive) {
			t.Fatalf("expected ErrVariantInactive, got %v", err)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		db, _ := newMock(t)
		_, err := AddItem(context.Background(), db, activeCart(), ItemNew{VariantID: vid}, time.Now())
		var fe *validate.FieldError
		if !errors.As(err, &fe) {
			t.Fatalf("expected a validation error, got %v", err)
		}
	})

	t.Run("checked out cart", func(t *testing.T) {
		db, _ := newMock(t)
		c := activeCart()
		c.Status = CheckedOut
		_, err := AddItem(context.Background(), db, c, ItemNew{VariantID: vid, Quantity: 1}, time.Now())
		if !errors.Is(err, ErrCartInactive) {
			t.Fatalf("expected ErrCartInactive, got %v", err)
		}
	})
}

func TestUpdateItemNotOwned(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()

	mock.ExpectQuery("FROM cart_items WHERE cart_id = (.+) AND cart_item_id").
		WithArgs(c.ID, "someone-elses").
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err := UpdateItem(context.Background(), db, c, "someone-elses", ItemUp{Quantity: 2}, time.Now())
	if !errors.Is(err, database.ErrDBNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateItemUsesAbsoluteQuantity(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()
	vid := validate.GenerateID()
	now := time.Now()

	mock.ExpectQuery("FROM cart_items WHERE cart_id = (.+) AND cart_item_id").
		WithArgs(c.ID, "line-1").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow("line-1", c.ID, vid, 3, "2.00", now, now))
	expectVariant(mock, vid, "2.20", 4, true)
	mock.ExpectExec("UPDATE cart_items").
		WithArgs(4, sqlmock.AnyArg(), sqlmock.AnyArg(), "line-1", c.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	it, err := UpdateItem(context.Background(), db, c, "line-1", ItemUp{Quantity: 4}, now)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if it.Quantity != 4 || !it.Price.Equal(decimal.RequireFromString("2.20")) {
		t.Fatalf("unexpected item %+v", it)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveItemNotFound(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()

	mock.ExpectExec("DELETE FROM cart_items WHERE cart_id = (.+) AND cart_item_id").
		WithArgs(c.ID, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := RemoveItem(context.Background(), db, c, "missing"); !errors.Is(err, database.ErrDBNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()

	mock.ExpectExec("DELETE FROM cart_items WHERE cart_id").WithArgs(c.ID).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM cart_items WHERE cart_id").WithArgs(c.ID).WillReturnResult(sqlmock.NewResult(0, 0))

	for i := 0; i < 2; i++ {
		if err := Clear(context.Background(), db, c); err != nil {
			t.Fatalf("clear #%d: %v", i+1, err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestShowTotalsSnapshotPrices(t *testing.T) {
	db, mock := newMock(t)
	c := activeCart()
	now := time.Now()

	mock.ExpectQuery("FROM cart_items WHERE cart_id = (.+) ORDER BY").
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow("l1", c.ID, "v1", 3, "1.10", now, now).
			AddRow("l2", c.ID, "v2", 2, "2.25", now, now))

	viewCols := append(append([]string{}, variantCols...), "p_name", "p_description", "p_created_at", "p_updated_at")
	mock.ExpectQuery("JOIN products").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(viewCols).
			AddRow("v1", "p1", "SKU-001", "Small", "9.99", 10, true, now, now, "Latte", "", now, now).
			AddRow("v2", "p1", "SKU-002", "Large", "9.99", 10, true, now, now, "Latte", "", now, now))

	view, err := Show(context.Background(), db, c)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(view.Items))
	}
	if !view.Total.Equal(decimal.RequireFromString("7.80")) {
		t.Fatalf("expected total 7.80 from snapshots, got %s", view.Total)
	}
	if view.Items[0].Variant.Product.Name != "Latte" || view.Items[1].Variant.SKU != "SKU-002" {
		t.Fatalf("variant views not attached: %+v", view.Items)
	}
}

func TestAddItemRejectsOversizedQuantity(t *testing.T) {
	db, mock := newMock(t)

	_, err := AddItem(context.Background(), db, activeCart(), ItemNew{VariantID: validate.GenerateID(), Quantity: math.MaxInt64}, time.Now())
	var fe *validate.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expected no queries: %v", err)
	}

	_, err = UpdateItem(context.Background(), db, activeCart(), validate.GenerateID(), ItemUp{Quantity: 100001}, time.Now())
	if !errors.As(err, &fe) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestCheckActive(t *testing.T) {
	user := "u1"
	kioskCart := activeCart()
	kioskCart.Status = Expired
	userCart := Cart{ID: "c2", UserID: &user, Status: CheckedOut}

	if err := CheckActive(activeCart()); err != nil {
		t.Fatalf("expected an active cart to pass, got %v", err)
	}

	err := CheckActive(kioskCart)
	if !errors.Is(err, ErrSessionClosed) || !errors.Is(err, ErrCartInactive) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}

	err = CheckActive(userCart)
	if !errors.Is(err, ErrCartInactive) || errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected plain ErrCartInactive, got %v", err)
	}
}
