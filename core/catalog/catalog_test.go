package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/validate"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var viewCols = []string{
	"variant_id", "product_id", "sku", "name", "price", "stock_qty", "active", "created_at", "updated_at",
	"p_name", "p_description", "p_created_at", "p_updated_at",
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mdb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { mdb.Close() })
	return sqlx.NewDb(mdb, "postgres"), mock
}

func TestFetchViewsSkipsQueryForNoIDs(t *testing.T) {
	db, mock := newMock(t)

	views, err := FetchViews(context.Background(), db, nil)
	if err != nil || len(views) != 0 {
		t.Fatalf("expected empty result, got %v (%v)", views, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestFetchViewsKeysByVariant(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery("JOIN products p").
		WillReturnRows(sqlmock.NewRows(viewCols).
			AddRow("v1", "p1", "SKU-001", "Small", "2.50", 10, true, now, now, "Coffee", "Hot", now, now).
			AddRow("v2", "p1", "SKU-002", "Large", "3.10", 0, false, now, now, "Coffee", "Hot", now, now))

	views, err := FetchViews(context.Background(), db, []string{"v1", "v2"})
	if err != nil {
		t.Fatalf("fetch views: %v", err)
	}

	v := views["v2"]
	if v.SKU != "SKU-002" || v.Active || v.Product.Name != "Coffee" || v.Product.ID != "p1" {
		t.Fatalf("unexpected view %+v", v)
	}
	if !v.Price.Equal(decimal.RequireFromString("3.10")) {
		t.Fatalf("expected price 3.10, got %s", v.Price)
	}
}

func TestHandleShowVariant(t *testing.T) {
	id := validate.GenerateID()
	now := time.Now()

	tests := []struct {
		name  string
		id    string
		setup func(sqlmock.Sqlmock)
		want  int
	}{
		{"bad id", "nope", func(sqlmock.Sqlmock) {}, http.StatusBadRequest},
		{"missing", id, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("WHERE v.variant_id").WillReturnRows(sqlmock.NewRows(viewCols))
		}, http.StatusNotFound},
		{"found", id, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("WHERE v.variant_id").
				WithArgs(id).
				WillReturnRows(sqlmock.NewRows(viewCols).
					AddRow(id, "p1", "SKU-001", "Small", "2.50", 10, true, now, now, "Coffee", "", now, now))
		}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setup(mock)

			r := httptest.NewRequest(http.MethodGet, "/variants/"+tt.id, nil)
			r = mux.SetURLVars(r, map[string]string{"id": tt.id})
			w := httptest.NewRecorder()

			err := HandleShowVariant(db)(r.Context(), w, r)
			if tt.want != http.StatusOK {
				if _, status, ok := weberr.Response(err); !ok || status != tt.want {
					t.Fatalf("expected %d, got %d (%v)", tt.want, status, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			var got VariantView
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.ID != id || got.Product.Name != "Coffee" {
				t.Fatalf("unexpected body %+v", got)
			}
		})
	}
}
