package order

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/jmoiron/sqlx"
	"github.com/tealeg/xlsx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeader = []string{
	"Order ID", "Order No", "Owner", "Status", "Total", "Created At", "Updated At",
}

// Workbook renders orders as a single-sheet spreadsheet.
func Workbook(orders []Order) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, fmt.Errorf("adding sheet: %w", err)
	}

	head := sheet.AddRow()
	for _, h := range exportHeader {
		head.AddCell().SetString(h)
	}

	for _, o := range orders {
		owner := "kiosk"
		if o.UserID != nil {
			owner = "user:" + *o.UserID
		}

		row := sheet.AddRow()
		row.AddCell().SetString(o.ID)
		row.AddCell().SetString(o.Number)
		row.AddCell().SetString(owner)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(o.TotalAmount.StringFixed(2))
		row.AddCell().SetString(o.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(o.UpdatedAt.Format("2006-01-02 15:04:05"))
	}

	return file, nil
}

func HandleAdminExport(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		st, err := statusFilter(r)
		if err != nil {
			return err
		}

		orders, err := List(ctx, db, st)
		if err != nil {
			return fmt.Errorf("listing orders: %w", err)
		}

		file, err := Workbook(orders)
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}

		name := fmt.Sprintf("orders-%s.xlsx", time.Now().UTC().Format("20060102"))
		return web.Attachment(ctx, w, name, xlsxContentType, func(out io.Writer) error {
			return file.Write(out)
		})
	}
}
