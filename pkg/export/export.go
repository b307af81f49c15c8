// Package export renders a manufacturer's request lists as an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

const dateLayout = "2006-01-02"

var headers = map[models.ListName][]interface{}{
	models.ListInquiries:  {"ID", "Provider", "Type", "Quantity", "Unit", "Delivery location", "Message", "Status", "Created"},
	models.ListQuotations: {"ID", "Provider", "Type", "Quantity", "Unit", "Price per unit", "Total", "Delivery location", "Status", "Created"},
	models.ListOrders:     {"Order number", "Provider", "Type", "Quantity", "Unit", "Total", "Delivery location", "Status", "Payment", "Tracking", "Created"},
	models.ListRatings:    {"Order number", "Provider", "Rating", "Comment", "Would recommend", "Created"},
}

func SheetName(l models.ListName) string {
	switch l {
	case models.ListInquiries:
		return "Inquiries"
	case models.ListQuotations:
		return "Quotations"
	case models.ListOrders:
		return "Orders"
	case models.ListRatings:
		return "Ratings"
	}
	return string(l)
}

// Write builds one sheet per list, using the derived statuses rather than the
// stored ones, and streams the workbook to w.
func Write(w io.Writer, kind models.ProviderKind, snap *service.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, l := range models.Lists {
		sheet := SheetName(l)
		if i == 0 {
			// reuse the default sheet so the first list stays active
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		if err := writeRows(f, sheet, headers[l], rowsOf(l, snap)); err != nil {
			return err
		}
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: fmt.Sprintf("%s requests", kind)}); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func rowsOf(l models.ListName, snap *service.Snapshot) [][]interface{} {
	var rows [][]interface{}
	switch l {
	case models.ListInquiries:
		for _, r := range snap.Inquiries {
			rows = append(rows, []interface{}{
				r.ID, r.ProviderName, str(r.ItemType), num(r.Quantity), str(r.Unit),
				str(r.DeliveryLocation), r.Message, string(r.Label), date(r.CreatedAt),
			})
		}
	case models.ListQuotations:
		for _, r := range snap.Quotations {
			rows = append(rows, []interface{}{
				r.ID, r.ProviderName, r.ItemType, r.Quantity, r.Unit,
				r.PricePerUnit, r.TotalAmount, r.DeliveryLocation, string(r.Label), date(r.CreatedAt),
			})
		}
	case models.ListOrders:
		for _, r := range snap.Orders {
			rows = append(rows, []interface{}{
				r.OrderNumber, r.ProviderName, r.ItemType, r.Quantity, r.Unit, r.TotalAmount,
				r.DeliveryLocation, string(r.Label), string(r.Payment.Label), str(r.TrackingNumber), date(r.CreatedAt),
			})
		}
	case models.ListRatings:
		for _, r := range snap.Ratings {
			rows = append(rows, []interface{}{
				r.OrderNumber, r.ProviderName, r.Rating, r.Comment, yesNo(r.WouldRecommend), date(r.CreatedAt),
			})
		}
	}
	return rows
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(f *float64) interface{} {
	if f == nil {
		return ""
	}
	return *f
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
