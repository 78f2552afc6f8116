// Package export renders bookings as an Excel workbook for the owner.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"slotlink/internal/model"
)

var bookingColumns = []string{
	"ID", "Page", "Name", "Contact", "Reason", "Notes", "Start", "End", "Created At",
}

const timeLayout = "2006-01-02 15:04"

// WriteBookings writes all bookings as a single-sheet xlsx workbook.
func WriteBookings(w io.Writer, bookings []model.Booking) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	f.SetSheetName("Sheet1", sheet)

	if err := writeRow(f, sheet, 1, toAny(bookingColumns)); err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(bookingColumns), 1)
		_ = f.SetCellStyle(sheet, "A1", endCell, style)
	}

	for i, b := range bookings {
		row := []any{
			b.ID, b.PageRef, b.Name, b.Contact, b.Reason, b.Notes,
			b.Start.Format(timeLayout), b.End.Format(timeLayout),
			b.CreatedAt.Format(timeLayout),
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
