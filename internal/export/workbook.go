// Package export renders invoices as an xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/garyjia/facturas-review/internal/invoice"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Facturas"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	idHeader = "ID Documento"
)

// Headers returns the header row: document id followed by the editable
// fields in form order.
func Headers() []string {
	headers := make([]string, 0, len(invoice.EditableFields)+1)
	headers = append(headers, idHeader)
	for _, name := range invoice.EditableFields {
		headers = append(headers, invoice.ControlLabel(name))
	}
	return headers
}

// Write renders invoices to w, one row per invoice after the header row.
func Write(w io.Writer, invoices []*entity.Invoice) error {
	f := excelize.NewFile()
	defer f.Close()

	// NewFile starts with "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headers := Headers()
	if err := setRow(f, 1, toCells(headers)); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("failed to resolve column: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, inv := range invoices {
		if inv == nil {
			continue
		}
		cells := make([]interface{}, 0, len(headers))
		cells = append(cells, inv.DocumentID)
		for _, name := range invoice.EditableFields {
			cells = append(cells, invoice.FieldValue(inv, name))
		}
		if err := setRow(f, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve row %d: %w", row, err)
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("failed to set row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
