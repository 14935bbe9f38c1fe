package export

import (
	"bytes"
	"testing"

	"github.com/garyjia/facturas-review/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWrite(t *testing.T) {
	invoices := []*entity.Invoice{
		{
			DocumentID:  "doc-1",
			Number:      entity.String("F-2024-001"),
			FileName:    entity.String("factura.pdf"),
			IssuerTaxID: entity.String("B12345678"),
			Total:       entity.Float(121),
		},
		{DocumentID: "doc-2"},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, invoices))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Headers(), rows[0])
	assert.Equal(t, "ID Documento", rows[0][0])
	assert.Equal(t, "Número de Factura", rows[0][1])

	assert.Equal(t, "doc-1", rows[1][0])
	assert.Equal(t, "F-2024-001", rows[1][1])
	assert.Equal(t, "factura.pdf", rows[1][2])
	assert.Contains(t, rows[1], "B12345678")
	assert.Contains(t, rows[1], "121")

	// GetRows trims trailing empty cells
	assert.Equal(t, []string{"doc-2"}, rows[2])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(Headers()))
}
