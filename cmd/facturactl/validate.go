package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garyjia/facturas-review/internal/invoice"
)

type validationReport struct {
	Index  int                 `json:"index"`
	ID     string              `json:"id"`
	Valid  bool                `json:"valid"`
	Codes  []invoice.ErrorCode `json:"codes"`
	Fields []invoice.FieldSpec `json:"fields"`
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Run the submission rules over invoice rows",
		Long: `Reads a JSON object or array of invoice rows from a file ("-" for stdin)
and prints, per row, the violated rule codes and the fields they point at.
Exits non-zero when any row fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	rows, err := decodeRows(data)
	if err != nil {
		return err
	}

	reports := make([]validationReport, 0, len(rows))
	failed := 0
	for i, row := range rows {
		inv := invoice.FromRaw(row)
		codes := invoice.Validate(inv)
		if len(codes) > 0 {
			failed++
		}
		reports = append(reports, validationReport{
			Index:  i,
			ID:     inv.ResolveID(),
			Valid:  len(codes) == 0,
			Codes:  codes,
			Fields: invoice.Resolve(codes, nil),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d invoices failed validation", failed, len(rows))
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// decodeRows accepts a single row object or an array of rows.
func decodeRows(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows, nil
	}

	var row map[string]interface{}
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("input is neither a row nor an array of rows: %w", err)
	}
	return []map[string]interface{}{row}, nil
}
