package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/bookreports/internal/reconcile"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

const booksCSV = "Voucher No,Date,GSTIN,Taxable Value,CGST,SGST,IGST,Total\n" +
	"INV-1,15/04/2024,27AAAAA0000A1Z5,1000,90,90,0,1180\n" +
	"INV-2,16/04/2024,27AAAAA0000A1Z5,500,45,45,0,590\n"

func TestReconcileCommandClean(t *testing.T) {
	internal := writeFile(t, "books.csv", booksCSV)
	external := writeWorkbook(t, "portal.xlsx", [][]interface{}{
		{"Invoice Number", "Invoice Date", "GSTIN of Supplier", "Taxable Value", "Central Tax", "State Tax", "Integrated Tax", "Invoice Value"},
		{"inv-1", "15-04-2024", "27AAAAA0000A1Z5", 1000, 90, 90, 0, 1180},
		{"INV-2", "16/04/2024", "27AAAAA0000A1Z5", 500.04, 45, 45, 0, 590},
	})

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := ReconcileCommand(context.Background(), ReconcileOptions{
		Internal: internal,
		External: external,
		Stdout:   stdout,
		Stderr:   stderr,
	})
	require.Equal(t, ExitOK, code, stderr.String())
	require.Contains(t, stdout.String(), "2 row(s): 2 matched")
}

func TestReconcileCommandJSONDiscrepancies(t *testing.T) {
	internal := writeFile(t, "books.csv", booksCSV)
	external := writeFile(t, "portal.csv", "Invoice No,Invoice Date,GSTIN,Taxable Value,CGST,SGST,IGST,Total\n"+
		"INV-1,15/04/2024,27AAAAA0000A1Z5,1000,95,90,0,1185\n"+
		"INV-3,17/04/2024,,100,0,0,18,118\n")

	stdout := new(bytes.Buffer)
	code := ReconcileCommand(context.Background(), ReconcileOptions{
		Internal:   internal,
		External:   external,
		JSONOutput: true,
		Stdout:     stdout,
		Stderr:     new(bytes.Buffer),
	})
	require.Equal(t, ExitDiscrepancies, code)

	var summary ReconcileSummary
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &summary))
	require.False(t, summary.OK)
	require.Equal(t, reconcile.Stats{Total: 3, Mismatch: 1, MissingInExternal: 1, MissingInInternal: 1}, summary.Stats)
	require.Equal(t, "CGST: 95 vs 90", findRow(summary.Rows, "INV-1").Reason)
}

func findRow(rows []reconcile.Row, key string) reconcile.Row {
	for _, row := range rows {
		if row.Key == key {
			return row
		}
	}
	return reconcile.Row{}
}

func TestReconcileCommandUnknownKeys(t *testing.T) {
	internal := writeFile(t, "books.csv", booksCSV)
	external := writeFile(t, "portal.csv", "Reference,Total\nINV-1,1180\n")

	stdout := new(bytes.Buffer)
	code := ReconcileCommand(context.Background(), ReconcileOptions{Internal: internal, External: external, Stdout: stdout, Stderr: new(bytes.Buffer)})
	require.Equal(t, ExitDiscrepancies, code)
	require.Contains(t, stdout.String(), "external: business key column not found")
	require.Contains(t, stdout.String(), "3 unknown keys")
}

func TestReconcileCommandErrors(t *testing.T) {
	stderr := new(bytes.Buffer)
	require.Equal(t, ExitFailure, ReconcileCommand(context.Background(), ReconcileOptions{Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "--internal and --external are required")

	stderr.Reset()
	internal := writeFile(t, "books.csv", booksCSV)
	external := writeFile(t, "portal.pdf", "%PDF")
	require.Equal(t, ExitFailure, ReconcileCommand(context.Background(), ReconcileOptions{Internal: internal, External: external, Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "unsupported file format")
}
