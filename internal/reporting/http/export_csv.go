package reportinghttp

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/odyssey-erp/bookreports/internal/reconcile"
	"github.com/odyssey-erp/bookreports/internal/reporting"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var csvHeader = []string{"status", "key", "reason", "internal_ref", "external_ref"}

// writeReconcileCSV streams reconciliation rows with the run summary as comment lines.
func writeReconcileCSV(w io.Writer, out reporting.ReconcileOutcome) error {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true

	stats := out.Result.Stats
	comments := []string{
		fmt.Sprintf("# run_id=%s file=%s", out.RunID, out.FileName),
		fmt.Sprintf("# total=%d matched=%d mismatch=%d missing_in_external=%d missing_in_internal=%d unknown_keys=%d",
			stats.Total, stats.Matched, stats.Mismatch, stats.MissingInExternal, stats.MissingInInternal, stats.UnknownKeys),
	}
	for _, line := range comments {
		if _, err := buf.WriteString(line + "\r\n"); err != nil {
			return err
		}
	}
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	internalKey := reconcile.VoucherMapping().Columns[reconcile.FieldVoucherNo]
	externalKey := out.Mapping.Columns[reconcile.FieldVoucherNo]
	for i, row := range out.Result.Rows {
		record := []string{
			string(row.Status),
			row.Key,
			row.Reason,
			recordCell(row.Internal, internalKey),
			recordCell(row.External, externalKey),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
		if (i+1)%csvFlushEvery == 0 {
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

func recordCell(rec reconcile.Record, keyColumn string) string {
	if rec == nil || keyColumn == "" {
		return ""
	}
	return rec.Get(keyColumn)
}
