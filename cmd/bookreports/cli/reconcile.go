package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odyssey-erp/bookreports/internal/reconcile"
)

// Exit codes of the reconcile command.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitDiscrepancies = 10
)

// ReconcileOptions defines available flags for the reconcile command.
type ReconcileOptions struct {
	Internal   string
	External   string
	Tolerance  float64
	JSONOutput bool
	ShowAll    bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ReconcileSummary is the JSON output of the reconcile command.
type ReconcileSummary struct {
	OK       bool                    `json:"ok"`
	Stats    reconcile.Stats         `json:"stats"`
	Internal reconcile.ColumnMapping `json:"internal_mapping"`
	External reconcile.ColumnMapping `json:"external_mapping"`
	Rows     []reconcile.Row         `json:"rows"`
}

// ReconcileCommand matches two registers read from disk and prints the outcome. It
// returns ExitDiscrepancies when any row is not matched.
func ReconcileCommand(ctx context.Context, opts ReconcileOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Internal) == "" || strings.TrimSpace(opts.External) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "reconcile: --internal and --external are required")
		return ExitFailure
	}
	if opts.Tolerance < 0 {
		_, _ = fmt.Fprintf(opts.Stderr, "reconcile: tolerance must not be negative, got %v\n", opts.Tolerance)
		return ExitFailure
	}

	internal, internalMap, err := loadRegister(opts.Internal)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
		return ExitFailure
	}
	external, externalMap, err := loadRegister(opts.External)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
		return ExitFailure
	}
	if err := ctx.Err(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "reconcile: %v\n", err)
		return ExitFailure
	}

	matcher := reconcile.NewMatcher(internalMap, externalMap, reconcile.GSTChecks, opts.Tolerance)
	result := matcher.Reconcile(internal.Records, external.Records)

	if opts.JSONOutput {
		summary := ReconcileSummary{
			OK:       result.Stats.Discrepancies() == 0,
			Stats:    result.Stats,
			Internal: internalMap,
			External: externalMap,
			Rows:     result.Rows,
		}
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "reconcile: encode json: %v\n", err)
			return ExitFailure
		}
	} else {
		renderReconcileHuman(opts.Stdout, opts, internalMap, externalMap, result)
	}
	if result.Stats.Discrepancies() > 0 {
		return ExitDiscrepancies
	}
	return ExitOK
}

func loadRegister(path string) (reconcile.Sheet, reconcile.ColumnMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return reconcile.Sheet{}, reconcile.ColumnMapping{}, err
	}
	defer f.Close()
	sheet, err := reconcile.ReadFile(filepath.Base(path), f)
	if err != nil {
		return reconcile.Sheet{}, reconcile.ColumnMapping{}, fmt.Errorf("%s: %w", path, err)
	}
	mapping, err := reconcile.DetectColumns(sheet.Headers, reconcile.DefaultRules)
	if err != nil && !errors.Is(err, reconcile.ErrUnknownKeys) {
		return reconcile.Sheet{}, reconcile.ColumnMapping{}, fmt.Errorf("%s: %w", path, err)
	}
	return sheet, mapping, nil
}

func renderReconcileHuman(out io.Writer, opts ReconcileOptions, internal, external reconcile.ColumnMapping, result reconcile.Result) {
	stats := result.Stats
	_, _ = fmt.Fprintf(out, "Reconciled %s against %s\n", filepath.Base(opts.Internal), filepath.Base(opts.External))
	for _, side := range []struct {
		name    string
		mapping reconcile.ColumnMapping
	}{{"internal", internal}, {"external", external}} {
		if !side.mapping.HasKey() {
			_, _ = fmt.Fprintf(out, "  %s: business key column not found\n", side.name)
		}
		if len(side.mapping.Missing) > 0 {
			missing := make([]string, len(side.mapping.Missing))
			for i, field := range side.mapping.Missing {
				missing[i] = string(field)
			}
			sort.Strings(missing)
			_, _ = fmt.Fprintf(out, "  %s: columns not found: %s\n", side.name, strings.Join(missing, ", "))
		}
	}
	_, _ = fmt.Fprintf(out, "%d row(s): %d matched, %d mismatch, %d missing in external, %d missing in internal, %d unknown keys\n",
		stats.Total, stats.Matched, stats.Mismatch, stats.MissingInExternal, stats.MissingInInternal, stats.UnknownKeys)
	for _, row := range result.Rows {
		if row.Status == reconcile.StatusMatched && !opts.ShowAll {
			continue
		}
		line := fmt.Sprintf("  %-20s %s", row.Status, row.Key)
		if row.Reason != "" {
			line += "  (" + row.Reason + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
}
