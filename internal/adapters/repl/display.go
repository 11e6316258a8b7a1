package repl

import (
	"fmt"
	"io"
	"strings"

	"inventory-ledger/internal/ai"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

func printItems(w io.Writer, result *app.ItemListResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-14s %-26s %10s  %s\n", "CODE", "NAME", "QTY", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	if len(result.Items) == 0 {
		fmt.Fprintln(w, "  No items found.")
	}
	for _, it := range result.Items {
		fmt.Fprintf(w, "  %-14s %-26s %10d  %s\n", it.ItemCode, truncate(it.Name, 26), it.CurrentQuantity, it.Status)
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func printMovements(w io.Writer, result *app.MovementListResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-12s %-10s %6s  %-14s %-14s %s\n", "REF", "TYPE", "QTY", "FROM", "TO", "STATUS")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	if len(result.Movements) == 0 {
		fmt.Fprintln(w, "  No movements recorded.")
	}
	for _, m := range result.Movements {
		fmt.Fprintf(w, "  %-12s %-10s %6d  %-14s %-14s %s\n", truncate(m.ReferenceNumber, 12), m.Type, m.Quantity,
			truncate(locationText(m.FromLocation), 14), truncate(locationText(m.ToLocation), 14), m.Status)
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func locationText(l *core.Location) string {
	if l == nil {
		return "-"
	}
	return l.String()
}

func printItem(w io.Writer, it *app.ItemResult) {
	fmt.Fprintf(w, "\nITEM:       %s  %s\n", it.ItemCode, it.Name)
	fmt.Fprintf(w, "QUANTITY:   %d (%s)\n", it.CurrentQuantity, it.Status)
	fmt.Fprintf(w, "THRESHOLDS: min %d, max %d, reorder at %d\n", it.MinQuantity, it.MaxQuantity, it.ReorderPoint)
	fmt.Fprintf(w, "UNIT COST:  %s\n", it.UnitCost.StringFixed(2))
	fmt.Fprintf(w, "ID:         %s (version %d)\n", it.ID, it.Version)
}

func printAdjustment(w io.Writer, a *core.InventoryAdjustment, itemCode string) {
	sign := "+"
	if a.Type == core.AdjustmentDecrease {
		sign = "-"
	}
	fmt.Fprintf(w, "\nADJUSTMENT: %s\n", a.ID)
	fmt.Fprintf(w, "ITEM:       %s\n", itemCode)
	fmt.Fprintf(w, "CHANGE:     %s%d (%s)\n", sign, a.Quantity, a.Type)
	fmt.Fprintf(w, "REASON:     %s\n", a.Reason)
	fmt.Fprintf(w, "STATUS:     %s\n", a.Status)
	if a.CreatedBy != "" {
		fmt.Fprintf(w, "PROPOSED:   by %s at %s\n", a.CreatedBy, a.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func printAdjustments(w io.Writer, result *app.AdjustmentListResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-36s %-9s %8s  %s\n", "ID", "TYPE", "QTY", "REASON")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	if len(result.Adjustments) == 0 {
		fmt.Fprintln(w, "  No adjustments found.")
	}
	for _, a := range result.Adjustments {
		fmt.Fprintf(w, "  %-36s %-9s %8d  %s\n", a.ID, a.Type, a.Quantity, truncate(a.Reason, 14))
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func printDraft(w io.Writer, d *ai.AdjustmentDraft, item *app.ItemResult) {
	fmt.Fprintf(w, "\nDRAFT:      %s %d of %s\n", d.Type, d.Quantity, d.ItemCode)
	fmt.Fprintf(w, "ON HAND:    %d\n", item.CurrentQuantity)
	fmt.Fprintf(w, "REASON:     %s\n", d.Reason)
	fmt.Fprintf(w, "REASONING:  %s\n", d.Reasoning)
	fmt.Fprintf(w, "CONFIDENCE: %.2f\n", d.Confidence)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
