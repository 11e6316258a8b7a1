package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

func prompt(reader *bufio.Reader, w io.Writer, label string) (string, bool) {
	fmt.Fprint(w, label)
	raw, err := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if err != nil && raw == "" {
		return "", false
	}
	return raw, true
}

// handleProposeAdjustment runs an interactive adjustment proposal session.
func handleProposeAdjustment(ctx context.Context, reader *bufio.Reader, w io.Writer, svc app.ApplicationService, user, itemCode string) error {
	item, err := svc.GetItemByCode(ctx, itemCode)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Proposing adjustment for %s (on hand: %d). Type 'cancel' at any prompt to abort.\n", item.ItemCode, item.CurrentQuantity)

	var typ string
	for {
		raw, ok := prompt(reader, w, "  Type [increase/decrease]: ")
		if !ok || strings.EqualFold(raw, "cancel") {
			fmt.Fprintln(w, "Proposal cancelled.")
			return nil
		}
		if t, err := core.ParseAdjustmentType(raw); err == nil {
			typ = string(t)
			break
		}
		fmt.Fprintln(w, "  Enter increase or decrease.")
	}

	var qty int64
	for {
		raw, ok := prompt(reader, w, "  Quantity: ")
		if !ok || strings.EqualFold(raw, "cancel") {
			fmt.Fprintln(w, "Proposal cancelled.")
			return nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && n > 0 {
			qty = n
			break
		}
		fmt.Fprintln(w, "  Invalid quantity.")
	}

	reason, ok := prompt(reader, w, "  Reason: ")
	if !ok || strings.EqualFold(reason, "cancel") || reason == "" {
		fmt.Fprintln(w, "Proposal cancelled.")
		return nil
	}

	result, err := svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{
		ItemID:    item.ID,
		Type:      typ,
		Quantity:  qty,
		Reason:    reason,
		CreatedBy: user,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Adjustment %s recorded as PENDING.\n", result.Adjustment.ID)
	return nil
}

// reviewPending walks every PENDING adjustment and asks the operator to
// approve, reject or skip it. Approval errors are reported and the walk continues.
func reviewPending(ctx context.Context, reader *bufio.Reader, w io.Writer, svc app.ApplicationService, user string) error {
	pending, err := svc.ListAdjustments(ctx, app.ListAdjustmentsRequest{Status: string(core.AdjustmentPending)})
	if err != nil {
		return err
	}
	if len(pending.Adjustments) == 0 {
		fmt.Fprintln(w, "No pending adjustments.")
		return nil
	}

	var approved, rejected, skipped int
	codes := map[string]string{}
	for i := range pending.Adjustments {
		a := &pending.Adjustments[i]
		code, ok := codes[a.ItemID]
		if !ok {
			code = a.ItemID
			if item, err := svc.GetItem(ctx, a.ItemID); err == nil {
				code = fmt.Sprintf("%s (on hand: %d)", item.ItemCode, item.CurrentQuantity)
			}
			codes[a.ItemID] = code
		}
		printAdjustment(w, a, code)

		answer, ok := prompt(reader, w, "Approve, reject, skip or quit? (a/r/s/q): ")
		if !ok {
			break
		}
		switch strings.ToLower(answer) {
		case "a", "approve":
			res, err := svc.ApproveAdjustment(ctx, a.ID, user)
			if err != nil {
				fmt.Fprintf(w, "Not approved: %v\n", err)
				skipped++
				continue
			}
			approved++
			delete(codes, a.ItemID)
			if res.Item != nil {
				fmt.Fprintf(w, "Approved. %s now at %d (%s).\n", res.Item.ItemCode, res.Item.CurrentQuantity, res.Item.Status)
			}
		case "r", "reject":
			if _, err := svc.RejectAdjustment(ctx, a.ID, user); err != nil {
				fmt.Fprintf(w, "Not rejected: %v\n", err)
				skipped++
				continue
			}
			rejected++
			fmt.Fprintln(w, "Rejected.")
		case "q", "quit":
			fmt.Fprintf(w, "Review stopped. Approved %d, rejected %d, skipped %d.\n", approved, rejected, skipped)
			return nil
		default:
			skipped++
		}
	}
	fmt.Fprintf(w, "Review finished. Approved %d, rejected %d, skipped %d.\n", approved, rejected, skipped)
	return nil
}
