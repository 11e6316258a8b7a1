package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"inventory-ledger/internal/app"
)

// Run starts the interactive REPL loop.
// It reads commands from reader, dispatches slash commands deterministically,
// and routes free text through the AI drafter. user is recorded as the
// proposer, approver or rejecter of every action taken.
func Run(ctx context.Context, svc app.ApplicationService, reader *bufio.Reader, w io.Writer, user string) error {
	fmt.Fprintln(w, "Inventory Ledger")
	fmt.Fprintf(w, "Operator: %s\n", user)
	fmt.Fprintln(w, "Describe a stock discrepancy to draft an adjustment, or use /help for commands.")
	fmt.Fprintln(w, strings.Repeat("-", 70))

	errExit := errors.New("exit")

	dispatchSlash := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "items":
			status := ""
			if len(args) > 0 {
				status = args[0]
			}
			result, err := svc.ListItems(ctx, app.ListItemsRequest{Status: status})
			if err != nil {
				return err
			}
			printItems(w, result)

		case "item":
			if len(args) < 1 {
				fmt.Fprintln(w, "Usage: /item <item-code>")
				return nil
			}
			item, err := svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return err
			}
			printItem(w, item)

		case "movements":
			if len(args) < 1 {
				fmt.Fprintln(w, "Usage: /movements <item-code>")
				return nil
			}
			item, err := svc.GetItemByCode(ctx, args[0])
			if err != nil {
				return err
			}
			result, err := svc.ListMovements(ctx, app.ListMovementsRequest{ItemID: item.ID})
			if err != nil {
				return err
			}
			printMovements(w, result)

		case "pending":
			result, err := svc.ListAdjustments(ctx, app.ListAdjustmentsRequest{Status: "PENDING"})
			if err != nil {
				return err
			}
			printAdjustments(w, result)

		case "propose":
			if len(args) < 1 {
				fmt.Fprintln(w, "Usage: /propose <item-code>")
				return nil
			}
			return handleProposeAdjustment(ctx, reader, w, svc, user, args[0])

		case "review":
			return reviewPending(ctx, reader, w, svc, user)

		case "approve":
			if len(args) < 1 {
				fmt.Fprintln(w, "Usage: /approve <adjustment-id>")
				return nil
			}
			result, err := svc.ApproveAdjustment(ctx, args[0], user)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Adjustment %s COMPLETED.\n", result.Adjustment.ID)

		case "reject":
			if len(args) < 1 {
				fmt.Fprintln(w, "Usage: /reject <adjustment-id>")
				return nil
			}
			result, err := svc.RejectAdjustment(ctx, args[0], user)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Adjustment %s REJECTED.\n", result.Adjustment.ID)

		case "help", "h":
			printHelp(w)

		case "exit", "quit", "q":
			return errExit

		default:
			fmt.Fprintf(w, "Unknown command: /%s. Type /help for commands.\n", cmd)
		}
		return nil
	}

	for {
		fmt.Fprint(w, "> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if err != nil && input == "" {
			return nil
		}
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if err := dispatchSlash(input); err != nil {
				if errors.Is(err, errExit) {
					return nil
				}
				fmt.Fprintf(w, "Error: %v\n", err)
			}
			continue
		}

		if err := handleDraft(ctx, reader, w, svc, user, input); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
	}
}

// handleDraft previews an AI draft and proposes it only on explicit confirmation.
func handleDraft(ctx context.Context, reader *bufio.Reader, w io.Writer, svc app.ApplicationService, user, text string) error {
	preview, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: text})
	if err != nil {
		return err
	}
	printDraft(w, preview.Draft, preview.Item)

	answer, ok := prompt(reader, w, "Propose this adjustment? (y/n): ")
	if !ok || !strings.EqualFold(answer, "y") {
		fmt.Fprintln(w, "Draft discarded.")
		return nil
	}
	result, err := svc.ProposeAdjustment(ctx, app.ProposeAdjustmentRequest{
		ItemID:    preview.Item.ID,
		Type:      preview.Draft.Type,
		Quantity:  preview.Draft.Quantity,
		Reason:    preview.Draft.Reason,
		CreatedBy: user,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Adjustment %s recorded as PENDING. Use /review to approve it.\n", result.Adjustment.ID)
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  /items [status]        list items (status: OUT_OF_STOCK, LOW_STOCK, IN_STOCK, OVERSTOCK)
  /item <code>           show one item
  /movements <code>      list movements for one item
  /pending               list pending adjustments
  /propose <code>        propose an adjustment interactively
  /review                approve, reject or skip each pending adjustment
  /approve <id>          approve one adjustment
  /reject <id>           reject one adjustment
  /exit                  leave
Anything else is sent to the AI drafter as a stock report.`)
}
