package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"inventory-ledger/internal/adapters/web"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
)

// ErrUsage is returned when the command line cannot be parsed.
var ErrUsage = errors.New("usage")

// Options carries settings the CLI needs beyond the service.
type Options struct {
	User      string // recorded as proposer, approver or rejecter
	JWTSecret string // required by the token command
}

const usage = `Usage: app <command> [flags]

Commands:
  items create   -code SKU -name NAME [-qty N -min N -max N -reorder N -cost D]
  items get      <code>
  items list     [-status S]
  movements record   -code SKU -type T -qty N [-from W[/Z[/B]] -to W[/Z[/B]] -ref REF]
  movements cancel   <id>
  movements complete <id>
  movements list     [-code SKU -status S -type T]
  adjustments propose -code SKU -type INCREASE|DECREASE -qty N -reason R
  adjustments approve <id>
  adjustments reject  <id>
  adjustments list    [-code SKU -status S]
  adjustments draft   [-propose] "<stock report>"   (also: app draft)
  review  interactive walk through pending adjustments
  token   -sub SUBJECT [-role ROLE -ttl 8h]`

// Run executes a one-shot CLI command and writes JSON or tables to out.
// args is os.Args[1:]; the first element is the command name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, opts Options) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return ErrUsage
	}

	switch args[0] {
	case "items", "item", "i":
		return runItems(ctx, svc, args[1:], out)
	case "movements", "movement", "mv":
		return runMovements(ctx, svc, args[1:], out, opts)
	case "adjustments", "adjustment", "adj", "a":
		return runAdjustments(ctx, svc, args[1:], out, opts)
	case "draft", "d":
		return runDraft(ctx, svc, args[1:], out, opts)
	case "token":
		return runToken(args[1:], out, opts)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q\n%s", ErrUsage, args[0], usage)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func subcommand(args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: missing subcommand\n%s", ErrUsage, usage)
	}
	return args[0], args[1:], nil
}

func positional(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() < 1 {
		return "", fmt.Errorf("%w: %s %s is required", ErrUsage, fs.Name(), what)
	}
	return fs.Arg(0), nil
}

// ── Items ─────────────────────────────────────────────────────────────────────

func runItems(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("items "+sub, out)

	switch sub {
	case "create", "new":
		req := app.CreateItemRequest{}
		fs.StringVar(&req.ItemCode, "code", "", "item code")
		fs.StringVar(&req.Name, "name", "", "display name")
		fs.Int64Var(&req.InitialQuantity, "qty", 0, "opening quantity")
		fs.Int64Var(&req.MinQuantity, "min", 0, "minimum quantity")
		fs.Int64Var(&req.MaxQuantity, "max", 0, "maximum quantity")
		fs.Int64Var(&req.ReorderPoint, "reorder", 0, "reorder point")
		fs.StringVar(&req.UnitCost, "cost", "", "unit cost")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		item, err := svc.CreateItem(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(out, item)

	case "get", "show":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		code, err := positional(fs, "<code>")
		if err != nil {
			return err
		}
		item, err := svc.GetItemByCode(ctx, code)
		if err != nil {
			return err
		}
		return writeJSON(out, item)

	case "list", "ls":
		status := fs.String("status", "", "stock status filter")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		result, err := svc.ListItems(ctx, app.ListItemsRequest{Status: *status})
		if err != nil {
			return err
		}
		printItems(out, result)
		return nil
	}
	return fmt.Errorf("%w: unknown items subcommand %q", ErrUsage, sub)
}

// ── Movements ─────────────────────────────────────────────────────────────────

func runMovements(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, opts Options) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("movements "+sub, out)

	switch sub {
	case "record", "rec":
		req := app.RecordMovementRequest{CreatedBy: opts.User}
		var from, to string
		fs.StringVar(&req.ItemCode, "code", "", "item code")
		fs.StringVar(&req.Type, "type", "", "RECEIPT, ISSUE, RETURN, ADJUSTMENT or TRANSFER")
		fs.Int64Var(&req.Quantity, "qty", 0, "quantity")
		fs.StringVar(&req.ReferenceNumber, "ref", "", "reference number")
		fs.StringVar(&from, "from", "", "source location warehouse/zone/bin")
		fs.StringVar(&to, "to", "", "destination location warehouse/zone/bin")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		req.FromLocation = parseLocation(from)
		req.ToLocation = parseLocation(to)
		result, err := svc.RecordMovement(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(out, result.Movement)

	case "cancel", "complete":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := positional(fs, "<id>")
		if err != nil {
			return err
		}
		var result *app.MovementResult
		if sub == "cancel" {
			result, err = svc.CancelMovement(ctx, id)
		} else {
			result, err = svc.CompleteMovement(ctx, id)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, result.Movement)

	case "list", "ls":
		var code string
		req := app.ListMovementsRequest{}
		fs.StringVar(&code, "code", "", "item code filter")
		fs.StringVar(&req.Status, "status", "", "status filter")
		fs.StringVar(&req.Type, "type", "", "type filter")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if code != "" {
			item, err := svc.GetItemByCode(ctx, code)
			if err != nil {
				return err
			}
			req.ItemID = item.ID
		}
		result, err := svc.ListMovements(ctx, req)
		if err != nil {
			return err
		}
		printMovements(out, result)
		return nil
	}
	return fmt.Errorf("%w: unknown movements subcommand %q", ErrUsage, sub)
}

func printMovements(out io.Writer, result *app.MovementListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %-12s %-10s %6s  %-16s %-16s %s\n", "REF", "TYPE", "QTY", "FROM", "TO", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, m := range result.Movements {
		fmt.Fprintf(out, "  %-12s %-10s %6d  %-16s %-16s %s\n",
			m.ReferenceNumber, m.Type, m.Quantity, locationText(m.FromLocation), locationText(m.ToLocation), m.Status)
	}
	fmt.Fprintln(out, strings.Repeat("=", 78))
}

func locationText(l *core.Location) string {
	if l == nil {
		return "-"
	}
	return l.String()
}

// parseLocation reads "warehouse/zone/bin"; an empty string means no location.
func parseLocation(s string) *core.Location {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.SplitN(s, "/", 3)
	loc := &core.Location{Warehouse: parts[0]}
	if len(parts) > 1 {
		loc.Zone = parts[1]
	}
	if len(parts) > 2 {
		loc.Bin = parts[2]
	}
	return loc
}

// ── Adjustments ───────────────────────────────────────────────────────────────

func runAdjustments(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, opts Options) error {
	sub, rest, err := subcommand(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("adjustments "+sub, out)

	switch sub {
	case "propose", "prop", "p":
		req := app.ProposeAdjustmentRequest{CreatedBy: opts.User}
		fs.StringVar(&req.ItemCode, "code", "", "item code")
		fs.StringVar(&req.Type, "type", "", "INCREASE or DECREASE")
		fs.Int64Var(&req.Quantity, "qty", 0, "quantity")
		fs.StringVar(&req.Reason, "reason", "", "reason")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		result, err := svc.ProposeAdjustment(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(out, result.Adjustment)

	case "approve", "reject":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := positional(fs, "<id>")
		if err != nil {
			return err
		}
		if sub == "reject" {
			result, err := svc.RejectAdjustment(ctx, id, opts.User)
			if err != nil {
				return err
			}
			return writeJSON(out, result.Adjustment)
		}
		result, err := svc.ApproveAdjustment(ctx, id, opts.User)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"adjustment": result.Adjustment, "item": result.Item})

	case "list", "ls":
		var code string
		req := app.ListAdjustmentsRequest{}
		fs.StringVar(&code, "code", "", "item code filter")
		fs.StringVar(&req.Status, "status", "", "status filter")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if code != "" {
			item, err := svc.GetItemByCode(ctx, code)
			if err != nil {
				return err
			}
			req.ItemID = item.ID
		}
		result, err := svc.ListAdjustments(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(out, result)

	case "draft":
		return runDraft(ctx, svc, rest, out, opts)
	}
	return fmt.Errorf("%w: unknown adjustments subcommand %q", ErrUsage, sub)
}

// ── AI drafting ───────────────────────────────────────────────────────────────

func runDraft(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer, opts Options) error {
	fs := newFlagSet("draft", out)
	propose := fs.Bool("propose", false, "record the draft as a PENDING adjustment")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: app draft \"<stock report>\"", ErrUsage)
	}
	result, err := svc.DraftAdjustment(ctx, app.DraftAdjustmentRequest{Text: text, Propose: *propose, CreatedBy: opts.User})
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]any{"draft": result.Draft, "item": result.Item, "adjustment": result.Adjustment})
}

// ── Tokens ────────────────────────────────────────────────────────────────────

func runToken(args []string, out io.Writer, opts Options) error {
	fs := newFlagSet("token", out)
	sub := fs.String("sub", "", "subject (operator id)")
	role := fs.String("role", "operator", "role claim")
	ttl := fs.Duration("ttl", 8*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sub == "" {
		return fmt.Errorf("%w: token -sub is required", ErrUsage)
	}
	if opts.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	token, err := web.MintToken(opts.JWTSecret, *sub, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(out io.Writer, result *app.ItemListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 62))
	fmt.Fprintf(out, "  %-14s %-24s %8s  %s\n", "CODE", "NAME", "QTY", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 62))
	for _, it := range result.Items {
		fmt.Fprintf(out, "  %-14s %-24s %8d  %s\n", it.ItemCode, it.Name, it.CurrentQuantity, it.Status)
	}
	fmt.Fprintln(out, strings.Repeat("=", 62))
}
