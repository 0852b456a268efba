// budgetctl operates the budget ledger from the command line: accounts,
// deposits, outcomes, categories and spend statistics. The caller supplies
// the acting account id; authentication belongs to the surrounding system.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"budgetplanner/internal/audit"
	"budgetplanner/internal/categories"
	"budgetplanner/internal/cli"
	"budgetplanner/internal/core"
	"budgetplanner/internal/ledger"
	"budgetplanner/internal/log"
	"budgetplanner/internal/stats"
	"budgetplanner/internal/storage"
)

const usage = `usage: budgetctl <command> [flags]

commands:
  create-account   -username <name> [-phone <number>]
  balance          -account <id>
  deposit          -account <id> -amount <decimal>
  add-outcome      -account <id> -category <id> -amount <decimal>
  edit-outcome     -account <id> -outcome <id> -amount <decimal>
  delete-outcome   -account <id> -outcome <id>
  list-outcomes    -account <id> [-category <id>] [-min <decimal>] [-max <decimal>] [-created <substring>]
  add-category     -account <id> -name <name>
  rename-category  -account <id> -category <id> -name <name>
  delete-category  -account <id> -category <id>
  list-categories  -account <id> [-created <substring>]
  stats            -account <id>
  audit            [-account <id>]
`

type app struct {
	engine    *ledger.Engine
	directory *categories.Directory
	stats     *stats.Aggregator
	auditor   *audit.Auditor
	out       io.Writer
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	store := cli.InitStore(logger, cfg)
	defer closeStore(store)

	events := cli.InitAMQP(logger, cfg)
	if events != nil {
		defer events.Close()
	}

	engine := ledger.NewEngine(store, events)
	a := &app{
		engine:    engine,
		directory: categories.NewDirectory(store, engine),
		stats:     stats.NewAggregator(store),
		auditor:   audit.NewAuditor(store, cfg.AuditConcurrency),
		out:       os.Stdout,
	}

	if err := a.run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "budgetctl: %v\n", err)
		os.Exit(1)
	}
}

func closeStore(store storage.Store) {
	if closer, ok := store.(io.Closer); ok {
		closer.Close()
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "create-account":
		return a.createAccount(ctx, args)
	case "balance":
		return a.balance(ctx, args)
	case "deposit":
		return a.deposit(ctx, args)
	case "add-outcome":
		return a.addOutcome(ctx, args)
	case "edit-outcome":
		return a.editOutcome(ctx, args)
	case "delete-outcome":
		return a.deleteOutcome(ctx, args)
	case "list-outcomes":
		return a.listOutcomes(ctx, args)
	case "add-category":
		return a.addCategory(ctx, args)
	case "rename-category":
		return a.renameCategory(ctx, args)
	case "delete-category":
		return a.deleteCategory(ctx, args)
	case "list-categories":
		return a.listCategories(ctx, args)
	case "stats":
		return a.showStats(ctx, args)
	case "audit":
		return a.audit(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) createAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	username := fs.String("username", "", "login name for the account")
	phone := fs.String("phone", "", "contact phone number")
	fs.Parse(args)

	account, err := a.engine.CreateAccount(ctx, *username, *phone)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d created (username %s)\n", account.ID, account.Username)
	return nil
}

func (a *app) balance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	fs.Parse(args)

	balance, err := a.engine.Balance(ctx, *accountID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "balance: %s\n", balance)
	return nil
}

func (a *app) deposit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	amount := fs.String("amount", "", "amount to deposit, e.g. 25.00")
	fs.Parse(args)

	m, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}
	account, err := a.engine.Deposit(ctx, *accountID, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deposited %s, balance now %s\n", m, account.Balance)
	return nil
}

func (a *app) addOutcome(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-outcome", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	categoryID := fs.Int64("category", 0, "category id")
	amount := fs.String("amount", "", "outcome amount, e.g. 9.99")
	fs.Parse(args)

	m, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}
	outcome, balance, err := a.engine.RecordOutcome(ctx, *accountID, *categoryID, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "outcome %d recorded (%s), balance now %s\n", outcome.ID, outcome.Amount, balance)
	return nil
}

func (a *app) editOutcome(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit-outcome", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	outcomeID := fs.Int64("outcome", 0, "outcome id")
	amount := fs.String("amount", "", "new outcome amount")
	fs.Parse(args)

	m, err := core.ParseMoney(*amount)
	if err != nil {
		return err
	}
	outcome, balance, err := a.engine.ReviseOutcome(ctx, *accountID, *outcomeID, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "outcome %d revised to %s, balance now %s\n", outcome.ID, outcome.Amount, balance)
	return nil
}

func (a *app) deleteOutcome(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-outcome", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	outcomeID := fs.Int64("outcome", 0, "outcome id")
	fs.Parse(args)

	balance, err := a.engine.RemoveOutcome(ctx, *accountID, *outcomeID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "outcome %d deleted, balance now %s\n", *outcomeID, balance)
	return nil
}

func (a *app) listOutcomes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-outcomes", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	categoryID := fs.Int64("category", 0, "filter by category id")
	minAmount := fs.String("min", "", "minimum amount, inclusive")
	maxAmount := fs.String("max", "", "maximum amount, inclusive")
	created := fs.String("created", "", "substring of the creation timestamp")
	fs.Parse(args)

	filter := storage.OutcomeFilter{
		CategoryID:        *categoryID,
		CreatedAtContains: *created,
	}
	if *minAmount != "" {
		m, err := core.ParseMoney(*minAmount)
		if err != nil {
			return fmt.Errorf("min: %w", err)
		}
		filter.MinCents = m.Cents
	}
	if *maxAmount != "" {
		m, err := core.ParseMoney(*maxAmount)
		if err != nil {
			return fmt.Errorf("max: %w", err)
		}
		filter.MaxCents = m.Cents
	}

	outcomes, err := a.engine.ListOutcomes(ctx, *accountID, filter)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		fmt.Fprintf(a.out, "%d\t%s\tcategory %d\t%s\n",
			o.ID, o.Amount, o.CategoryID, o.CreatedAt.Format(core.TimeFormat))
	}
	fmt.Fprintf(a.out, "%d outcome(s)\n", len(outcomes))
	return nil
}

func (a *app) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-category", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	name := fs.String("name", "", "category name")
	fs.Parse(args)

	category, err := a.directory.Create(ctx, *accountID, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "category %d created (%s)\n", category.ID, category.Name)
	return nil
}

func (a *app) renameCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rename-category", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	categoryID := fs.Int64("category", 0, "category id")
	name := fs.String("name", "", "new category name")
	fs.Parse(args)

	category, err := a.directory.Rename(ctx, *accountID, *categoryID, *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "category %d renamed to %s\n", category.ID, category.Name)
	return nil
}

func (a *app) deleteCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-category", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	categoryID := fs.Int64("category", 0, "category id")
	fs.Parse(args)

	if err := a.directory.Delete(ctx, *accountID, *categoryID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "category %d deleted\n", *categoryID)
	return nil
}

func (a *app) listCategories(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list-categories", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	created := fs.String("created", "", "substring of the creation timestamp")
	fs.Parse(args)

	list, err := a.directory.List(ctx, *accountID, *created)
	if err != nil {
		return err
	}
	for _, c := range list {
		fmt.Fprintf(a.out, "%d\t%s\t%s\n", c.ID, c.Name, c.CreatedAt.Format(core.TimeFormat))
	}
	fmt.Fprintf(a.out, "%d categor(ies)\n", len(list))
	return nil
}

func (a *app) showStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id")
	fs.Parse(args)

	rows, err := a.stats.ComputeStatistics(ctx, *accountID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s%%\n",
			row.CategoryID, row.CategoryName, row.Total, row.Percentage.StringFixed(2))
	}
	return nil
}

func (a *app) audit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	accountID := fs.Int64("account", 0, "account id (0 = all accounts)")
	fs.Parse(args)

	if *accountID > 0 {
		drift, err := a.auditor.CheckAccount(ctx, *accountID)
		if err != nil {
			return err
		}
		if drift.Delta.Cents == 0 {
			fmt.Fprintf(a.out, "account %d: balance %s matches ledger\n", drift.AccountID, drift.Balance)
		} else {
			fmt.Fprintf(a.out, "account %d: balance %s, derived %s, drift %s\n",
				drift.AccountID, drift.Balance, drift.Derived, drift.Delta)
		}
		return nil
	}

	drifts, err := a.auditor.Sweep(ctx)
	if err != nil {
		return err
	}
	if len(drifts) == 0 {
		fmt.Fprintln(a.out, "all accounts match the ledger")
		return nil
	}
	for _, drift := range drifts {
		fmt.Fprintf(a.out, "account %d: balance %s, derived %s, drift %s\n",
			drift.AccountID, drift.Balance, drift.Derived, drift.Delta)
	}
	return nil
}
