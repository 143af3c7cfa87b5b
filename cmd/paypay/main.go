// Command paypay imports PayPay CSV exports into PostgreSQL and categorizes
// the expenses with keyword rules.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/FACorreiaa/paypay-tracker/pkg/config"
	"github.com/FACorreiaa/paypay-tracker/pkg/logging"
)

const usage = `usage: paypay <command> [flags]

commands:
  migrate                                    apply database migrations
  seed                                       upsert system categories and rules
  init-user    -user <uuid>                  copy the defaults to a user
  import       -user <uuid> <file.csv>...    import PayPay exports
  recategorize -user <uuid> -year Y [-month M]
  list         -user <uuid> -year Y [-month M]
  uploads      -user <uuid>
  categories   -user <uuid>
  add-rule     -user <uuid> -category <name> -keyword <text> [-priority N]
  add-expense  -user <uuid> -amount N -description <text> [-date YYYY/MM/DD] [-category <name>]
`

type command func(ctx context.Context, deps *Dependencies, args []string) error

var commands = map[string]command{
	"migrate":      runMigrate,
	"seed":         runSeed,
	"init-user":    runInitUser,
	"import":       runImport,
	"recategorize": runRecategorize,
	"list":         runList,
	"uploads":      runUploads,
	"categories":   runCategories,
	"add-rule":     runAddRule,
	"add-expense":  runAddExpense,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	logger := logging.Setup(logging.FromSettings(cfg.Log.Level, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(cfg, logger)
	exitOnError(logger, "startup failed", err)

	err = cmd(ctx, deps, os.Args[2:])
	deps.Close()
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	exitOnError(logger, os.Args[1]+" failed", err)
}

// userFlag registers the -user flag shared by the per-user commands.
func userFlag(fs *flag.FlagSet) *string {
	return fs.String("user", "", "user ID (uuid)")
}

func parseUser(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("-user is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid -user %q: %w", raw, err)
	}
	return id, nil
}

// optionalMonth maps the -month flag to the period argument; 0 means the whole year.
func optionalMonth(month int) *int {
	if month == 0 {
		return nil
	}
	return &month
}
