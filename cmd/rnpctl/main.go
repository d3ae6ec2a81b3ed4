// Command rnpctl is the operator console for the recruitment portal. It
// works directly against the configured record store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"rnp-recruitment/internal/app"
	"rnp-recruitment/internal/platform/config"
	"rnp-recruitment/internal/platform/logger"
	"rnp-recruitment/internal/platform/metrics"
)

const usage = `usage: rnpctl <command> [flags]

commands:
  applicants         list applicants (--status, --province, --query)
  stats              show the dashboard summary
  logs               show the audit log (--limit)
  export             write every applicant record as JSON (--out)
  import-questions   replace the exam bank from a YAML file
  import-slots       replace the interview calendar from a YAML file
  reset              factory reset the portal (--yes)
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Log.Format = "text"
	log := logger.NewWithWriter(stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	core, err := app.OpenCore(ctx, cfg, log, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := core.Close(); cerr != nil {
			log.Warn("error while closing resources", "error", cerr)
		}
	}()

	c := newConsole(core, cfg.Auth, log, stdout)
	err = cmd(operatorContext(ctx), c, args[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprint(stderr, usage)
	}
	return err
}
