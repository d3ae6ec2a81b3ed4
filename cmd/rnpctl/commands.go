package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"rnp-recruitment/internal/admin"
	"rnp-recruitment/internal/app"
	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/auth"
	"rnp-recruitment/internal/exam"
	"rnp-recruitment/internal/interview"
	"rnp-recruitment/internal/platform/config"
	"rnp-recruitment/pkg/requestcontext"
)

const operatorName = "rnpctl"

var errUsage = errors.New("invalid arguments")

type command func(ctx context.Context, c *console, args []string) error

var commands = map[string]command{
	"applicants":       listApplicants,
	"stats":            showStats,
	"logs":             showLogs,
	"export":           exportApplicants,
	"import-questions": importQuestions,
	"import-slots":     importSlots,
	"reset":            resetSystem,
}

// console holds the services the commands drive.
type console struct {
	applicants *applicant.Service
	exams      *exam.Service
	interviews *interview.Service
	admins     *admin.Service
	audit      *audit.Log
	out        io.Writer
}

func newConsole(core *app.Core, authCfg config.AuthConfig, logger *slog.Logger, out io.Writer) *console {
	return &console{
		applicants: applicant.New(core.Store, core.Audit, applicant.WithLogger(logger), applicant.WithMetrics(core.Metrics)),
		exams:      exam.New(core.Store, core.Audit, exam.WithLogger(logger), exam.WithMetrics(core.Metrics)),
		interviews: interview.New(core.Store, core.Audit, interview.WithLogger(logger), interview.WithMetrics(core.Metrics)),
		admins:     admin.New(core.Store, core.Audit, admin.WithLogger(logger), admin.WithCodeIndexKey(authCfg.CodeIndexKey)),
		audit:      core.Audit,
		out:        out,
	}
}

// operatorContext attributes audit entries to the console.
func operatorContext(ctx context.Context) context.Context {
	return requestcontext.WithPrincipal(ctx, requestcontext.Principal{
		Subject: operatorName,
		Name:    operatorName,
		Role:    string(auth.RoleSuperAdmin),
	})
}

func (c *console) table(header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(c.out)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	return t
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func listApplicants(ctx context.Context, c *console, args []string) error {
	fs := pflag.NewFlagSet("applicants", pflag.ContinueOnError)
	status := fs.String("status", "", "only applicants in this status")
	province := fs.String("province", "", "only applicants from this province")
	query := fs.StringP("query", "q", "", "match name, national id or application id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filter := models.ListFilter{Province: *province, Query: *query}
	if *status != "" {
		s, err := models.ParseStatus(*status)
		if err != nil {
			return err
		}
		filter.Status = s
	}
	list, err := c.applicants.List(ctx, filter)
	if err != nil {
		return err
	}

	t := c.table([]string{"Application ID", "Name", "Status", "Province", "Applied", "Fraud"})
	for i := range list {
		a := &list[i]
		fraud := strconv.Itoa(a.FraudScore)
		if a.FraudScore > models.FraudFlagThreshold {
			fraud = color.RedString(fraud)
		}
		t.Append([]string{
			a.ApplicationID,
			a.FullName(),
			string(a.Status),
			a.Province,
			a.AppliedDate.Format("2006-01-02"),
			fraud,
		})
	}
	t.Render()
	fmt.Fprintf(c.out, "%d applicant(s)\n", len(list))
	return nil
}

func showStats(ctx context.Context, c *console, _ []string) error {
	st, err := c.applicants.Stats(ctx)
	if err != nil {
		return err
	}
	color.New(color.FgCyan).Fprintf(c.out, "Total: %d  Verified: %d  Flagged: %d\n", st.Total, st.Verified, st.Flagged)

	sections := []struct {
		title  string
		counts []models.Count
	}{
		{"By status", st.ByStatus},
		{"Funnel", st.Funnel},
		{"By province", st.ByProvince},
		{"Exam scores", st.ExamScores},
	}
	for _, sec := range sections {
		color.New(color.FgYellow).Fprintf(c.out, "\n%s\n", sec.title)
		t := c.table([]string{"Label", "Count"})
		for _, n := range sec.counts {
			t.Append([]string{n.Label, strconv.Itoa(n.Count)})
		}
		t.Render()
	}
	return nil
}

func showLogs(ctx context.Context, c *console, args []string) error {
	fs := pflag.NewFlagSet("logs", pflag.ContinueOnError)
	limit := fs.IntP("limit", "n", 20, "number of entries to show")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	entries, err := c.audit.List(ctx)
	if err != nil {
		return err
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}

	t := c.table([]string{"Time", "User", "Action", "Details"})
	for _, e := range entries {
		t.Append([]string{e.Timestamp.Format("2006-01-02 15:04:05"), e.User, string(e.Action), e.Details})
	}
	t.Render()
	return nil
}

func exportApplicants(ctx context.Context, c *console, args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	out := fs.StringP("out", "o", "", "write to this file instead of stdout")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	list, err := c.applicants.Export(ctx)
	if err != nil {
		return err
	}

	w := c.out
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(list); err != nil {
		return err
	}
	if *out != "" {
		color.New(color.FgGreen).Fprintf(c.out, "exported %d applicant(s) to %s\n", len(list), *out)
	}
	return nil
}

func openArg(args []string) (*os.File, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: expected one YAML file", errUsage)
	}
	return os.Open(args[0])
}

func importQuestions(ctx context.Context, c *console, args []string) error {
	f, err := openArg(args)
	if err != nil {
		return err
	}
	defer f.Close()

	bank, err := exam.DecodeBank(f)
	if err != nil {
		return err
	}
	saved, err := c.exams.ReplaceQuestions(ctx, bank)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(c.out, "imported %d exam question(s)\n", len(saved))
	return nil
}

func importSlots(ctx context.Context, c *console, args []string) error {
	f, err := openArg(args)
	if err != nil {
		return err
	}
	defer f.Close()

	slots, err := interview.DecodeCalendar(f)
	if err != nil {
		return err
	}
	saved, err := c.interviews.ReplaceSlots(ctx, slots)
	if err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(c.out, "imported %d interview slot(s)\n", len(saved))
	return nil
}

func resetSystem(ctx context.Context, c *console, args []string) error {
	fs := pflag.NewFlagSet("reset", pflag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm the factory reset")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("%w: reset erases every record, pass --yes to confirm", errUsage)
	}

	code, err := c.admins.ResetSystem(ctx)
	if err != nil {
		return err
	}
	color.New(color.FgYellow).Fprintln(c.out, "portal reset to factory state")
	if code != "" {
		fmt.Fprintf(c.out, "new super admin access code: %s\n", color.New(color.Bold).Sprint(code))
	}
	return nil
}
