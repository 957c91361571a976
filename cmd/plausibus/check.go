package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	plausibus "github.com/megadur/plausibus"
	"github.com/megadur/plausibus/engine"
	"github.com/megadur/plausibus/stream"
)

type checkOptions struct {
	ndjson  bool
	jsonOut bool
	quiet   bool
	strict  bool
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Validate documents from files or stdin",
		Long: `Validate dispensing documents from files, or from stdin when no
file is given or the file is "-". With --ndjson, the input is read as
one document per line and validated concurrently.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log := newLogger(cfg.Log)
			articles, codes, pool, err := buildStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			eng, err := engine.New(articles, codes, engine.WithLogger(log))
			if err != nil {
				return err
			}

			return runCheck(cmd.Context(), eng, args, opts, cfg.Workers.Count)
		},
	}

	cmd.Flags().BoolVar(&opts.ndjson, "ndjson", false, "read newline-delimited documents")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit reports as JSON")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors and warnings")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "treat warnings as errors")

	return cmd
}

func runCheck(ctx context.Context, eng *engine.Engine, args []string, opts *checkOptions, workers int) error {
	if opts.ndjson {
		return checkStream(ctx, eng, args, opts, workers)
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	failed := false
	for _, arg := range args {
		data, name, err := readInput(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			failed = true
			continue
		}

		report, err := eng.Validate(ctx, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error validating %s: %v\n", name, err)
			failed = true
			continue
		}

		printReport(name, report, opts)
		if reportFails(report, opts) {
			failed = true
		}
		report.Release()
	}

	if failed {
		return errValidationFailed
	}
	return nil
}

func checkStream(ctx context.Context, eng *engine.Engine, args []string, opts *checkOptions, workers int) error {
	var in io.Reader = os.Stdin
	name := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
		name = args[0]
	}

	proc := stream.NewProcessor(eng)
	if workers > 0 {
		proc = proc.WithWorkers(workers)
	}

	failed := false
	for res := range proc.Process(ctx, in) {
		label := fmt.Sprintf("%s:%d", name, res.Line)
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "Error validating %s: %v\n", label, res.Err)
			failed = true
			continue
		}
		printReport(label, res.Report, opts)
		if reportFails(res.Report, opts) {
			failed = true
		}
		res.Report.Release()
	}

	if failed {
		return errValidationFailed
	}
	return nil
}

func readInput(arg string) ([]byte, string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "stdin", err
	}
	data, err := os.ReadFile(arg)
	return data, arg, err
}

func reportFails(r *plausibus.Report, opts *checkOptions) bool {
	if r.ErrorCount() > 0 {
		return true
	}
	return opts.strict && r.WarningCount() > 0
}

func printReport(name string, r *plausibus.Report, opts *checkOptions) {
	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(r)
		return
	}

	status := "VALID"
	if !r.Valid {
		status = "INVALID"
	}
	fmt.Printf("== %s ==\n", name)
	fmt.Printf("Status: %s (%s document)\n", status, r.Document)
	fmt.Printf("Errors: %d, Warnings: %d, Info: %d\n", r.ErrorCount(), r.WarningCount(), r.InfoCount())
	fmt.Printf("Duration: %s\n", r.Duration.Round(time.Microsecond))

	issues := r.AllIssues()
	if len(issues) > 0 {
		fmt.Println("\nIssues:")
		for _, iss := range issues {
			if opts.quiet && iss.Severity == plausibus.SeverityInformation {
				continue
			}
			location := ""
			if len(iss.Expression) > 0 {
				location = " @ " + strings.Join(iss.Expression, ", ")
			}
			fmt.Printf("  %s [%s] %s%s\n", severityTag(iss.Severity), iss.Code, iss.Message, location)
		}
	}
	fmt.Println()
}

func severityTag(s plausibus.Severity) string {
	switch s {
	case plausibus.SeverityError:
		return "ERROR"
	case plausibus.SeverityWarning:
		return "WARN "
	case plausibus.SeverityInformation:
		return "INFO "
	default:
		return "     "
	}
}

var errValidationFailed = fmt.Errorf("validation reported errors")
