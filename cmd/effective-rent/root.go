// cmd/effective-rent/root.go
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cre-workers/internal/analysis"
	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/logger"
	"cre-workers/internal/leasecalc"
	"cre-workers/internal/models"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
)

// exitError carries the process exit code for a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type options struct {
	output      string
	compounding string
	timing      string
	pretty      bool
	verbose     bool
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "effective-rent: %v\n", err)

	var exitErr *exitError
	if stderrors.As(err, &exitErr) {
		return exitErr.code
	}
	// cobra argument and flag errors
	return exitValidation
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "effective-rent <input.json | ->",
		Short: "Compute NPV, effective rent and breakeven thresholds for a lease deal",
		Long: `Reads a deal document, validates it against the embedded schema and
writes the analysis as JSON. Use "-" to read the deal from stdin.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args[0], stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "write the analysis to `file` instead of stdout")
	flags.StringVar(&opts.compounding, "compounding", "", "override compounding: monthly_effective, monthly_nominal or annual")
	flags.StringVar(&opts.timing, "timing", "", "override payment timing: advance or arrears")
	flags.BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(newSchemaCmd())
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for deal documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(models.DealSchemaJSON)
			return err
		},
	}
}

func run(ctx context.Context, opts *options, input string, stdin io.Reader, stdout, stderr io.Writer) error {
	log := newLogger(stderr, opts.verbose)

	raw, err := readInput(input, stdin)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	doc, err := analysis.ParseDocument(raw)
	if err != nil {
		return classify(err)
	}
	applyOverrides(doc, opts)

	service := analysis.NewService(analysis.Options{Logger: log})
	res, err := service.RunDocument(ctx, doc)
	if err != nil {
		return classify(err)
	}
	if len(res.Document.OmittedInputs) > 0 {
		log.Warn("inputs not supplied, treated as zero", map[string]interface{}{
			"fields": res.Document.OmittedInputs,
		})
	}

	payload, err := encode(res.Document, opts.pretty)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	if opts.output == "" || opts.output == "-" {
		if _, err := stdout.Write(payload); err != nil {
			return &exitError{code: exitFailure, err: err}
		}
		return nil
	}
	if err := writeFileAtomic(opts.output, payload); err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	log.Info("analysis written", map[string]interface{}{"path": opts.output})
	return nil
}

func newLogger(w io.Writer, verbose bool) logger.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.InfoLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		level,
	)
	return logger.NewZapAdapter(zap.New(core))
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return raw, nil
}

// applyOverrides replaces the document's convention fields with any set on
// the command line.
func applyOverrides(doc *models.DealDocument, opts *options) {
	if opts.compounding == "" && opts.timing == "" {
		return
	}
	var conv leasecalc.Convention
	if doc.Convention != nil {
		conv = *doc.Convention
	}
	if opts.compounding != "" {
		conv.Compounding = leasecalc.Compounding(opts.compounding)
	}
	if opts.timing != "" {
		conv.Timing = leasecalc.Timing(opts.timing)
	}
	doc.Convention = &conv
}

func classify(err error) error {
	stdErr := errors.FromCalcError(err)
	code := exitFailure
	if stdErr.IsValidation() {
		code = exitValidation
	}
	if stdErr.Field != "" {
		return &exitError{code: code, err: fmt.Errorf("%w (field %s)", stdErr, stdErr.Field)}
	}
	return &exitError{code: code, err: stdErr}
}

func encode(doc *models.AnalysisDocument, pretty bool) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	if pretty {
		payload, err = json.MarshalIndent(doc, "", "  ")
	} else {
		payload, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return append(payload, '\n'), nil
}

// writeFileAtomic writes through a temp file in the target directory so a
// failed run never leaves a truncated output behind.
func writeFileAtomic(path string, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
