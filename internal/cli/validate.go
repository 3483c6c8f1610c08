package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/config"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
)

// ValidationError is one configuration problem.
type ValidationError struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Profiles int               `json:"profiles,omitempty"`
	Rules    int               `json:"rules,omitempty"`

	// Warnings do not make a configuration invalid.
	Warnings []engine.CycleWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a configuration file",
		Long: `Validate a CUE configuration file against the ledger schema.

Checks field types and ranges, seed rate profiles and follow-on rules,
and reports every problem found, not just the first. Follow-on rules
that can trigger each other are reported as warnings. Environment
overrides are not applied.

Exit codes:
  0 - Configuration valid
  1 - Configuration invalid
  2 - Command error (file not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		msg := fmt.Sprintf("config file not found: %s", path)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return WrapExitError(ExitCommandError, msg, err)
	}

	cfg, errs := config.Parse(path, data)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(errs))
	}

	formatter.VerboseLog("admin %s, threshold %d%%, %d follow-on steps", cfg.Admin, cfg.Threshold, cfg.MaxSteps)
	rules := cfg.EngineRules()
	warnings := engine.AnalyzeRuleCycles(rules)
	if formatter.JSON() {
		return formatter.Success(ValidationResult{
			Valid:    true,
			Profiles: len(cfg.Profiles),
			Rules:    len(rules),
			Warnings: warnings,
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Config valid (%s, %s)\n",
		pluralize(len(cfg.Profiles), "profile"), pluralize(len(rules), "rule"))
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  ⚠ %s\n", w.Message)
	}
	return nil
}

func toValidationErrors(errs []error) []ValidationError {
	out := make([]ValidationError, 0, len(errs))
	for _, err := range errs {
		var cfgErr *config.Error
		if !errors.As(err, &cfgErr) {
			out = append(out, ValidationError{Message: err.Error()})
			continue
		}
		ve := ValidationError{Path: cfgErr.Path, Message: cfgErr.Message}
		if cfgErr.Pos.IsValid() {
			ve.Line = cfgErr.Pos.Line()
			ve.Column = cfgErr.Pos.Column()
		}
		out = append(out, ve)
	}
	return out
}

func outputValidationErrors(f *OutputFormatter, errs []ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if f.JSON() {
		if err := f.Failure(ErrCodeConfig, errs[0].Message, ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		loc := ""
		if e.Line > 0 {
			loc = fmt.Sprintf("line %d: ", e.Line)
		}
		if e.Path != "" {
			fmt.Fprintf(f.Writer, "  %s%s: %s\n", loc, e.Path, e.Message)
		} else {
			fmt.Fprintf(f.Writer, "  %s%s\n", loc, e.Message)
		}
	}
	return failure
}
