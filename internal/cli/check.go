package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/document"
	"github.com/roach88/repoquery/internal/memstore"
	"github.com/roach88/repoquery/internal/repository"
	"github.com/roach88/repoquery/internal/schema"
)

// MethodResult holds the derivation result of one declared method.
type MethodResult struct {
	Repository string `json:"repository"`
	Method     string `json:"method,omitempty"`
	Pass       bool   `json:"pass"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckResult holds the overall check result.
type CheckResult struct {
	Methods []MethodResult `json:"methods"`
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Total   int            `json:"total"`
}

func (r *CheckResult) add(m MethodResult) {
	r.Methods = append(r.Methods, m)
	r.Total++
	if m.Pass {
		r.Passed++
	} else {
		r.Failed++
	}
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <schema-dir> <definitions.yaml>...",
		Short: "Check that repository definitions derive",
		Long: `Compile every method declared in one or more repository definition
files against the CUE entity schema, reporting each failure.

Fragments are flattened and overrides applied exactly as at runtime, so a
conflicting method name without an override fails the check.

Exit codes:
  0 - Every method derives
  1 - One or more methods or definition files failed
  2 - Command error (invalid schema directory, etc.)

Examples:
  repoquery check ./schemas ./repositories/person.yaml
  repoquery check ./schemas ./repositories/*.yaml --format json`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts, args[0], args[1:])
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, schemaDir string, paths []string) error {
	out := newFormatter(cmd, rootOpts)

	reg, errs := LoadSchema(schemaDir)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load schema", errors.Join(errs...))
	}

	var res CheckResult
	for _, path := range paths {
		out.VerboseLog("checking %s", path)
		for _, m := range checkDefinitions(cmd, reg, path) {
			res.add(m)
		}
	}

	if out.JSON() {
		var failure *CLIError
		if res.Failed > 0 {
			failure = &CLIError{Code: "E_CHECK_FAILED", Message: fmt.Sprintf("%d method(s) failed", res.Failed)}
		}
		if err := out.Report(res, failure); err != nil {
			return err
		}
	} else {
		printCheckText(cmd, res)
	}

	if res.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d method(s) failed", res.Failed))
	}
	return nil
}

// checkDefinitions loads one definition file into a repository and
// compiles each of its methods. A file that does not load yields a single
// failed result without a method name.
func checkDefinitions(cmd *cobra.Command, reg *schema.Registry, path string) []MethodResult {
	fail := func(code string, err error) []MethodResult {
		return []MethodResult{{Repository: path, Code: code, Error: err.Error()}}
	}

	defs, err := loadDefinitions(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return fail(loadErr.Code, err)
		}
		return fail(ErrCodeGeneric, err)
	}
	entity, ok := reg.Lookup(defs.Entity)
	if !ok {
		return fail(ErrCodeUnknownEntity, fmt.Errorf("entity %q not declared", defs.Entity))
	}

	name := defs.Repository
	if name == "" {
		name = path
	}
	repo, err := repository.New[document.D](entity, memstore.New[document.D](entity),
		repository.WithName(name),
		repository.WithCache(derive.DefaultCache),
	)
	if err != nil {
		return fail(ErrCodeGeneric, err)
	}
	if err := repo.Load(defs); err != nil {
		return fail(ErrCodeDefinitions, err)
	}

	if err := repo.Warm(cmd.Context()); err != nil {
		slog.Debug("warm failed, checking methods one by one", "repository", name, "error", err)
	}

	var results []MethodResult
	for _, m := range repo.Methods() {
		r := MethodResult{Repository: name, Method: m, Pass: true}
		if _, err := repo.Plan(m); err != nil {
			r.Pass = false
			r.Code = string(derrors.CodeOf(err))
			if r.Code == "" {
				r.Code = ErrCodeDerivation
			}
			r.Error = err.Error()
		}
		results = append(results, r)
	}
	return results
}

func printCheckText(cmd *cobra.Command, res CheckResult) {
	w := cmd.OutOrStdout()
	for _, m := range res.Methods {
		label := m.Repository
		if m.Method != "" {
			label += "." + m.Method
		}
		if m.Pass {
			fmt.Fprintf(w, "✓ %s\n", label)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", label)
		fmt.Fprintf(w, "  %s\n", m.Error)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n", res.Passed, res.Failed, res.Total)
	if res.Failed == 0 {
		fmt.Fprintln(w, "✓ All methods derive")
	}
}
