package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/repoquery/internal/convert"
	"github.com/roach88/repoquery/internal/derive"
	"github.com/roach88/repoquery/internal/derrors"
	"github.com/roach88/repoquery/internal/harness"
	"github.com/roach88/repoquery/internal/ir"
	"github.com/roach88/repoquery/internal/method"
	"github.com/roach88/repoquery/internal/queryir"
)

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Returns string   // declared return shape
	Params  []string // name[:kind[:field]]
	OrderBy []string // field[:ASC|DESC]
	Args    string   // YAML list of call arguments
}

// PlanView is the printable form of a derived plan and, when arguments
// were given, of its bound query.
type PlanView struct {
	Method     string   `json:"method"`
	Action     string   `json:"action"`
	Collection string   `json:"collection"`
	Shape      string   `json:"shape"`
	Combinator string   `json:"combinator,omitempty"`
	Terms      []string `json:"terms,omitempty"`
	Sorts      []string `json:"sorts,omitempty"`
	Bindings   []string `json:"bindings,omitempty"`
	Query      string   `json:"query,omitempty"`
	Canonical  string   `json:"canonical,omitempty"`
	Hash       string   `json:"hash,omitempty"`
}

func (v PlanView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Method:     %s\n", v.Method)
	fmt.Fprintf(&b, "Action:     %s\n", v.Action)
	fmt.Fprintf(&b, "Collection: %s\n", v.Collection)
	fmt.Fprintf(&b, "Shape:      %s\n", v.Shape)
	if v.Combinator != "" {
		fmt.Fprintf(&b, "Combinator: %s\n", v.Combinator)
	}
	section := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		fmt.Fprintf(&b, "%s:\n", title)
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
	}
	section("Terms", v.Terms)
	section("Sorts", v.Sorts)
	section("Bindings", v.Bindings)
	if v.Query != "" {
		fmt.Fprintf(&b, "Query:      %s\n", v.Query)
		fmt.Fprintf(&b, "Canonical:  %s\n", v.Canonical)
		fmt.Fprintf(&b, "Hash:       %s\n", v.Hash)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive <schema-dir> <entity> <method>",
		Short: "Show the query plan derived from a method name",
		Long: `Derive the query plan of one method name against a CUE entity schema.

Parameters are declared with --param name[:kind[:field]] where kind is
value (default), pageable or sort. With --args the plan is also bound and
the resulting query is printed with its canonical form and content hash.

Exit codes:
  0 - The method derives (and binds)
  1 - Derivation or binding failed
  2 - Command error (invalid paths, unknown entity, etc.)

Examples:
  repoquery derive ./schemas Person findByNameAndAgeGreaterThan --param name --param age
  repoquery derive ./schemas Person findByAgeBetween --param lo --param hi --args '[18, 30]'
  repoquery derive ./schemas Person findByActiveTrue --returns 'Page[Person]' --param page:pageable --args '[{page: 1, size: 10}]'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(cmd, opts, args[0], args[1], args[2])
		},
	}

	cmd.Flags().StringVar(&opts.Returns, "returns", "", "declared return shape (default List[<entity>])")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "parameter as name[:kind[:field]], repeatable")
	cmd.Flags().StringArrayVar(&opts.OrderBy, "order-by", nil, "static sort as field[:ASC|DESC], repeatable")
	cmd.Flags().StringVar(&opts.Args, "args", "", "call arguments as a YAML list")

	return cmd
}

func runDerive(cmd *cobra.Command, opts *DeriveOptions, schemaDir, entityName, name string) error {
	out := newFormatter(cmd, opts.RootOptions)

	entity, err := loadEntity(schemaDir, entityName)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	sig, err := buildSignature(name, entityName, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid signature", err)
	}

	out.VerboseLog("deriving %s against %s", sig.Name, entity.Name())
	plan, err := derive.Compile(sig, entity)
	if err != nil {
		return reportDeriveError(out, ErrCodeDerivation, err)
	}
	view := newPlanView(plan)

	if opts.Args != "" {
		if err := bindView(&view, plan, opts.Args); err != nil {
			return reportDeriveError(out, ErrCodeBinding, err)
		}
	}
	return out.Success(view)
}

// buildSignature assembles a method signature from the command flags.
func buildSignature(name, entity string, opts *DeriveOptions) (method.Signature, error) {
	sig := method.Signature{Name: name, Returns: opts.Returns}
	if sig.Returns == "" {
		sig.Returns = "List[" + entity + "]"
	}
	for _, spec := range opts.Params {
		parts := strings.SplitN(spec, ":", 3)
		p := method.Param{Name: parts[0]}
		if len(parts) > 1 {
			p.Kind = method.ParamKind(parts[1])
		}
		if len(parts) > 2 {
			p.Field = parts[2]
		}
		sig.Params = append(sig.Params, p)
	}
	for _, spec := range opts.OrderBy {
		field, dir, _ := strings.Cut(spec, ":")
		s := queryir.Sort{Field: field, Direction: queryir.Ascending}
		if dir != "" {
			s.Direction = queryir.Direction(strings.ToUpper(dir))
		}
		sig.OrderBy = append(sig.OrderBy, s)
	}
	if err := sig.Validate(); err != nil {
		return method.Signature{}, err
	}
	return sig, nil
}

func newPlanView(plan *derive.Plan) PlanView {
	view := PlanView{
		Method:     plan.Signature.Name,
		Action:     string(plan.Action),
		Collection: plan.Collection,
		Shape:      plan.Shape.String(),
	}
	if len(plan.Terms) > 1 {
		view.Combinator = string(plan.Combinator)
	}
	for _, t := range plan.Terms {
		view.Terms = append(view.Terms, strings.Repeat("Not ", t.Negations)+t.Field.Path+" "+string(t.Keyword))
	}
	for _, s := range plan.Sorts {
		view.Sorts = append(view.Sorts, s.String())
	}
	for i, p := range plan.Signature.Params {
		slot := plan.Bindings[i]
		if slot < 0 {
			view.Bindings = append(view.Bindings, fmt.Sprintf("%s -> %s", p.Name, p.EffectiveKind()))
			continue
		}
		view.Bindings = append(view.Bindings, fmt.Sprintf("%s -> %s (slot %d)", p.Name, plan.Slots[slot].Field.Path, slot))
	}
	return view
}

// bindView binds the YAML argument list to the plan and records the
// resulting query on the view.
func bindView(view *PlanView, plan *derive.Plan, rawArgs string) error {
	var raw []any
	if err := yaml.Unmarshal([]byte(rawArgs), &raw); err != nil {
		return fmt.Errorf("failed to parse --args: %w", err)
	}
	args, err := harness.ConvertArgs(plan.Signature, raw)
	if err != nil {
		return err
	}
	bound, err := derive.Bind(plan, args, convert.Default)
	if err != nil {
		return err
	}

	var obj ir.IRObject
	if bound.Action == method.ActionDelete {
		view.Query = bound.Delete.String()
		obj, err = bound.Delete.ToIR()
	} else {
		q := bound.Query
		if bound.Pageable != nil {
			q = q.Paginate(*bound.Pageable)
		}
		view.Query = q.String()
		obj, err = q.ToIR()
	}
	if err != nil {
		return err
	}
	canonical, err := ir.MarshalCanonical(obj)
	if err != nil {
		return err
	}
	view.Canonical = string(canonical)
	view.Hash, err = ir.QueryHash(obj)
	return err
}

// reportDeriveError prints a derivation failure with its code and details
// and returns ExitFailure.
func reportDeriveError(out *OutputFormatter, code string, err error) error {
	var details any
	var de *derrors.DeriveError
	if errors.As(err, &de) {
		d := map[string]string{"code": string(de.Code)}
		if de.Token != "" {
			d["token"] = de.Token
		}
		for k, v := range de.Details {
			d[k] = v
		}
		details = d
	}
	if printErr := out.Error(code, err.Error(), details); printErr != nil {
		return printErr
	}
	return WrapExitError(ExitFailure, "derivation failed", err)
}
