package step

import (
	"fmt"
	"sort"
	"strings"

	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// Kind enumerates the closed set of step variants.
type Kind int

const (
	KindStateApply Kind = iota + 1
	KindRunnerCall
	KindModuleCall
	KindBuiltin
)

// Function identifiers that select a dedicated step variant. Every other
// function identifier produces a builtin step.
const (
	FunStateApply = "salt.state"
	FunRunnerCall = "salt.runner"
	FunModuleCall = "module.run"
)

// NoKey holds scalar builtin arguments that carry no parameter name.
const NoKey = "nokey"

var kindNames = map[Kind]string{
	KindStateApply: "state",
	KindRunnerCall: "runner",
	KindModuleCall: "module",
	KindBuiltin:    "builtin",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown step kind %q", name)
}

// Step is a single resolved action inside a stage.
type Step struct {
	Kind Kind
	// Desc is the declaration key of the step within its stage.
	Desc string
	// Fun is the runner/module function name (from the "name" argument) or,
	// for builtins, the literal function identifier. Empty for state steps.
	Fun string
	// State and Target are only set on state steps.
	State  string
	Target string
	// Args is either map[string]any or a []any of single-key mappings.
	Args any

	OnSuccess []*Step
	OnFail    []*Step
}

// NewStateApply builds a step that applies the state named by its sls
// argument.
func NewStateApply(desc string, args any) (*Step, error) {
	s := &Step{Kind: KindStateApply, Desc: desc, Args: args}
	var err error
	if s.State, err = s.stringArg("sls"); err != nil {
		return nil, err
	}
	if s.Target, err = s.stringArg("tgt"); err != nil {
		return nil, err
	}
	return s, nil
}

// NewRunnerCall builds a runner invocation step.
func NewRunnerCall(desc string, args any) (*Step, error) {
	return newNamedCall(KindRunnerCall, desc, args)
}

// NewModuleCall builds an execution module invocation step.
func NewModuleCall(desc string, args any) (*Step, error) {
	return newNamedCall(KindModuleCall, desc, args)
}

func newNamedCall(kind Kind, desc string, args any) (*Step, error) {
	s := &Step{Kind: kind, Desc: desc, Args: args}
	fun, err := s.stringArg("name")
	if err != nil {
		return nil, err
	}
	s.Fun = fun
	return s, nil
}

// NewBuiltin builds a step for any other state function. Its arguments are
// folded into one mapping: single-key mappings merge in directly and bare
// scalars land under NoKey. Later keys overwrite earlier ones.
func NewBuiltin(desc, fun string, args any) (*Step, error) {
	folded := make(map[string]any)

	switch v := args.(type) {
	case nil:
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				for key, val := range m {
					folded[key] = val
				}
				continue
			}
			folded[NoKey] = item
		}
	case map[string]any:
		for key, val := range v {
			folded[key] = val
		}
	default:
		folded[NoKey] = v
	}

	return &Step{Kind: KindBuiltin, Desc: desc, Fun: fun, Args: folded}, nil
}

// New dispatches on the function identifier to the matching constructor.
func New(desc, fun string, args any) (*Step, error) {
	switch fun {
	case FunStateApply:
		return NewStateApply(desc, args)
	case FunRunnerCall:
		return NewRunnerCall(desc, args)
	case FunModuleCall:
		return NewModuleCall(desc, args)
	default:
		return NewBuiltin(desc, fun, args)
	}
}

// Arg returns the value stored under key. A mapping is looked up directly;
// a sequence yields the value of the first mapping element holding key.
// Missing keys are reported through ok, malformed argument shapes through
// err.
func (s *Step) Arg(key string) (value any, ok bool, err error) {
	switch args := s.Args.(type) {
	case nil:
		return nil, false, nil
	case map[string]any:
		value, ok = args[key]
		return value, ok, nil
	case []any:
		for _, item := range args {
			if m, isMap := item.(map[string]any); isMap {
				if v, found := m[key]; found {
					return v, true, nil
				}
			}
		}
		return nil, false, nil
	default:
		return nil, false, planerrors.NewArgumentError(s.Desc, fmt.Sprintf("arguments must be a mapping or a list, got %T", s.Args))
	}
}

func (s *Step) stringArg(key string) (string, error) {
	v, ok, err := s.Arg(key)
	if err != nil || !ok || v == nil {
		return "", err
	}
	if str, isStr := v.(string); isStr {
		return str, nil
	}
	return fmt.Sprint(v), nil
}

// Module is the text of Fun before its first dot.
func (s *Step) Module() string {
	mod, _, _ := strings.Cut(s.Fun, ".")
	return mod
}

// Clone returns a copy of the step with its own argument tree and no
// dependency edges.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	return &Step{
		Kind:   s.Kind,
		Desc:   s.Desc,
		Fun:    s.Fun,
		State:  s.State,
		Target: s.Target,
		Args:   cloneValue(s.Args),
	}
}

func (s *Step) String() string {
	switch s.Kind {
	case KindStateApply:
		return fmt.Sprintf("SaltState(desc: %s, state: %s, target: %s)", s.Desc, s.State, s.Target)
	case KindRunnerCall:
		return fmt.Sprintf("SaltRunner(desc: %s, fun: %s)", s.Desc, s.Fun)
	case KindModuleCall:
		return fmt.Sprintf("SaltModule(desc: %s, fun: %s)", s.Desc, s.Fun)
	default:
		return fmt.Sprintf("SaltBuiltIn(desc: %s, fun: %s, args: %s)", s.Desc, s.Fun, formatArgs(s.Args))
	}
}

func formatArgs(args any) string {
	m, ok := args.(map[string]any)
	if !ok {
		return fmt.Sprint(args)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, m[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
