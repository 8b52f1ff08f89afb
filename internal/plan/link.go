package plan

import (
	"fmt"
	"sort"

	"github.com/alexisbeaulieu97/stageplan/internal/step"
	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

// Requisite directives. onfail edges go to OnFail, the rest to OnSuccess.
const (
	DirectiveRequire   = "require"
	DirectiveWatch     = "watch"
	DirectiveOnChanges = "onchanges"
	DirectiveOnFail    = "onfail"
)

// hintSalt is the module hint that addresses state and runner steps.
const hintSalt = "salt"

var directives = []string{DirectiveRequire, DirectiveWatch, DirectiveOnChanges, DirectiveOnFail}

type reference struct {
	module string
	name   string
}

// Link resolves the requisite directives of every step against the whole
// sequence and records the matches as dependency edges. A reference that
// matches nothing is a RequisiteError.
func Link(steps []*step.Step) error {
	for _, s := range steps {
		for _, directive := range directives {
			raw, ok, err := s.Arg(directive)
			if err != nil {
				return err
			}
			if !ok || isEmpty(raw) {
				continue
			}

			for _, ref := range references(raw) {
				target, err := Search(steps, ref.module, ref.name)
				if err != nil {
					return err
				}
				if target == nil {
					return planerrors.NewRequisiteError(s.Desc, directive, ref.module, ref.name)
				}
				if directive == DirectiveOnFail {
					s.OnFail = append(s.OnFail, target)
				} else {
					s.OnSuccess = append(s.OnSuccess, target)
				}
			}
		}
	}
	return nil
}

// Search returns the first step in plan order matching name, optionally
// restricted by a module hint. State and runner steps only answer to the
// hint "salt"; other steps answer to the module part of their function,
// so "salt" also reaches salt.function and friends. A step matches name
// through its declaration key or its "name" argument.
func Search(steps []*step.Step, module, name string) (*step.Step, error) {
	for _, s := range steps {
		if module != "" && !moduleMatches(s, module) {
			continue
		}
		if s.Desc == name {
			return s, nil
		}
		v, ok, err := s.Arg("name")
		if err != nil {
			return nil, err
		}
		if str, isStr := v.(string); ok && isStr && str != "" && str == name {
			return s, nil
		}
	}
	return nil, nil
}

func moduleMatches(s *step.Step, module string) bool {
	switch s.Kind {
	case step.KindStateApply, step.KindRunnerCall:
		return module == hintSalt
	default:
		return s.Module() == module
	}
}

// references flattens a directive value into lookups. A bare value is a
// one-element list; mapping entries contribute one lookup per pair in key
// order.
func references(raw any) []reference {
	items, ok := raw.([]any)
	if !ok {
		items = []any{raw}
	}

	var refs []reference
	for _, item := range items {
		m, isMap := item.(map[string]any)
		if !isMap {
			refs = append(refs, reference{name: scalar(item)})
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			refs = append(refs, reference{module: k, name: scalar(m[k])})
		}
	}
	return refs
}

func scalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case bool:
		return !t
	default:
		return false
	}
}
