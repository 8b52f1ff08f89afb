package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// Format selects the plan output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", name)
	}
}

// Options tunes Write.
type Options struct {
	Format Format
	// Levels, when set, groups the text output and is included in the
	// structured encodings.
	Levels [][]*step.Step
	// Color enables lipgloss styling of the text output.
	Color bool
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	levelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	edgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Write renders p to w.
func Write(w io.Writer, p *plan.Plan, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(NewDocument(p, opts.Levels))
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(NewDocument(p, opts.Levels)); err != nil {
			return err
		}
		return encoder.Close()
	case FormatText, "":
		_, err := io.WriteString(w, Text(p, opts))
		return err
	default:
		return fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// Document is the structured form of a plan. Edges refer to step indexes.
type Document struct {
	Stage      string    `json:"stage" yaml:"stage"`
	StagesOnly bool      `json:"stages_only" yaml:"stages_only"`
	Count      int       `json:"count" yaml:"count"`
	Steps      []StepDoc `json:"steps" yaml:"steps"`
	Levels     [][]int   `json:"levels,omitempty" yaml:"levels,omitempty"`
}

// StepDoc is one step of a Document.
type StepDoc struct {
	Index     int    `json:"index" yaml:"index"`
	Kind      string `json:"kind" yaml:"kind"`
	Desc      string `json:"desc" yaml:"desc"`
	Fun       string `json:"fun,omitempty" yaml:"fun,omitempty"`
	State     string `json:"state,omitempty" yaml:"state,omitempty"`
	Target    string `json:"target,omitempty" yaml:"target,omitempty"`
	Args      any    `json:"args,omitempty" yaml:"args,omitempty"`
	OnSuccess []int  `json:"on_success,omitempty" yaml:"on_success,omitempty"`
	OnFail    []int  `json:"on_fail,omitempty" yaml:"on_fail,omitempty"`
}

// NewDocument converts a plan into its structured form.
func NewDocument(p *plan.Plan, levels [][]*step.Step) Document {
	doc := Document{Steps: []StepDoc{}}
	if p == nil {
		return doc
	}

	doc.Stage = string(p.Root)
	doc.StagesOnly = p.StagesOnly
	doc.Count = len(p.Steps)

	index := indexOf(p.Steps)
	for i, s := range p.Steps {
		doc.Steps = append(doc.Steps, StepDoc{
			Index:     i,
			Kind:      s.Kind.String(),
			Desc:      s.Desc,
			Fun:       s.Fun,
			State:     s.State,
			Target:    s.Target,
			Args:      s.Args,
			OnSuccess: indexes(index, s.OnSuccess),
			OnFail:    indexes(index, s.OnFail),
		})
	}

	for _, level := range levels {
		doc.Levels = append(doc.Levels, indexes(index, level))
	}

	return doc
}

// Text renders the human readable form of a plan.
func Text(p *plan.Plan, opts Options) string {
	paint := func(style lipgloss.Style, s string) string {
		if !opts.Color {
			return s
		}
		return style.Render(s)
	}

	if p == nil {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", paint(titleStyle, fmt.Sprintf("Plan for %s (%d steps)", p.Root, len(p.Steps))))
	if len(p.Steps) == 0 {
		b.WriteString("  nothing to do\n")
		return b.String()
	}

	index := indexOf(p.Steps)
	writeStep := func(s *step.Step) {
		fmt.Fprintf(&b, "%3d. %s %s\n", index[s]+1, paint(kindStyle, "["+s.Kind.String()+"]"), s)
		if deps := names(index, s.OnSuccess); deps != "" {
			fmt.Fprintf(&b, "     %s\n", paint(edgeStyle, "after: "+deps))
		}
		if deps := names(index, s.OnFail); deps != "" {
			fmt.Fprintf(&b, "     %s\n", paint(failStyle, "on failure of: "+deps))
		}
	}

	if len(opts.Levels) == 0 {
		for _, s := range p.Steps {
			writeStep(s)
		}
		return b.String()
	}

	for i, level := range opts.Levels {
		fmt.Fprintf(&b, "%s\n", paint(levelStyle, fmt.Sprintf("Level %d", i+1)))
		for _, s := range level {
			writeStep(s)
		}
	}
	return b.String()
}

func indexOf(steps []*step.Step) map[*step.Step]int {
	index := make(map[*step.Step]int, len(steps))
	for i, s := range steps {
		index[s] = i
	}
	return index
}

func indexes(index map[*step.Step]int, steps []*step.Step) []int {
	if len(steps) == 0 {
		return nil
	}
	out := make([]int, 0, len(steps))
	for _, s := range steps {
		if i, ok := index[s]; ok {
			out = append(out, i)
		}
	}
	return out
}

func names(index map[*step.Step]int, steps []*step.Step) string {
	parts := make([]string, 0, len(steps))
	for _, s := range steps {
		parts = append(parts, fmt.Sprintf("#%d %s", index[s]+1, s.Desc))
	}
	return strings.Join(parts, ", ")
}
