package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	planerrors "github.com/alexisbeaulieu97/stageplan/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// YAMLRenderer reads a stage file, expands it as a text/template with Vars
// and decodes the result as YAML.
type YAMLRenderer struct {
	Vars map[string]any
}

// NewYAMLRenderer creates a renderer with the given template variables.
func NewYAMLRenderer(vars map[string]any) *YAMLRenderer {
	return &YAMLRenderer{Vars: vars}
}

// Render implements ports.Renderer.
func (r *YAMLRenderer) Render(ctx context.Context, path string) (Mapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stage file %q: %w", path, err)
	}

	tmpl, err := template.New(path).Option("missingkey=zero").Parse(string(content))
	if err != nil {
		return nil, planerrors.NewParseError(path, 0, fmt.Errorf("parse template: %w", err))
	}

	var rendered bytes.Buffer
	if err := tmpl.Execute(&rendered, r.Vars); err != nil {
		return nil, planerrors.NewParseError(path, 0, fmt.Errorf("render template: %w", err))
	}

	return Decode(path, rendered.Bytes())
}

// CommandRenderer delegates rendering to an external program, typically
// `salt-call --local --out=yaml slsutil.renderer`. The stage path is
// appended to Args. Standard output is captured and parsed; anything the
// program writes to standard error is discarded.
type CommandRenderer struct {
	Args   []string
	Stderr io.Writer
}

// NewCommandRenderer creates a CommandRenderer for argv.
func NewCommandRenderer(argv []string) *CommandRenderer {
	return &CommandRenderer{Args: append([]string(nil), argv...)}
}

// Render implements ports.Renderer.
func (r *CommandRenderer) Render(ctx context.Context, path string) (Mapping, error) {
	if len(r.Args) == 0 {
		return nil, fmt.Errorf("render command is empty")
	}

	argv := append(append([]string(nil), r.Args[1:]...), path)
	cmd := exec.CommandContext(ctx, r.Args[0], argv...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = io.Discard
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s for %q: %w", strings.Join(r.Args, " "), path, err)
	}

	return decode(path, stdout.Bytes(), true)
}

// Decode parses YAML bytes into an ordered Mapping.
func Decode(path string, data []byte) (Mapping, error) {
	return decode(path, data, false)
}

func decode(path string, data []byte, unwrap bool) (Mapping, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, planerrors.NewParseError(path, extractLine(err), err)
	}

	root := &node
	if unwrap {
		root = unwrapLocal(root)
	}

	doc, err := decodeDocument(root)
	if err != nil {
		return nil, planerrors.NewParseError(path, extractLine(err), err)
	}
	return doc, nil
}

// salt-call prints its return value under a single top-level "local" key.
func unwrapLocal(node *yaml.Node) *yaml.Node {
	root := node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode && len(root.Content) == 2 &&
		root.Content[0].Value == "local" && root.Content[1].Kind == yaml.MappingNode {
		return root.Content[1]
	}
	return node
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
