package cache

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/stageplan/internal/render"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

const formatVersion = "1"

type entryFile struct {
	Version    string   `yaml:"version"`
	Stage      string   `yaml:"stage"`
	StagesOnly bool     `yaml:"stages_only"`
	Steps      []record `yaml:"steps"`
}

type record struct {
	Kind   string `yaml:"kind"`
	Desc   string `yaml:"desc"`
	Fun    string `yaml:"fun,omitempty"`
	State  string `yaml:"state,omitempty"`
	Target string `yaml:"target,omitempty"`
	Args   any    `yaml:"args"`
}

// encode serializes steps without their dependency edges; cached
// sequences are always relinked after loading.
func encode(id stage.ID, stagesOnly bool, steps []*step.Step) ([]byte, error) {
	file := entryFile{
		Version:    formatVersion,
		Stage:      string(id),
		StagesOnly: stagesOnly,
		Steps:      make([]record, 0, len(steps)),
	}
	for _, s := range steps {
		file.Steps = append(file.Steps, record{
			Kind:   s.Kind.String(),
			Desc:   s.Desc,
			Fun:    s.Fun,
			State:  s.State,
			Target: s.Target,
			Args:   s.Args,
		})
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry for %s: %w", id, err)
	}
	return data, nil
}

func decode(id stage.ID, stagesOnly bool, data []byte) ([]*step.Step, error) {
	var file entryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode cache entry for %s: %w", id, err)
	}
	if file.Version != formatVersion {
		return nil, fmt.Errorf("cache entry for %s has format %q, want %q", id, file.Version, formatVersion)
	}
	if file.Stage != string(id) || file.StagesOnly != stagesOnly {
		return nil, fmt.Errorf("cache entry for %s belongs to %s (stages_only=%t)", id, file.Stage, file.StagesOnly)
	}

	steps := make([]*step.Step, 0, len(file.Steps))
	for _, r := range file.Steps {
		kind, err := step.ParseKind(r.Kind)
		if err != nil {
			return nil, fmt.Errorf("decode cache entry for %s: %w", id, err)
		}
		steps = append(steps, &step.Step{
			Kind:   kind,
			Desc:   r.Desc,
			Fun:    r.Fun,
			State:  r.State,
			Target: r.Target,
			Args:   render.Normalize(r.Args),
		})
	}
	return steps, nil
}
