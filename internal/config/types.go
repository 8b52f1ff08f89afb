package config

import (
	"os"

	"github.com/alexisbeaulieu97/stageplan/internal/cache"
	"github.com/alexisbeaulieu97/stageplan/internal/plan"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
)

// Cache backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Render modes.
const (
	RenderYAML    = "yaml"
	RenderCommand = "command"
)

// Settings is the stageplan settings document.
type Settings struct {
	BaseDir        string         `yaml:"base_dir" toml:"base_dir" validate:"required"`
	StageNamespace string         `yaml:"stage_namespace" toml:"stage_namespace" validate:"required,stage_ns"`
	Cache          CacheSettings  `yaml:"cache" toml:"cache"`
	Render         RenderSettings `yaml:"render" toml:"render"`
	Log            LogSettings    `yaml:"log" toml:"log"`
}

// CacheSettings selects and configures the plan cache.
type CacheSettings struct {
	Backend    string `yaml:"backend" toml:"backend" validate:"required,oneof=file sqlite memory none"`
	Dir        string `yaml:"dir,omitempty" toml:"dir,omitempty"`
	Prefix     string `yaml:"prefix" toml:"prefix" validate:"required,excludesall=/\\"`
	SQLitePath string `yaml:"sqlite_path,omitempty" toml:"sqlite_path,omitempty" validate:"required_if=Backend sqlite"`
}

// RenderSettings selects how stage files are rendered.
type RenderSettings struct {
	Mode    string         `yaml:"mode" toml:"mode" validate:"required,oneof=yaml command"`
	Command []string       `yaml:"command,omitempty" toml:"command,omitempty" validate:"required_if=Mode command,dive,required"`
	Vars    map[string]any `yaml:"vars,omitempty" toml:"vars,omitempty"`
}

// LogSettings configures the logger.
type LogSettings struct {
	Level string `yaml:"level" toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Human bool   `yaml:"human" toml:"human"`
}

// DefaultRenderCommand renders stage files through the local salt minion.
func DefaultRenderCommand() []string {
	return []string{"salt-call", "--local", "--out=yaml", "slsutil.renderer"}
}

// Default returns the settings used when no file is given.
func Default() *Settings {
	return &Settings{
		BaseDir:        stage.DefaultBaseDir,
		StageNamespace: plan.DefaultStageNamespace,
		Cache: CacheSettings{
			Backend: BackendFile,
			Dir:     os.TempDir(),
			Prefix:  cache.DefaultPrefix,
		},
		Render: RenderSettings{
			Mode:    RenderYAML,
			Command: DefaultRenderCommand(),
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}
