// Package config loads the run configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-spectro-pipeline/internal/engine"
	"github.com/askiada/go-spectro-pipeline/internal/plot"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

// Defaults.
const (
	DefaultInputGlob           = "playdata/example1/*.fits"
	DefaultTargetObject        = "J2145+0031"
	DefaultCalibrationDB       = "calibrations.db"
	DefaultLogFile             = "spectro-reduce.log"
	DefaultClassifyConcurrency = 4
)

// Config holds the whole run configuration.
type Config struct {
	// Stages switches stages on or off. A stage left out, or set to null, stays enabled.
	Stages              map[string]*bool `yaml:"stages"`
	DataRoot            string           `yaml:"data_root"`
	InputGlob           string           `yaml:"input_glob"`
	TargetObject        string           `yaml:"target_object"`
	CalibrationDB       string           `yaml:"calibration_db"`
	LogFile             string           `yaml:"log_file"`
	GraphFile           string           `yaml:"graph_file"`
	DisplayPattern      string           `yaml:"display_pattern"`
	// WorkDir is where the engine runs and writes its products.
	WorkDir             string           `yaml:"work_dir"`
	Engine              CommandConfig    `yaml:"engine"`
	Plot                CommandConfig    `yaml:"plot"`
	Standards           []string         `yaml:"standards"`
	Aperture            int              `yaml:"aperture"`
	ClassifyConcurrency int              `yaml:"classify_concurrency"`
	Interactive         bool             `yaml:"interactive"`
	PlotSpectrum        bool             `yaml:"plot_spectrum"`
}

// CommandConfig describes an external program.
type CommandConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataRoot:            ".",
		InputGlob:           DefaultInputGlob,
		TargetObject:        DefaultTargetObject,
		CalibrationDB:       DefaultCalibrationDB,
		LogFile:             DefaultLogFile,
		DisplayPattern:      pipeline.DefaultDisplayPattern,
		WorkDir:             ".",
		Aperture:            pipeline.DefaultAperture,
		ClassifyConcurrency: DefaultClassifyConcurrency,
		Interactive:         true,
		PlotSpectrum:        true,
		Engine:              CommandConfig{Command: engine.DefaultCommand},
		Plot:                CommandConfig{Command: plot.DefaultCommand},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to read config %s", path)
	}

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "unable to parse config %s", path)
	}

	return cfg, cfg.Validate()
}

// Validate checks the stage names and the mandatory fields.
func (c Config) Validate() error {
	_, err := c.StageFlags()
	if err != nil {
		return err
	}

	switch {
	case c.InputGlob == "":
		return errors.Wrap(pipeline.ErrConfig, "input_glob must be set")
	case c.TargetObject == "":
		return errors.Wrap(pipeline.ErrConfig, "target_object must be set")
	case c.CalibrationDB == "":
		return errors.Wrap(pipeline.ErrConfig, "calibration_db must be set")
	case c.Engine.Command == "":
		return errors.Wrap(pipeline.ErrConfig, "engine.command must be set")
	case !validDisplayPattern(c.DisplayPattern):
		return errors.Wrapf(pipeline.ErrConfig, "display_pattern %q must hold exactly one %%s", c.DisplayPattern)
	}

	return nil
}

// validDisplayPattern accepts patterns formatting a single frame name and nothing else.
func validDisplayPattern(pattern string) bool {
	if strings.Count(pattern, "%s") != 1 {
		return false
	}

	return !strings.Contains(fmt.Sprintf(pattern, "frame"), "%!")
}

// SetStage overrides the enabled switch of a stage.
func (c *Config) SetStage(name pipeline.StageName, enabled bool) {
	if c.Stages == nil {
		c.Stages = make(map[string]*bool)
	}

	c.Stages[string(name)] = &enabled
}

// StageFlags returns the stage switches set by the configuration. Null switches are left out.
func (c Config) StageFlags() (map[pipeline.StageName]bool, error) {
	names := make([]string, 0, len(c.Stages))
	for name := range c.Stages {
		names = append(names, name)
	}

	sort.Strings(names)

	flags := make(map[pipeline.StageName]bool, len(c.Stages))

	for _, name := range names {
		stage, err := pipeline.ParseStageName(name)
		if err != nil {
			return nil, err
		}

		if enabled := c.Stages[name]; enabled != nil {
			flags[stage] = *enabled
		}
	}

	return flags, nil
}

// Enabled reports whether stage runs, true unless switched off.
func (c Config) Enabled(stage pipeline.StageName) bool {
	enabled := c.Stages[string(stage)]

	return enabled == nil || *enabled
}

// InputPattern returns the glob locating the raw frames.
func (c Config) InputPattern() string {
	return filepath.Join(c.DataRoot, c.InputGlob)
}
