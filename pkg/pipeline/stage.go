package pipeline

import (
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// StageName identifies a reduction stage.
type StageName string

const (
	StageBias     StageName = "bias"
	StageFlats    StageName = "flats"
	StageArcs     StageName = "arcs"
	StageStandard StageName = "standard"
	StageScience  StageName = "science"
)

// GlobalPrimitive scopes an override to every primitive of the recipe.
const GlobalPrimitive = "global"

// Override is a parameter passed to the engine, scoped to one primitive or to the whole recipe.
type Override struct {
	Primitive string
	Name      string
	Value     string
}

// Key renders the override as the engine expects it: "primitive:name", or "name" when global.
func (o Override) Key() string {
	if o.Primitive == "" || o.Primitive == GlobalPrimitive {
		return o.Name
	}

	return o.Primitive + ":" + o.Name
}

// InteractiveOverrides is the primitive put in interactive mode for each stage when the run is interactive.
// The bias stage has no interactive primitive.
var InteractiveOverrides = map[StageName]Override{ //nolint:gochecknoglobals
	StageFlats:    {Primitive: "normalizeFlat", Name: "interactive", Value: "True"},
	StageArcs:     {Primitive: GlobalPrimitive, Name: "interactive", Value: "True"},
	StageStandard: {Primitive: "calculateSensitivity", Name: "interactive", Value: "True"},
	StageScience:  {Primitive: GlobalPrimitive, Name: "interactive", Value: "True"},
}

// StageDefinition is the static description of a stage.
type StageDefinition struct {
	Name      StageName
	Inputs    []Role
	DependsOn []StageName
	// ProducesCalibration registers every output into the calibration store.
	ProducesCalibration bool
	// Display runs the display recipe on the 2-D product once the stage is reduced.
	Display bool
	// Plot renders the first output when spectrum plotting is enabled.
	Plot bool
}

// DefaultStageDefinitions returns the five stages in dependency order.
func DefaultStageDefinitions() []StageDefinition {
	return []StageDefinition{
		{
			Name:                StageBias,
			Inputs:              []Role{RoleBiasStandard, RoleBiasScience},
			ProducesCalibration: true,
		},
		{
			Name:                StageFlats,
			Inputs:              []Role{RoleFlats},
			DependsOn:           []StageName{StageBias},
			ProducesCalibration: true,
		},
		{
			Name:                StageArcs,
			Inputs:              []Role{RoleArcs},
			DependsOn:           []StageName{StageBias},
			ProducesCalibration: true,
		},
		{
			Name:      StageStandard,
			Inputs:    []Role{RoleStandardStar},
			DependsOn: []StageName{StageBias, StageFlats, StageArcs},
		},
		{
			Name:      StageScience,
			Inputs:    []Role{RoleScienceTarget},
			DependsOn: []StageName{StageBias, StageFlats, StageArcs, StageStandard},
			Display:   true,
			Plot:      true,
		},
	}
}

// Stage is a definition with its run-time switches.
type Stage struct {
	StageDefinition
	Overrides []Override
	Enabled   bool
}

// Params returns the overrides keyed the way the engine expects them.
func (s Stage) Params() map[string]string {
	if len(s.Overrides) == 0 {
		return nil
	}

	params := make(map[string]string, len(s.Overrides))
	for _, o := range s.Overrides {
		params[o.Key()] = o.Value
	}

	return params
}

// Stages is an ordered, validated list of stages.
type Stages []Stage

// Names returns the stage names in run order.
func (s Stages) Names() []StageName {
	names := make([]StageName, len(s))
	for i, stage := range s {
		names[i] = stage.Name
	}

	return names
}

// Gap is an enabled stage whose upstream stage is disabled.
type Gap struct {
	Stage    StageName
	Upstream StageName
}

// Gaps lists, in run order, every enabled stage depending on a disabled one.
func (s Stages) Gaps() ([]Gap, error) {
	gra, err := s.Graph()
	if err != nil {
		return nil, err
	}

	predecessors, err := gra.PredecessorMap()
	if err != nil {
		return nil, errors.Wrap(err, "unable to get predecessor map")
	}

	enabled := make(map[string]bool, len(s))
	for _, stage := range s {
		enabled[string(stage.Name)] = stage.Enabled
	}

	gaps := make([]Gap, 0)

	for _, stage := range s {
		if !stage.Enabled {
			continue
		}

		upstreams := make([]string, 0, len(predecessors[string(stage.Name)]))
		for upstream := range predecessors[string(stage.Name)] {
			upstreams = append(upstreams, upstream)
		}

		sort.Slice(upstreams, func(i, j int) bool {
			return s.index(upstreams[i]) < s.index(upstreams[j])
		})

		for _, upstream := range upstreams {
			if !enabled[upstream] {
				gaps = append(gaps, Gap{Stage: stage.Name, Upstream: StageName(upstream)})
			}
		}
	}

	return gaps, nil
}

func (s Stages) index(name string) int {
	for i, stage := range s {
		if string(stage.Name) == name {
			return i
		}
	}

	return len(s)
}

// Graph returns the dependency graph of the stages, edges pointing downstream.
func (s Stages) Graph() (graph.Graph[string, string], error) {
	defs := make([]StageDefinition, len(s))
	for i, stage := range s {
		defs[i] = stage.StageDefinition
	}

	return dependencyGraph(defs)
}

func dependencyGraph(defs []StageDefinition) (graph.Graph[string, string], error) {
	gra := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, def := range defs {
		err := gra.AddVertex(string(def.Name))
		if errors.Is(err, graph.ErrVertexAlreadyExists) {
			return nil, newConfigError(ErrDuplicateStage, "stage %s", def.Name)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "unable to add stage %s", def.Name)
		}
	}

	for _, def := range defs {
		for _, dep := range def.DependsOn {
			err := gra.AddEdge(string(dep), string(def.Name))
			if errors.Is(err, graph.ErrVertexNotFound) {
				return nil, newConfigError(ErrUnknownStage, "stage %s depends on %s", def.Name, dep)
			}

			if err != nil {
				return nil, newConfigError(err, "unable to link %s to %s", dep, def.Name)
			}
		}
	}

	return gra, nil
}

// BuildStages builds the default stages. flags overrides the enabled switch of the named stages, every other
// stage is enabled. When interactive is set, each stage receives its entry from InteractiveOverrides.
func BuildStages(flags map[StageName]bool, interactive bool) (Stages, error) {
	return BuildStagesFrom(DefaultStageDefinitions(), flags, interactive)
}

// BuildStagesFrom builds stages from defs, which must be unique and listed in dependency order.
func BuildStagesFrom(defs []StageDefinition, flags map[StageName]bool, interactive bool) (Stages, error) {
	_, err := dependencyGraph(defs)
	if err != nil {
		return nil, err
	}

	position := make(map[StageName]int, len(defs))
	for i, def := range defs {
		position[def.Name] = i
	}

	for i, def := range defs {
		for _, dep := range def.DependsOn {
			if position[dep] >= i {
				return nil, newConfigError(ErrUnorderedStages, "%s must run after %s", def.Name, dep)
			}
		}
	}

	for name := range flags {
		if _, ok := position[name]; !ok {
			return nil, newConfigError(ErrUnknownStage, "flag for %q", name)
		}
	}

	stages := make(Stages, len(defs))

	for i, def := range defs {
		enabled := true
		if flag, ok := flags[def.Name]; ok {
			enabled = flag
		}

		stage := Stage{StageDefinition: def, Enabled: enabled}
		if override, ok := InteractiveOverrides[def.Name]; interactive && ok {
			stage.Overrides = []Override{override}
		}

		stages[i] = stage
	}

	return stages, nil
}

// ParseStageName returns the stage called name.
func ParseStageName(name string) (StageName, error) {
	for _, def := range DefaultStageDefinitions() {
		if string(def.Name) == name {
			return def.Name, nil
		}
	}

	return "", newConfigError(ErrUnknownStage, "%q", name)
}
