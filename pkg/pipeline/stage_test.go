package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

var allStages = []pipeline.StageName{
	pipeline.StageBias, pipeline.StageFlats, pipeline.StageArcs, pipeline.StageStandard, pipeline.StageScience,
}

func TestBuildStages(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		flags       map[pipeline.StageName]bool
		wantEnabled map[pipeline.StageName]bool
	}{
		"defaults enable every stage": {
			wantEnabled: map[pipeline.StageName]bool{
				pipeline.StageBias: true, pipeline.StageFlats: true, pipeline.StageArcs: true,
				pipeline.StageStandard: true, pipeline.StageScience: true,
			},
		},
		"flags override": {
			flags: map[pipeline.StageName]bool{pipeline.StageBias: false, pipeline.StageScience: true},
			wantEnabled: map[pipeline.StageName]bool{
				pipeline.StageBias: false, pipeline.StageFlats: true, pipeline.StageArcs: true,
				pipeline.StageStandard: true, pipeline.StageScience: true,
			},
		},
		"all disabled": {
			flags: map[pipeline.StageName]bool{
				pipeline.StageBias: false, pipeline.StageFlats: false, pipeline.StageArcs: false,
				pipeline.StageStandard: false, pipeline.StageScience: false,
			},
			wantEnabled: map[pipeline.StageName]bool{
				pipeline.StageBias: false, pipeline.StageFlats: false, pipeline.StageArcs: false,
				pipeline.StageStandard: false, pipeline.StageScience: false,
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stages, err := pipeline.BuildStages(tc.flags, false)
			require.NoError(t, err)
			assert.Equal(t, allStages, stages.Names())

			for _, stage := range stages {
				assert.Equal(t, tc.wantEnabled[stage.Name], stage.Enabled, stage.Name)
				assert.Nil(t, stage.Params(), stage.Name)
			}
		})
	}
}

func TestBuildStagesInteractive(t *testing.T) {
	t.Parallel()

	stages, err := pipeline.BuildStages(nil, true)
	require.NoError(t, err)

	want := map[pipeline.StageName]map[string]string{
		pipeline.StageBias:     nil,
		pipeline.StageFlats:    {"normalizeFlat:interactive": "True"},
		pipeline.StageArcs:     {"interactive": "True"},
		pipeline.StageStandard: {"calculateSensitivity:interactive": "True"},
		pipeline.StageScience:  {"interactive": "True"},
	}

	for _, stage := range stages {
		assert.Equal(t, want[stage.Name], stage.Params(), stage.Name)
	}
}

func TestDefaultStageDefinitions(t *testing.T) {
	t.Parallel()

	defs := pipeline.DefaultStageDefinitions()
	require.Len(t, defs, 5)

	produces := make(map[pipeline.StageName]bool)
	for _, def := range defs {
		produces[def.Name] = def.ProducesCalibration
	}

	assert.Equal(t, map[pipeline.StageName]bool{
		pipeline.StageBias: true, pipeline.StageFlats: true, pipeline.StageArcs: true,
		pipeline.StageStandard: false, pipeline.StageScience: false,
	}, produces)
	assert.Equal(t, []pipeline.Role{pipeline.RoleBiasStandard, pipeline.RoleBiasScience}, defs[0].Inputs)
	assert.True(t, defs[4].Display)
	assert.True(t, defs[4].Plot)
}

func TestBuildStagesErrors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		defs   []pipeline.StageDefinition
		flags  map[pipeline.StageName]bool
		wantIs error
	}{
		"unknown flag": {
			defs:   pipeline.DefaultStageDefinitions(),
			flags:  map[pipeline.StageName]bool{"dark": true},
			wantIs: pipeline.ErrUnknownStage,
		},
		"duplicate stage": {
			defs: []pipeline.StageDefinition{
				{Name: pipeline.StageBias},
				{Name: pipeline.StageBias},
			},
			wantIs: pipeline.ErrDuplicateStage,
		},
		"unknown dependency": {
			defs: []pipeline.StageDefinition{
				{Name: pipeline.StageFlats, DependsOn: []pipeline.StageName{"dark"}},
			},
			wantIs: pipeline.ErrUnknownStage,
		},
		"dependency listed after": {
			defs: []pipeline.StageDefinition{
				{Name: pipeline.StageFlats, DependsOn: []pipeline.StageName{pipeline.StageBias}},
				{Name: pipeline.StageBias},
			},
			wantIs: pipeline.ErrUnorderedStages,
		},
		"cycle": {
			defs: []pipeline.StageDefinition{
				{Name: pipeline.StageBias, DependsOn: []pipeline.StageName{pipeline.StageFlats}},
				{Name: pipeline.StageFlats, DependsOn: []pipeline.StageName{pipeline.StageBias}},
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.BuildStagesFrom(tc.defs, tc.flags, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, pipeline.ErrConfig)

			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			}
		})
	}
}

func TestStagesGaps(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		flags map[pipeline.StageName]bool
		want  []pipeline.Gap
	}{
		"all enabled": {
			want: []pipeline.Gap{},
		},
		"bias disabled": {
			flags: map[pipeline.StageName]bool{pipeline.StageBias: false},
			want: []pipeline.Gap{
				{Stage: pipeline.StageFlats, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageArcs, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageStandard, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageBias},
			},
		},
		"only science": {
			flags: map[pipeline.StageName]bool{
				pipeline.StageBias: false, pipeline.StageFlats: false,
				pipeline.StageArcs: false, pipeline.StageStandard: false,
			},
			want: []pipeline.Gap{
				{Stage: pipeline.StageScience, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageFlats},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageArcs},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageStandard},
			},
		},
		"disabled stages report nothing": {
			flags: map[pipeline.StageName]bool{pipeline.StageBias: false, pipeline.StageFlats: false},
			want: []pipeline.Gap{
				{Stage: pipeline.StageArcs, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageStandard, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageStandard, Upstream: pipeline.StageFlats},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageBias},
				{Stage: pipeline.StageScience, Upstream: pipeline.StageFlats},
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			stages, err := pipeline.BuildStages(tc.flags, false)
			require.NoError(t, err)

			gaps, err := stages.Gaps()
			require.NoError(t, err)
			assert.Equal(t, tc.want, gaps)
		})
	}
}

func TestParseStageName(t *testing.T) {
	t.Parallel()

	for _, name := range allStages {
		got, err := pipeline.ParseStageName(string(name))
		require.NoError(t, err)
		assert.Equal(t, name, got)
	}

	_, err := pipeline.ParseStageName("makebias")
	assert.ErrorIs(t, err, pipeline.ErrConfig)
	assert.ErrorIs(t, err, pipeline.ErrUnknownStage)
}

func TestOverrideKey(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		override pipeline.Override
		want     string
	}{
		"scoped":          {override: pipeline.Override{Primitive: "normalizeFlat", Name: "interactive"}, want: "normalizeFlat:interactive"},
		"global":          {override: pipeline.Override{Primitive: pipeline.GlobalPrimitive, Name: "interactive"}, want: "interactive"},
		"empty primitive": {override: pipeline.Override{Name: "order"}, want: "order"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.override.Key())
		})
	}
}
