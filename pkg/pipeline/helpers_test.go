package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline"
)

type fakeOpener struct {
	frames map[string]pipeline.Frame
	mu     sync.Mutex
	opened []string
}

func (o *fakeOpener) Open(_ context.Context, path string) (pipeline.Frame, error) {
	o.mu.Lock()
	o.opened = append(o.opened, path)
	o.mu.Unlock()

	frame, ok := o.frames[path]
	if !ok {
		return pipeline.Frame{}, fmt.Errorf("no such frame %s", path)
	}

	return frame, nil
}

// scenarioFrames returns the six frame inventory of a typical long-slit night, in path order.
func scenarioFrames(t *testing.T) (*fakeOpener, []string) {
	t.Helper()

	frames := []pipeline.Frame{
		pipeline.NewFrame("file1.fits", []pipeline.Tag{pipeline.TagBias, pipeline.TagCal},
			map[pipeline.Attribute]string{pipeline.AttrReadoutMode: pipeline.ReadoutCentralSpectrum}),
		pipeline.NewFrame("file2.fits", []pipeline.Tag{pipeline.TagBias, pipeline.TagCal},
			map[pipeline.Attribute]string{pipeline.AttrReadoutMode: pipeline.ReadoutFullFrame}),
		pipeline.NewFrame("file3.fits", []pipeline.Tag{pipeline.TagFlat, pipeline.TagCal},
			map[pipeline.Attribute]string{pipeline.AttrReadoutMode: pipeline.ReadoutFullFrame}),
		pipeline.NewFrame("file4.fits", []pipeline.Tag{pipeline.TagArc, pipeline.TagCal},
			map[pipeline.Attribute]string{pipeline.AttrReadoutMode: pipeline.ReadoutFullFrame}),
		pipeline.NewFrame("file5.fits", []pipeline.Tag{pipeline.TagStandard, pipeline.TagCal},
			map[pipeline.Attribute]string{pipeline.AttrObject: "LTT9239"}),
		pipeline.NewFrame("file6.fits", nil,
			map[pipeline.Attribute]string{pipeline.AttrObject: "J2145+0031"}),
	}

	opener := &fakeOpener{frames: make(map[string]pipeline.Frame)}
	paths := make([]string, len(frames))

	for i, frame := range frames {
		opener.frames[frame.Path] = frame
		paths[i] = frame.Path
	}

	return opener, paths
}

type fakeRegistrar struct {
	mu         sync.Mutex
	registered []string
	err        error
}

func (r *fakeRegistrar) Register(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	r.registered = append(r.registered, path)

	return nil
}

func (r *fakeRegistrar) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string{}, r.registered...)
}

type fakeEngine struct {
	failOn      map[pipeline.StageName]error
	invocations []pipeline.Invocation
}

// Reduce returns one product per input file, suffixed with the stage name.
func (e *fakeEngine) Reduce(_ context.Context, inv pipeline.Invocation) ([]string, error) {
	e.invocations = append(e.invocations, inv)

	if err, ok := e.failOn[inv.Stage]; ok && inv.Recipe == "" {
		return nil, err
	}

	if inv.Recipe != "" {
		return nil, nil
	}

	outputs := make([]string, len(inv.Files))
	for i, file := range inv.Files {
		outputs[i] = fmt.Sprintf("%s_%s.fits", strings.TrimSuffix(file, ".fits"), inv.Stage)
	}

	return outputs, nil
}

func (e *fakeEngine) byStage(stage pipeline.StageName) []pipeline.Invocation {
	invs := make([]pipeline.Invocation, 0)

	for _, inv := range e.invocations {
		if inv.Stage == stage {
			invs = append(invs, inv)
		}
	}

	return invs
}

type fakePlotter struct {
	plotErr     error
	panicOnPlot bool
	interactive bool
	modes       []bool
	plotted     []string
}

func (p *fakePlotter) Interactive() bool { return p.interactive }

func (p *fakePlotter) SetInteractive(interactive bool) { p.interactive = interactive }

func (p *fakePlotter) Plot(_ context.Context, path string, _ int) error {
	p.modes = append(p.modes, p.interactive)
	p.plotted = append(p.plotted, path)

	if p.panicOnPlot {
		panic("renderer crashed")
	}

	return p.plotErr
}

func classify(t *testing.T) pipeline.Roles {
	t.Helper()

	opener, paths := scenarioFrames(t)

	classifier, err := pipeline.NewClassifier(opener, "J2145+0031")
	if err != nil {
		t.Fatal(err)
	}

	roles, err := classifier.Classify(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}

	return roles
}
