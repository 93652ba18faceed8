package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/measure"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m          measure.Measure
	startTime  time.Time
	order      []string
	downstream map[string]bool
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStage(model.StartStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start stage to drawer")
	}

	err = pd.AddStage(model.EndStage.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end stage to drawer")
	}

	pd.startTime = time.Now()
	pd.downstream = make(map[string]bool)

	return nil
}

func (pd *pipelineDrawer) PrepareStage(stage *model.StageInfo) error {
	err := pd.AddStage(stage.Name)
	if err != nil {
		return err
	}

	pd.order = append(pd.order, stage.Name)

	if len(stage.DependsOn) == 0 {
		err = pd.AddLink(model.StartStage.Name, stage.Name)
		if err != nil {
			return err
		}
	}

	for _, dep := range stage.DependsOn {
		err := pd.AddLink(dep, stage.Name)
		if err != nil {
			return err
		}

		pd.downstream[dep] = true
	}

	return pd.SetState(stage.Name, model.StatePending)
}

func (pd *pipelineDrawer) BeforeStage(stage *model.StageInfo) error {
	return pd.SetState(stage.Name, model.StateRunning)
}

func (pd *pipelineDrawer) OnInvocation(stage *model.StageInfo, elapsed time.Duration) error {
	return nil
}

func (pd *pipelineDrawer) AfterStage(stage *model.StageInfo, state model.StageState, elapsed time.Duration) error {
	return pd.SetState(stage.Name, state)
}

func (pd *pipelineDrawer) Finish() error {
	for _, name := range pd.order {
		if pd.downstream[name] {
			continue
		}

		err := pd.AddLink(name, model.EndStage.Name)
		if err != nil {
			return errors.Wrap(err, "unable to link last stage")
		}
	}

	err := pd.SetTotalTime(model.EndStage.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw run")
	}

	return nil
}

// PipelineDrawer draws the stage graph once the run is over. measure may be nil.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.RunOption {
	return &pipelineDrawer{Drawer: drawer, m: measure}
}
