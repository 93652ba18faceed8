package measure

import (
	"time"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	startTime time.Time
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStage.Name)
	pm.AddMetric(model.EndStage.Name)
	pm.startTime = time.Now()

	return nil
}

func (pm *pipelineMeasure) PrepareStage(stage *model.StageInfo) error {
	pm.AddMetric(stage.Name)

	return nil
}

func (pm *pipelineMeasure) BeforeStage(stage *model.StageInfo) error {
	pm.GetMetric(stage.Name).SetState(model.StateRunning)

	return nil
}

func (pm *pipelineMeasure) OnInvocation(stage *model.StageInfo, elapsed time.Duration) error {
	pm.GetMetric(stage.Name).AddInvocation(elapsed)

	return nil
}

func (pm *pipelineMeasure) AfterStage(stage *model.StageInfo, state model.StageState, elapsed time.Duration) error {
	mt := pm.GetMetric(stage.Name)
	mt.SetState(state)
	mt.SetTotalDuration(elapsed)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	pm.GetMetric(model.EndStage.Name).SetTotalDuration(time.Since(pm.startTime))

	return nil
}

// PipelineMeasure records the duration, invocation count and terminal state of every stage into measure.
func PipelineMeasure(measure Measure) model.RunOption {
	return &pipelineMeasure{Measure: measure}
}
