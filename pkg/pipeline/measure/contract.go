package measure

import (
	"time"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

type Metric interface {
	AddInvocation(elapsed time.Duration)
	Invocations() int
	AVGInvocation() time.Duration
	SetTotalDuration(total time.Duration)
	GetTotalDuration() time.Duration
	SetState(state model.StageState)
	State() model.StageState
}
