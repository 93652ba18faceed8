package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

type DefaultMetric struct {
	mu            *sync.Mutex
	state         model.StageState
	EndDuration   time.Duration
	invokeElapsed time.Duration
	total         int
}

func (mt *DefaultMetric) AddInvocation(elapsed time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.total++
	mt.invokeElapsed += elapsed
}

func (mt *DefaultMetric) Invocations() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.total
}

func (mt *DefaultMetric) AVGInvocation() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if mt.total == 0 {
		return time.Duration(0)
	}

	return round(time.Duration(float64(mt.invokeElapsed) / float64(mt.total)))
}

func (mt *DefaultMetric) SetTotalDuration(endDuration time.Duration) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.EndDuration = endDuration
}

func (mt *DefaultMetric) GetTotalDuration() time.Duration {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	return mt.EndDuration
}

func (mt *DefaultMetric) SetState(state model.StageState) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.state = state
}

func (mt *DefaultMetric) State() model.StageState {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	if mt.state == "" {
		return model.StatePending
	}

	return mt.state
}

func round(d time.Duration) time.Duration {
	switch {
	case d > time.Hour:
		d = d.Round(time.Minute)
	case d > time.Second:
		d = d.Round(time.Second)
	case d > time.Millisecond:
		d = d.Round(time.Millisecond)
	case d > time.Microsecond:
		d = d.Round(time.Microsecond)
	}

	return d
}
