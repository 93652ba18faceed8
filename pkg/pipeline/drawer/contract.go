package drawer

import (
	"time"

	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/measure"
	"github.com/askiada/go-spectro-pipeline/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a run.
type Drawer interface {
	// AddStage adds a stage to the drawer.
	AddStage(stageName string) error
	// AddLink adds a link between an upstream and a downstream stage.
	AddLink(parentStageName, childStageName string) error
	// SetState colours the stage after its state.
	SetState(stageName string, state model.StageState) error
	// SetTotalTime sets the total time for the stage.
	SetTotalTime(stageName string, startTime time.Time) error
	// AddMeasure adds a measure to the drawer.
	AddMeasure(measure measure.Measure) error
	// Draw creates a file with the run graph.
	Draw() error
}
