package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scoutfund/troopsales-backend/internal/authz"
	"github.com/scoutfund/troopsales-backend/pkg/db/models"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	"github.com/scoutfund/troopsales-backend/pkg/metrics"
)

// State is the explicit context value steps accumulate into. Authorization
// data and the target resource live behind different access paths, so a
// mutation is resolved across several reads before the single write; State
// is how one step hands its result to the next.
type State struct {
	CallerID  uuid.UUID
	ProfileID uuid.UUID

	Decision *authz.Decision
	Season   *models.Season
	Order    *models.Order

	// Result holds the final step's output.
	Result any
}

// Step is one stage of a mutation pipeline. Only the last step of a
// pipeline may set Mutates: everything before the write must be read-only
// so an abort at any point leaves no partial effects behind.
type Step struct {
	Name    string
	Mutates bool
	Run     func(ctx context.Context, st *State) error
}

// Executor runs ordered steps, aborting on the first failure. There is no
// rollback: the read-only prefix plus single trailing write is the safety
// model, and Execute rejects pipelines that violate it.
type Executor struct {
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
}

// NewExecutor builds an executor. Logger and metrics are optional.
func NewExecutor(logg *logger.Logger, m *metrics.PipelineMetrics) *Executor {
	return &Executor{logg: logg, metrics: m}
}

// Execute runs the steps strictly in order against a fresh State. The first
// step error aborts the pipeline; later steps never run.
func (e *Executor) Execute(ctx context.Context, callerID uuid.UUID, steps ...Step) (*State, error) {
	if len(steps) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "empty pipeline")
	}
	for i, step := range steps {
		if step.Mutates && i != len(steps)-1 {
			return nil, pkgerrors.New(pkgerrors.CodeInternal,
				fmt.Sprintf("mutating step %q is not last", step.Name))
		}
	}

	st := &State{CallerID: callerID}
	for _, step := range steps {
		start := time.Now()
		err := step.Run(ctx, st)
		e.observe(step.Name, err, time.Since(start))
		if err != nil {
			if e.logg != nil {
				logCtx := e.logg.WithField(ctx, "step", step.Name)
				e.logg.Warn(logCtx, "pipeline step failed")
			}
			return nil, err
		}
	}
	return st, nil
}

func (e *Executor) observe(step string, err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if typed := pkgerrors.As(err); typed != nil {
			outcome = string(typed.Code())
		}
	}
	e.metrics.ObserveStep(step, outcome, elapsed)
}
