package core

import (
	"context"
	"fmt"
)

// StepError reports which step aborted a flow. It unwraps to the step's error
// so callers can still match typed errors.
type StepError struct {
	Flow string
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s step failed: %v", e.Flow, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Flow[S any] struct {
	name  string
	steps []Step[S]
}

func NewFlow[S any](name string, steps ...Step[S]) *Flow[S] {
	return &Flow[S]{name: name, steps: steps}
}

func (f *Flow[S]) Name() string {
	return f.name
}

func (f *Flow[S]) Steps() []Step[S] {
	return f.steps
}

// Run executes the steps in order and stops at the first failure. A cancelled
// context stops the flow before the next step starts.
func (f *Flow[S]) Run(ctx context.Context, state *S) error {
	for _, step := range f.steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Flow: f.name, Step: step.Name, Err: err}
		}
		if err := step.Execute(ctx, state); err != nil {
			return &StepError{Flow: f.name, Step: step.Name, Err: err}
		}
	}
	return nil
}
