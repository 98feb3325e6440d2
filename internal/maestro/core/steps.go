package core

import "context"

// Step is one named stage of a flow. S is the state shared by every step of
// the flow; steps record their results on it for the steps that follow.
type Step[S any] struct {
	Name    string
	Execute func(ctx context.Context, state *S) error
}

func NewStep[S any](name string, execute func(ctx context.Context, state *S) error) Step[S] {
	return Step[S]{
		Name:    name,
		Execute: execute,
	}
}
