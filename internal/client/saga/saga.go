// Package saga runs a multi-step remote operation and undoes the completed
// steps, newest first, when a later required step fails.
package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/logging"
)

type step struct {
	name string
	undo func(ctx context.Context) error
}

// Saga is not safe for concurrent use.
type Saga struct {
	name  string
	log   logging.Logger
	steps []step
}

func New(name string, log logging.Logger) *Saga {
	return &Saga{name: name, log: log}
}

// Run executes do. On success undo (which may be nil) is recorded for
// Compensate. The error of do is returned wrapped with the step name.
func (s *Saga) Run(ctx context.Context, name string, do func(ctx context.Context) error, undo func(ctx context.Context) error) error {
	if err := do(ctx); err != nil {
		s.log.Warn(ctx, "saga step failed", "saga", s.name, "step", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	if undo != nil {
		s.steps = append(s.steps, step{name: name, undo: undo})
	}
	return nil
}

// Defer records a compensation without a forward action, for steps whose
// effect is only known after they ran.
func (s *Saga) Defer(name string, undo func(ctx context.Context) error) {
	s.steps = append(s.steps, step{name: name, undo: undo})
}

// Compensate runs every recorded undo in reverse order, even when some
// fail, and returns the failures joined. The saga is empty afterwards.
func (s *Saga) Compensate(ctx context.Context) error {
	var errs []error
	for i := len(s.steps) - 1; i >= 0; i-- {
		st := s.steps[i]
		if err := st.undo(ctx); err != nil {
			s.log.Error(ctx, "saga compensation failed", "saga", s.name, "step", st.name, "error", err)
			errs = append(errs, fmt.Errorf("undo %s: %w", st.name, err))
		}
	}
	s.steps = nil
	return errors.Join(errs...)
}

// Len is the number of recorded compensations.
func (s *Saga) Len() int {
	return len(s.steps)
}
