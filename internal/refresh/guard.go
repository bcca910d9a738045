package refresh

import (
	"context"

	"go.uber.org/atomic"
)

// Guard lets a single operation run at a time. Callers arriving while one is
// running are turned away with ErrSkipped rather than queued.
type Guard struct {
	inFlight atomic.Bool
}

// RunExclusive runs op unless another op is in flight. The in-flight flag is
// cleared on every exit path, panics included.
func (g *Guard) RunExclusive(ctx context.Context, op func(ctx context.Context) error) error {
	if !g.inFlight.CAS(false, true) {
		return ErrSkipped
	}
	defer g.inFlight.Store(false)

	return op(ctx)
}

// InFlight reports whether an operation is currently running.
func (g *Guard) InFlight() bool {
	return g.inFlight.Load()
}
