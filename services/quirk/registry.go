// services/quirk/registry.go
package quirk

import (
	"sync/atomic"

	"irqhook-go/errcode"
	"irqhook-go/types"
)

// DefaultCapacity bounds the registry. A typical system carries 4-6 of
// these controllers, so 16 must be enough.
const DefaultCapacity = 16

// Controller is one discovered controller. The line is fixed at discovery
// time; the counter is touched only by the bound interrupt handler; the
// release action is nil while unbound.
type Controller struct {
	line    types.IRQLine
	count   atomic.Uint64
	release types.ReleaseFunc
}

// Line returns the controller's interrupt line.
func (c *Controller) Line() types.IRQLine { return c.line }

// Count returns the number of interrupt deliveries attributed to this
// controller so far. Best-effort read; concurrent deliveries may land
// between the load and whatever the caller does with the value.
func (c *Controller) Count() uint64 { return c.count.Load() }

// isr is the interrupt service routine bound to this controller. It runs
// in the host's delivery context: the atomic increment is the only
// permitted side effect.
func (c *Controller) isr() types.IRQResult {
	c.count.Add(1)
	return types.IRQHandled
}

func (c *Controller) bound() bool { return c.release != nil }

// LineCount is a read-only (line, count) pair for diagnostic consumers.
type LineCount struct {
	Line  types.IRQLine
	Count uint64
}

// Registry holds discovered controllers in discovery order, up to a fixed
// capacity. It is populated once during the single-threaded start-up pass
// and structurally frozen afterwards; only the counters move.
type Registry struct {
	capacity    int
	controllers []*Controller
}

// NewRegistry creates an empty registry. capacity <= 0 selects
// DefaultCapacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity:    capacity,
		controllers: make([]*Controller, 0, capacity),
	}
}

// Add appends a controller for line. The append itself reports overflow:
// a registry already holding capacity records refuses the next one with
// errcode.CapacityExceeded and stays unchanged.
func (r *Registry) Add(line types.IRQLine) (*Controller, error) {
	if len(r.controllers) == r.capacity {
		return nil, errcode.CapacityExceeded
	}
	c := &Controller{line: line}
	r.controllers = append(r.controllers, c)
	return c, nil
}

// Len returns the number of discovered controllers.
func (r *Registry) Len() int { return len(r.controllers) }

// Controllers returns the records in discovery order. Callers must not
// mutate the slice.
func (r *Registry) Controllers() []*Controller { return r.controllers }

// Snapshot returns the current (line, count) pairs in discovery order.
// Counts are loaded atomically but not mutually consistent; slightly stale
// values are fine for the diagnostic surface.
func (r *Registry) Snapshot() []LineCount {
	out := make([]LineCount, len(r.controllers))
	for i, c := range r.controllers {
		out[i] = LineCount{Line: c.line, Count: c.count.Load()}
	}
	return out
}
