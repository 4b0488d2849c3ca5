package types

import (
	"context"
	"io"
)

// Host collaborator contracts. The quirk core is written against these;
// platform/* provides the real implementations and irqsim the scripted one.

// Enumerator exposes the host's bus enumeration. The returned slice is in
// the host's own order; the core imposes no ordering of its own.
type Enumerator interface {
	Enumerate(ctx context.Context) ([]DeviceInfo, error)
}

// InterruptController installs handlers on interrupt lines in shared mode:
// any number of independent registrations may coexist on one line, and the
// host invokes every one of them on each delivery.
type InterruptController interface {
	// RequestIRQ installs h on line. name shows up in host-side
	// accounting, nothing else. The returned release func removes this
	// registration and only this one.
	RequestIRQ(line IRQLine, name string, h IRQHandler) (ReleaseFunc, error)
}

// DiagnosticHost exposes read-only textual endpoints. A query against a
// published name runs render and returns its output verbatim.
type DiagnosticHost interface {
	Publish(name string, render func(io.Writer) error) error
	Remove(name string)
}
