// services/quirk/report.go
package quirk

import (
	"fmt"
	"io"
)

// Render writes one "IRQ <line>: <count>" line per controller, in
// registry order. Downstream tooling parses this format; keep it exact.
// Counts are read lock-free, so a render racing deliveries may be a hair
// stale.
func (s *Service) Render(w io.Writer) error {
	for _, c := range s.reg.Controllers() {
		if _, err := fmt.Fprintf(w, "IRQ %d: %d\n", int(c.line), c.count.Load()); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot exposes the registry's current (line, count) pairs for
// consumers that want structured data instead of the rendered text.
func (s *Service) Snapshot() []LineCount {
	return s.reg.Snapshot()
}
