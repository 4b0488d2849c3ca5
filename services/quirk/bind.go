// services/quirk/bind.go
package quirk

import (
	"strconv"

	"irqhook-go/errcode"
)

// bindAll installs a shared handler for every controller, in registry
// order. Each success leaves its release action on the record, so the
// deferred guard can unwind exactly the prefix already bound when any
// installation is refused. Either every record ends bound or none does.
func (s *Service) bindAll() (err error) {
	defer func() {
		if err != nil {
			s.unbindAll()
		}
	}()

	for _, c := range s.reg.Controllers() {
		release, rerr := s.intc.RequestIRQ(c.line, s.irqName, c.isr)
		if rerr != nil {
			return &errcode.E{
				C:   errcode.BindRefused,
				Op:  "quirk.bind",
				Msg: "irq " + strconv.Itoa(int(c.line)),
				Err: rerr,
			}
		}
		c.release = release
	}

	return nil
}

// unbindAll releases every bound handler. Records that were never bound,
// or were already released, are no-ops, so the call is idempotent and
// always safe during shutdown or after a failed bindAll.
func (s *Service) unbindAll() {
	for _, c := range s.reg.Controllers() {
		if !c.bound() {
			continue
		}
		c.release()
		c.release = nil
	}
}
