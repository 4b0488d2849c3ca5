// services/quirk/scan.go
package quirk

import (
	"context"
	"strconv"

	"irqhook-go/errcode"
)

// discover runs the single enumeration pass: every device the host reports
// is tested against the matcher and matches are appended to the registry
// in enumeration order. No binding happens here.
//
// On overflow the registry keeps the prefix that fit; the caller treats
// the error as fatal and never binds a partial registry.
func (s *Service) discover(ctx context.Context) error {
	devs, err := s.enum.Enumerate(ctx)
	if err != nil {
		return &errcode.E{C: errcode.ScanFailed, Op: "quirk.discover", Err: err}
	}

	s.log.Info().Int("devices", len(devs)).Msg("bus enumeration complete")

	for _, d := range devs {
		if !s.match.Matches(d.Vendor, d.Device) {
			continue
		}
		if _, err := s.reg.Add(d.IRQ); err != nil {
			return &errcode.E{
				C:   errcode.Of(err),
				Op:  "quirk.discover",
				Msg: "too many matching controllers, capacity " + strconv.Itoa(s.reg.capacity),
				Err: err,
			}
		}
		s.log.Info().
			Str("addr", d.Addr).
			Str("id", d.Identity().String()).
			Int("irq", int(d.IRQ)).
			Msg("controller matched")
	}

	s.log.Info().Int("controllers", s.reg.Len()).Msg("discovery complete")

	return nil
}
