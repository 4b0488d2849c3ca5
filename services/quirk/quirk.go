// services/quirk/quirk.go
//
// Shared-IRQ mitigation core: discovers affected I2C host controllers on
// the bus, installs one shared interrupt handler per controller, counts
// deliveries, and publishes the counts as a read-only text endpoint.
package quirk

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"irqhook-go/errcode"
	"irqhook-go/types"
)

const (
	// DefaultEndpoint is the name the diagnostic text is published under.
	DefaultEndpoint = "irqhook"

	// DefaultIRQName is the label passed to the interrupt controller for
	// host-side accounting.
	DefaultIRQName = "irqhook"
)

// Options wires a Service to its host collaborators.
type Options struct {
	Enumerator  types.Enumerator
	Interrupts  types.InterruptController
	Diagnostics types.DiagnosticHost // nil disables the endpoint

	Matcher  *Matcher // nil selects DefaultMatcher
	Capacity int      // <= 0 selects DefaultCapacity

	Endpoint string // "" selects DefaultEndpoint
	IRQName  string // "" selects DefaultIRQName

	Log zerolog.Logger
}

// Service owns the registry for the lifetime of the module. Start and
// Stop are each called once by the host; everything between them is the
// asynchronous interrupt path.
type Service struct {
	enum  types.Enumerator
	intc  types.InterruptController
	diag  types.DiagnosticHost
	match Matcher
	reg   *Registry

	endpoint string
	irqName  string
	log      zerolog.Logger

	started bool
}

// New builds an unstarted service. Enumerator and Interrupts are
// mandatory.
func New(opts Options) *Service {
	m := DefaultMatcher()
	if opts.Matcher != nil {
		m = *opts.Matcher
	}
	diag := opts.Diagnostics
	if diag == nil {
		diag = nopDiag{}
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	irqName := opts.IRQName
	if irqName == "" {
		irqName = DefaultIRQName
	}
	return &Service{
		enum:     opts.Enumerator,
		intc:     opts.Interrupts,
		diag:     diag,
		match:    m,
		reg:      NewRegistry(opts.Capacity),
		endpoint: endpoint,
		irqName:  irqName,
		log:      opts.Log.With().Str("service", "quirk").Logger(),
	}
}

// Start runs discovery, publishes the diagnostic endpoint, then binds
// every controller. Any failure unwinds whatever was already set up and
// propagates; there is no partial operating mode. After a successful
// Start the only remaining activity is handlers incrementing counters.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return &errcode.E{C: errcode.InvalidParams, Op: "quirk.start", Msg: "already started"}
	}

	// A failed Start leaves discovery's records behind; drop them so a
	// retry scans into an empty registry instead of duplicating every
	// controller.
	s.reg = NewRegistry(s.reg.capacity)

	if err := s.discover(ctx); err != nil {
		s.log.Error().Err(err).Msg("discovery failed")
		return err
	}

	if err := s.diag.Publish(s.endpoint, s.Render); err != nil {
		s.log.Error().Err(err).Str("endpoint", s.endpoint).Msg("endpoint registration failed")
		return &errcode.E{C: errcode.EndpointRejected, Op: "quirk.start", Msg: s.endpoint, Err: err}
	}

	if err := s.bindAll(); err != nil {
		// bindAll already unwound its own prefix.
		s.diag.Remove(s.endpoint)
		s.log.Error().Err(err).Msg("interrupt binding failed")
		return err
	}

	s.started = true
	s.log.Info().Int("controllers", s.reg.Len()).Msg("initialized")

	return nil
}

// Stop releases every handler and withdraws the diagnostic endpoint.
// Unconditional, idempotent, cannot fail.
func (s *Service) Stop() {
	s.unbindAll()
	s.diag.Remove(s.endpoint)
	if s.started {
		s.started = false
		s.log.Info().Msg("removed")
	}
}

// nopDiag stands in when the host exposes no diagnostic mechanism.
type nopDiag struct{}

func (nopDiag) Publish(string, func(io.Writer) error) error { return nil }
func (nopDiag) Remove(string)                               {}
