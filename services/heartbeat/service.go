package heartbeat

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"irqhook-go/services/quirk"
)

// Source is anything that can report per-controller counters; in practice
// the quirk service.
type Source interface {
	Snapshot() []quirk.LineCount
}

// Service periodically logs a counter snapshot, so the diagnostic state
// lands in the journal even when nobody polls the endpoint.
type Service struct {
	Interval time.Duration // <= 0 selects 30s
	Source   Source
	Log      zerolog.Logger
}

func (s *Service) serviceLoop(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := s.Log.With().Str("service", "heartbeat").Logger()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	// loop until context is cancelled, log a snapshot per tick
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("heartbeat service stopping")
			return
		case <-tick.C:
			counts := s.Source.Snapshot()
			arr := zerolog.Arr()
			var total uint64
			for _, lc := range counts {
				arr.Str(strconv.Itoa(int(lc.Line)) + ":" + strconv.FormatUint(lc.Count, 10))
				total += lc.Count
			}
			log.Info().
				Int("controllers", len(counts)).
				Uint64("interrupts", total).
				Array("irq", arr).
				Msg("heartbeat")
		}
	}
}

// Start launches the heartbeat loop.
func (s *Service) Start(ctx context.Context) error {
	go s.serviceLoop(ctx)
	return nil
}
