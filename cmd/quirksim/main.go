// cmd/quirksim/main.go
//
// quirksim exercises the quirk core against the in-memory host: a
// scripted bus with two matching controllers and one bystander, a burst
// of simulated deliveries, and the rendered endpoint printed to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"irqhook-go/platform/irqsim"
	"irqhook-go/services/quirk"
	"irqhook-go/types"
)

const (
	burstPerLine = 64
	burstWorkers = 8
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "quirksim").Logger()

	sim := irqsim.New(
		types.DeviceInfo{Addr: "0000:00:15.0", Vendor: 0x8086, Device: 0x51e8, IRQ: 16},
		types.DeviceInfo{Addr: "0000:00:1f.4", Vendor: 0x8086, Device: 0x0000, IRQ: 17},
		types.DeviceInfo{Addr: "0000:00:19.0", Vendor: 0x8086, Device: 0x51e9, IRQ: 18},
	)

	svc := quirk.New(quirk.Options{
		Enumerator:  sim,
		Interrupts:  sim,
		Diagnostics: sim,
		Log:         log,
	})
	if err := svc.Start(context.Background()); err != nil {
		log.Error().Err(err).Msg("initialization failed")
		os.Exit(1)
	}
	defer svc.Stop()

	// Concurrent delivery bursts on both bound lines.
	var wg sync.WaitGroup
	for _, line := range []types.IRQLine{16, 18} {
		for w := 0; w < burstWorkers; w++ {
			wg.Add(1)
			go func(line types.IRQLine) {
				defer wg.Done()
				for i := 0; i < burstPerLine/burstWorkers; i++ {
					sim.Fire(line)
				}
			}(line)
		}
	}
	wg.Wait()

	text, ok := sim.ReadEndpoint(quirk.DefaultEndpoint)
	if !ok {
		log.Error().Msg("endpoint missing")
		os.Exit(1)
	}
	fmt.Print(text)
}
