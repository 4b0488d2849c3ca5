package quirk_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"irqhook-go/errcode"
	"irqhook-go/platform/irqsim"
	"irqhook-go/services/quirk"
	"irqhook-go/types"
)

func newService(t *testing.T, sim *irqsim.Host, tweak func(*quirk.Options)) *quirk.Service {
	t.Helper()
	opts := quirk.Options{
		Enumerator:  sim,
		Interrupts:  sim,
		Diagnostics: sim,
		Log:         zerolog.Nop(),
	}
	if tweak != nil {
		tweak(&opts)
	}
	return quirk.New(opts)
}

func matchingDevice(n int, line types.IRQLine) types.DeviceInfo {
	return types.DeviceInfo{
		Addr:   "0000:00:15." + string(rune('0'+n%8)),
		Vendor: 0x8086,
		Device: 0x51e8,
		IRQ:    line,
	}
}

func TestStartDiscoversExactlyTheAllowList(t *testing.T) {
	sim := irqsim.New(
		types.DeviceInfo{Addr: "0000:00:15.0", Vendor: 0x8086, Device: 0x51e8, IRQ: 16},
		types.DeviceInfo{Addr: "0000:00:1f.4", Vendor: 0x8086, Device: 0x0000, IRQ: 17},
		types.DeviceInfo{Addr: "0000:00:19.0", Vendor: 0x8086, Device: 0x51e9, IRQ: 18},
	)
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	snap := svc.Snapshot()
	require.Equal(t, []quirk.LineCount{{Line: 16}, {Line: 18}}, snap,
		"only allow-listed devices, in enumeration order")
	require.Equal(t, 2, sim.Bound())

	// Deliveries land on the right records, and the bystander line is dead.
	for i := 0; i < 3; i++ {
		sim.Fire(16)
	}
	sim.Fire(18)
	require.Zero(t, sim.Fire(17))

	text, ok := sim.ReadEndpoint(quirk.DefaultEndpoint)
	require.True(t, ok)
	require.Equal(t, "IRQ 16: 3\nIRQ 18: 1\n", text)
}

func TestStartCapacityExceeded(t *testing.T) {
	devs := make([]types.DeviceInfo, 0, 17)
	for i := 0; i < 17; i++ {
		devs = append(devs, matchingDevice(i, types.IRQLine(20+i)))
	}
	sim := irqsim.New(devs...)
	svc := newService(t, sim, nil)

	err := svc.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.CapacityExceeded, errcode.Of(err))

	// The registry kept the prefix, but nothing downstream happened:
	// binding was never attempted and no endpoint was exposed.
	require.Len(t, svc.Snapshot(), 16)
	require.Zero(t, sim.Requests())
	_, ok := sim.ReadEndpoint(quirk.DefaultEndpoint)
	require.False(t, ok)
}

func TestBindFailureRollsBackPrefix(t *testing.T) {
	sim := irqsim.New(
		matchingDevice(0, 16),
		matchingDevice(1, 17),
		matchingDevice(2, 18),
	)
	sim.FailRequest(3)
	svc := newService(t, sim, nil)

	err := svc.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.BindRefused, errcode.Of(err))

	require.Zero(t, sim.Bound(), "no dangling registrations after a failed bind")
	_, ok := sim.ReadEndpoint(quirk.DefaultEndpoint)
	require.False(t, ok, "endpoint must be withdrawn when binding fails")

	// Nothing is bound, so deliveries must not increment anything.
	sim.Fire(16)
	require.Equal(t, []quirk.LineCount{{Line: 16}, {Line: 17}, {Line: 18}}, svc.Snapshot())
}

func TestEndpointRejectionIsFatal(t *testing.T) {
	sim := irqsim.New(matchingDevice(0, 16))
	sim.FailPublish(true)
	svc := newService(t, sim, nil)

	err := svc.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.EndpointRejected, errcode.Of(err))
	require.Zero(t, sim.Bound())
}

func TestStopIsIdempotent(t *testing.T) {
	sim := irqsim.New(matchingDevice(0, 16), matchingDevice(1, 18))
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))

	sim.Fire(16)
	svc.Stop()
	require.Zero(t, sim.Bound())

	// A second Stop, and deliveries while unbound, change nothing.
	svc.Stop()
	sim.Fire(16)
	require.Equal(t, []quirk.LineCount{{Line: 16, Count: 1}, {Line: 18}}, svc.Snapshot())
}

func TestDoubleStartRefused(t *testing.T) {
	sim := irqsim.New(matchingDevice(0, 16))
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	err := svc.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.InvalidParams, errcode.Of(err))
}

func TestSharedLineOverCounts(t *testing.T) {
	// Two matched controllers on one line: every delivery is attributed
	// to both, because neither handler can tell whose event it was.
	sim := irqsim.New(matchingDevice(0, 16), matchingDevice(1, 16))
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Equal(t, 2, sim.Fire(16))
	require.Equal(t, []quirk.LineCount{{Line: 16, Count: 1}, {Line: 16, Count: 1}}, svc.Snapshot())
}

func TestConcurrentDeliveriesAreNotLost(t *testing.T) {
	const workers = 8
	const perWorker = 2000

	sim := irqsim.New(matchingDevice(0, 16))
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				sim.Fire(16)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(workers*perWorker), svc.Snapshot()[0].Count)
}

func TestRestartAfterFailureDoesNotDuplicate(t *testing.T) {
	sim := irqsim.New(matchingDevice(0, 16), matchingDevice(1, 18))
	sim.FailRequest(1)
	svc := newService(t, sim, nil)

	err := svc.Start(context.Background())
	require.Equal(t, errcode.BindRefused, errcode.Of(err))

	// The retry must scan into a fresh registry, not append a second
	// copy of every controller to the leftovers.
	sim.FailRequest(0)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.Equal(t, []quirk.LineCount{{Line: 16}, {Line: 18}}, svc.Snapshot())
	require.Equal(t, 2, sim.Bound())

	sim.Fire(16)
	require.Equal(t, []quirk.LineCount{{Line: 16, Count: 1}, {Line: 18}}, svc.Snapshot())
}

func TestRenderEmptyRegistry(t *testing.T) {
	sim := irqsim.New(
		types.DeviceInfo{Addr: "0000:00:02.0", Vendor: 0x8086, Device: 0x46a6, IRQ: 190},
	)
	svc := newService(t, sim, nil)
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	var buf bytes.Buffer
	require.NoError(t, svc.Render(&buf))
	require.Empty(t, buf.String())
}

func TestCustomMatcherAndCapacity(t *testing.T) {
	m := quirk.NewMatcher(types.Identity{Vendor: 0x1234, Device: 0x5678})
	sim := irqsim.New(
		types.DeviceInfo{Addr: "0000:01:00.0", Vendor: 0x1234, Device: 0x5678, IRQ: 40},
		types.DeviceInfo{Addr: "0000:02:00.0", Vendor: 0x1234, Device: 0x5678, IRQ: 41},
	)
	svc := newService(t, sim, func(o *quirk.Options) {
		o.Matcher = &m
		o.Capacity = 1
	})

	err := svc.Start(context.Background())
	require.Equal(t, errcode.CapacityExceeded, errcode.Of(err))
	require.Len(t, svc.Snapshot(), 1)
}
