// Package procirq implements a userspace interrupt controller on top of
// /proc/interrupts. It cannot hook lines the way a kernel driver would;
// instead it polls the per-line delivery totals and replays each observed
// delta into every handler registered on that line, shared-mode.
package procirq

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"irqhook-go/types"
)

const (
	// DefaultPath is the kernel's interrupt accounting file.
	DefaultPath = "/proc/interrupts"

	// DefaultInterval is the poll period.
	DefaultInterval = 50 * time.Millisecond

	// deltaCap bounds how many deliveries a single poll replays per
	// line, so a slow poller behind a storm does not spin for seconds.
	deltaCap = 1 << 16
)

type registration struct {
	name string
	h    types.IRQHandler
}

type lineState struct {
	total    uint64
	seen     bool
	handlers []*registration
}

// Controller polls interrupt totals and dispatches deltas. Implements
// types.InterruptController.
type Controller struct {
	path     string
	interval time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	lines map[types.IRQLine]*lineState

	stopped chan struct{}
}

// New builds a controller. Empty path and zero interval select the
// defaults.
func New(path string, interval time.Duration, log zerolog.Logger) *Controller {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		path:     path,
		interval: interval,
		log:      log.With().Str("component", "procirq").Logger(),
		lines:    map[types.IRQLine]*lineState{},
		stopped:  make(chan struct{}),
	}
}

// Start launches the poll loop. It runs until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) {
	go func() {
		defer close(c.stopped)
		tick := time.NewTicker(c.interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if err := c.poll(); err != nil {
					c.log.Warn().Err(err).Msg("poll failed")
				}
			}
		}
	}()
}

// Stopped is closed once the poll loop has exited.
func (c *Controller) Stopped() <-chan struct{} { return c.stopped }

// RequestIRQ registers h on line. The baseline total for a line is taken
// on the next poll after its first registration, so deliveries that
// predate the registration are never replayed.
func (c *Controller) RequestIRQ(line types.IRQLine, name string, h types.IRQHandler) (types.ReleaseFunc, error) {
	if h == nil {
		return nil, fmt.Errorf("procirq: nil handler for irq %d", int(line))
	}

	reg := &registration{name: name, h: h}

	c.mu.Lock()
	st := c.lines[line]
	if st == nil {
		st = &lineState{}
		c.lines[line] = st
	}
	st.handlers = append(st.handlers, reg)
	c.mu.Unlock()

	c.log.Debug().Int("irq", int(line)).Str("name", name).Msg("handler installed")

	release := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		st := c.lines[line]
		if st == nil {
			return
		}
		for i, r := range st.handlers {
			if r == reg {
				st.handlers = append(st.handlers[:i], st.handlers[i+1:]...)
				break
			}
		}
		if len(st.handlers) == 0 {
			delete(c.lines, line)
		}
	}
	return release, nil
}

// poll reads the current totals and replays deltas. Dispatch happens
// under the lock: handlers are contractually non-blocking, and holding it
// keeps a released handler from firing after its release returns.
func (c *Controller) poll() error {
	totals, err := readTotals(c.path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for line, st := range c.lines {
		total, ok := totals[line]
		if !ok {
			continue
		}
		if !st.seen {
			st.total = total
			st.seen = true
			continue
		}
		if total < st.total {
			// Counter went backwards (hotplug renumbering); re-baseline.
			st.total = total
			continue
		}
		delta := total - st.total
		st.total = total
		if delta > deltaCap {
			delta = deltaCap
		}
		for i := uint64(0); i < delta; i++ {
			for _, r := range st.handlers {
				r.h()
			}
		}
	}
	return nil
}

// readTotals parses /proc/interrupts into per-line totals summed over all
// CPUs. Lines whose label is not a plain IRQ number (NMI, LOC, ...) are
// ignored.
func readTotals(path string) (map[types.IRQLine]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("procirq: %w", err)
	}
	defer f.Close()

	totals := map[types.IRQLine]uint64{}
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		if first {
			// CPU header row.
			first = false
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		label := strings.TrimSuffix(fields[0], ":")
		n, err := strconv.Atoi(label)
		if err != nil {
			continue
		}
		var sum uint64
		for _, fld := range fields[1:] {
			v, err := strconv.ParseUint(fld, 10, 64)
			if err != nil {
				// First non-numeric column starts the chip/device names.
				break
			}
			sum += v
		}
		totals[types.IRQLine(n)] = sum
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("procirq: scanning %s: %w", path, err)
	}
	return totals, nil
}
