// Package irqsim is an in-memory host: a scripted bus enumeration, an
// interrupt controller whose lines are fired by the caller, and a
// diagnostic store that keeps rendered endpoints readable. It backs the
// core's tests and the quirksim demo.
package irqsim

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"irqhook-go/errcode"
	"irqhook-go/types"
)

type registration struct {
	line types.IRQLine
	name string
	h    types.IRQHandler
}

// Host implements types.Enumerator, types.InterruptController and
// types.DiagnosticHost.
type Host struct {
	mu        sync.RWMutex
	devices   []types.DeviceInfo
	lines     map[types.IRQLine][]*registration
	endpoints map[string]func(io.Writer) error

	requests int // RequestIRQ calls seen, successful or not
	failAt   int // 1-based request index to refuse; 0 = never
	failPub  bool
}

// New builds a host whose enumeration returns devices in the given order.
func New(devices ...types.DeviceInfo) *Host {
	return &Host{
		devices:   devices,
		lines:     map[types.IRQLine][]*registration{},
		endpoints: map[string]func(io.Writer) error{},
	}
}

// ---- Enumerator ----

func (h *Host) Enumerate(ctx context.Context) ([]types.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]types.DeviceInfo, len(h.devices))
	copy(out, h.devices)
	return out, nil
}

// ---- InterruptController ----

// FailRequest makes the n-th RequestIRQ call (1-based) fail. Zero
// disables the knob.
func (h *Host) FailRequest(n int) {
	h.mu.Lock()
	h.failAt = n
	h.mu.Unlock()
}

func (h *Host) RequestIRQ(line types.IRQLine, name string, fn types.IRQHandler) (types.ReleaseFunc, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.requests++
	if h.failAt != 0 && h.requests == h.failAt {
		return nil, fmt.Errorf("irqsim: request %d refused", h.requests)
	}

	reg := &registration{line: line, name: name, h: fn}
	h.lines[line] = append(h.lines[line], reg)

	release := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		regs := h.lines[line]
		for i, r := range regs {
			if r == reg {
				h.lines[line] = append(regs[:i], regs[i+1:]...)
				break
			}
		}
		if len(h.lines[line]) == 0 {
			delete(h.lines, line)
		}
	}
	return release, nil
}

// Fire delivers one interrupt on line: every registered handler on that
// line runs once, shared-mode. Safe to call from multiple goroutines.
// Returns how many handlers ran.
func (h *Host) Fire(line types.IRQLine) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.lines[line] {
		r.h()
	}
	return len(h.lines[line])
}

// Bound returns the number of outstanding handler registrations.
func (h *Host) Bound() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, regs := range h.lines {
		n += len(regs)
	}
	return n
}

// Requests returns how many RequestIRQ calls the host has seen.
func (h *Host) Requests() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.requests
}

// ---- DiagnosticHost ----

// FailPublish makes every Publish call fail.
func (h *Host) FailPublish(fail bool) {
	h.mu.Lock()
	h.failPub = fail
	h.mu.Unlock()
}

func (h *Host) Publish(name string, render func(io.Writer) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failPub {
		return fmt.Errorf("irqsim: publish refused")
	}
	if _, exists := h.endpoints[name]; exists {
		return errcode.EndpointRejected
	}
	h.endpoints[name] = render
	return nil
}

func (h *Host) Remove(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.endpoints, name)
}

// ReadEndpoint renders a published endpoint, as the host's diagnostic
// consumer would.
func (h *Host) ReadEndpoint(name string) (string, bool) {
	h.mu.RLock()
	render, ok := h.endpoints[name]
	h.mu.RUnlock()
	if !ok {
		return "", false
	}
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return "", false
	}
	return buf.String(), true
}
