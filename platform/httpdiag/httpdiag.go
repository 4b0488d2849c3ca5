// Package httpdiag exposes diagnostic endpoints over plain HTTP: a
// published name becomes GET /<name> returning the rendered text
// verbatim.
package httpdiag

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"irqhook-go/errcode"
)

// Host implements types.DiagnosticHost over an HTTP listener.
type Host struct {
	log zerolog.Logger
	srv *http.Server

	mu        sync.RWMutex
	endpoints map[string]func(io.Writer) error
}

// New builds a host listening on addr once Run is called.
func New(addr string, log zerolog.Logger) *Host {
	h := &Host{
		log:       log.With().Str("component", "httpdiag").Logger(),
		endpoints: map[string]func(io.Writer) error{},
	}
	h.srv = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Publish mounts render under /<name>. A name already in use is refused.
func (h *Host) Publish(name string, render func(io.Writer) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.endpoints[name]; exists {
		return &errcode.E{C: errcode.EndpointRejected, Op: "httpdiag.publish", Msg: name}
	}
	h.endpoints[name] = render
	h.log.Info().Str("endpoint", "/"+name).Msg("endpoint published")
	return nil
}

// Remove unmounts name. Unknown names are a no-op.
func (h *Host) Remove(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.endpoints, name)
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.Trim(r.URL.Path, "/")

	h.mu.RLock()
	render, ok := h.endpoints[name]
	h.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	// Render to a buffer first so a mid-render failure can still turn
	// into a clean 500 instead of a truncated body.
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (h *Host) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.srv.ListenAndServe()
	}()
	h.log.Info().Str("addr", h.srv.Addr).Msg("listening")

	select {
	case <-ctx.Done():
		shctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = h.srv.Shutdown(shctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
