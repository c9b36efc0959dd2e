// Package clipboard copies secrets to a clipboard and erases them after a
// timeout, unless the user has copied something else in the meantime.
package clipboard

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/dmitrijs2005/passvault/internal/timex"
)

// Capability is a clipboard the guard can write and read back.
type Capability interface {
	Set(text string) error
	Get() (string, error)
}

type Guard struct {
	cb        Capability
	afterFunc timex.AfterFunc
	log       logging.Logger

	mu    sync.Mutex
	seq   uint64
	timer timex.Timer
}

type GuardOption func(*Guard)

// WithAfterFunc replaces the timer used to schedule erasures.
func WithAfterFunc(f timex.AfterFunc) GuardOption {
	return func(g *Guard) { g.afterFunc = f }
}

func WithLogger(l logging.Logger) GuardOption {
	return func(g *Guard) { g.log = l }
}

func NewGuard(cb Capability, opts ...GuardOption) *Guard {
	g := &Guard{cb: cb, afterFunc: timex.RealAfterFunc, log: logging.Nop()}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Copy writes text and schedules its erasure after timeout. A later Copy or
// Clear supersedes the pending erasure. A non-positive timeout disables it.
func (g *Guard) Copy(text string, timeout time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelLocked()
	if err := g.cb.Set(text); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}

	seq := g.seq
	g.timer = g.afterFunc(timeout, func() { g.expire(seq, text) })
	return nil
}

// expire clears the clipboard only if it still holds text and no newer copy
// was made through the guard.
func (g *Guard) expire(seq uint64, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if seq != g.seq {
		return
	}
	g.timer = nil

	current, err := g.cb.Get()
	if err != nil {
		g.log.Warn(context.Background(), "clipboard read failed", "error", err)
		return
	}
	if current != text {
		return
	}
	if err := g.cb.Set(""); err != nil {
		g.log.Warn(context.Background(), "clipboard clear failed", "error", err)
	}
}

// Clear cancels any pending erasure and empties the clipboard.
func (g *Guard) Clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.cancelLocked()
	return g.cb.Set("")
}

func (g *Guard) cancelLocked() {
	g.seq++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
