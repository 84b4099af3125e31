// Package shutdown turns termination signals into context cancellation and
// runs cleanup exactly once.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

// Context returns a context cancelled on the first termination signal.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// Hooks runs registered cleanup functions once, in reverse order of
// registration.
type Hooks struct {
	mu   sync.Mutex
	fns  []func()
	once sync.Once
}

func (h *Hooks) Add(fn func()) {
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

func (h *Hooks) Run() {
	h.once.Do(func() {
		h.mu.Lock()
		fns := h.fns
		h.fns = nil
		h.mu.Unlock()
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}
