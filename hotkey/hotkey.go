// Package hotkey provides the global Ctrl+Shift+Space listening toggle.
package hotkey

import "context"

// Binding is the key combination every backend listens for.
const Binding = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Presses emits one value per press of hk. Presses that arrive while the
// previous one is still unconsumed are dropped, so a slow consumer never
// replays a burst of toggles. The channel closes when ctx is done.
func Presses(ctx context.Context, hk Hotkey) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
			}
			select {
			case out <- struct{}{}:
			default:
			}
			select {
			case <-ctx.Done():
				return
			case <-hk.Keyup():
			}
		}
	}()
	return out
}
