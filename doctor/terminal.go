package doctor

import (
	"os"

	"coverme/shutdown"

	"golang.org/x/term"
)

// terminal remembers the mode stdin started in, so checks that leave it
// raw (hotkey grabs, audio backends) can be undone.
type terminal struct {
	fd    int
	state *term.State
}

func saveTerminal(f *os.File) *terminal {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil
	}
	return &terminal{fd: fd, state: state}
}

func (t *terminal) restore() {
	if t == nil {
		return
	}
	term.Restore(t.fd, t.state)
}

func (t *terminal) exitOnInterrupt() {
	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	go func() {
		<-sig
		t.restore()
		println("\nInterrupted")
		os.Exit(1)
	}()
}
