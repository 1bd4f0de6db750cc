package record

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Outcome is what a single key press means while recording.
type Outcome int

const (
	Continue Outcome = iota
	Stop
	Cancel
)

func (o Outcome) String() string {
	switch o {
	case Stop:
		return "stop"
	case Cancel:
		return "cancel"
	default:
		return "continue"
	}
}

const (
	keyEnterCR = '\r'
	keyEnterLF = '\n'
	keyEscape  = 0x1b
	keyCtrlC   = 0x03
)

// Classify maps a key byte to an Outcome. Enter stops and submits, Escape
// (or Ctrl+C, which raw mode delivers as a byte) cancels, anything else is ignored.
func Classify(b byte) Outcome {
	switch b {
	case keyEnterCR, keyEnterLF:
		return Stop
	case keyEscape, keyCtrlC:
		return Cancel
	default:
		return Continue
	}
}

// TerminalInput reads single key presses from a terminal in raw mode.
type TerminalInput struct {
	f     *os.File
	state *term.State
}

// OpenTerminal switches f to raw mode when it is a terminal. When it is not
// (piped input, tests) bytes are read unchanged and Enter arrives as '\n'.
func OpenTerminal(f *os.File) (*TerminalInput, error) {
	t := &TerminalInput{f: f}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return t, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	t.state = state
	return t, nil
}

// Raw reports whether the terminal was switched to raw mode.
func (t *TerminalInput) Raw() bool {
	return t.state != nil
}

// Read reads from the underlying file without buffering so nothing typed after
// the stop key is swallowed.
func (t *TerminalInput) Read(p []byte) (int, error) {
	return t.f.Read(p)
}

// Restore puts the terminal back into its original mode. It is safe to call twice.
func (t *TerminalInput) Restore() error {
	if t.state == nil {
		return nil
	}
	err := term.Restore(int(t.f.Fd()), t.state)
	t.state = nil
	return err
}

// readKeys sends the first decisive Outcome (or read error) read from r.
func readKeys(r io.Reader, out chan<- keyEvent) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if o := Classify(buf[0]); o != Continue {
				out <- keyEvent{outcome: o}
				return
			}
		}
		if err != nil {
			out <- keyEvent{err: err}
			return
		}
	}
}

type keyEvent struct {
	outcome Outcome
	err     error
}
