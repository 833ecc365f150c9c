package pad

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
)

// sessionTty is a tcell.Tty over one SSH session, so every pad gets its
// own screen.
type sessionTty struct {
	session gossh.Session
	mu      sync.Mutex
	window  gossh.Window
	winCh   <-chan gossh.Window
	cb      func()
}

func newSessionTty(s gossh.Session, pty gossh.Pty, winCh <-chan gossh.Window) *sessionTty {
	return &sessionTty{session: s, window: pty.Window, winCh: winCh}
}

func (t *sessionTty) Read(b []byte) (int, error)  { return t.session.Read(b) }
func (t *sessionTty) Write(b []byte) (int, error) { return t.session.Write(b) }
func (t *sessionTty) Close() error                { return t.session.Close() }

// Start, Stop and Drain have nothing to do: the server handler owns the
// channel and SSH writes are not buffered locally.
func (t *sessionTty) Start() error { return nil }
func (t *sessionTty) Stop() error  { return nil }
func (t *sessionTty) Drain() error { return nil }

func (t *sessionTty) WindowSize() (tcell.WindowSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tcell.WindowSize{Width: t.window.Width, Height: t.window.Height}, nil
}

// NotifyResize stores cb and drains window changes for the life of the
// session.
func (t *sessionTty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.cb = cb
	t.mu.Unlock()

	go func() {
		for win := range t.winCh {
			t.mu.Lock()
			t.window = win
			f := t.cb
			t.mu.Unlock()
			if f != nil {
				f()
			}
		}
	}()
}
