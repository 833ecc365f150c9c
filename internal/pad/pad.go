// Package pad turns SSH terminals into controllers. Every session becomes
// a device.VirtualPad on the hub: left and right keys drive the axis and
// space or enter is the confirm button.
package pad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
	"github.com/google/uuid"

	"limbrun/internal/device"
)

const redrawEvery = 100 * time.Millisecond

// Config controls the pad server.
type Config struct {
	Addr    string
	HostKey string
	// Hold is how long one key press keeps the axis deflected. Terminal
	// key repeat refreshes it while a key is held.
	Hold time.Duration
}

// Server accepts SSH sessions and publishes one pad per session.
type Server struct {
	cfg    Config
	hub    *device.Hub
	logger *slog.Logger
}

// NewServer returns a server that connects pads to hub.
func NewServer(cfg Config, hub *device.Hub, logger *slog.Logger) *Server {
	if cfg.Hold <= 0 {
		cfg.Hold = 150 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, hub: hub, logger: logger}
}

// ListenAndServe runs until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	signer, err := LoadOrCreateHostKey(s.cfg.HostKey, s.logger)
	if err != nil {
		return err
	}
	srv := &gossh.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.handleSession,
		PtyCallback: func(_ gossh.Context, _ gossh.Pty) bool { return true },
		HostSigners: []gossh.Signer{signer},
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("pad: listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, gossh.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("pad server: %w", err)
	case <-ctx.Done():
		_ = srv.Close()
		return nil
	}
}

// handleSession blocks for the life of one connection.
func (s *Server) handleSession(sess gossh.Session) {
	pty, winCh, hasPTY := sess.Pty()
	if !hasPTY {
		fmt.Fprintln(sess, "A controller needs a PTY. Connect with: ssh -t -p <port> <host>")
		return
	}

	tty := newSessionTty(sess, pty, winCh)
	termMu.Lock()
	_ = os.Setenv("TERM", termFor(sess.Environ()))
	screen, err := tcell.NewTerminfoScreenFromTty(tty)
	termMu.Unlock()
	if err != nil {
		fmt.Fprintf(sess, "Terminal setup failed: %v\n", err)
		return
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(sess, "Screen init failed: %v\n", err)
		return
	}
	defer screen.Fini()

	name := sanitizeName(sess.User())
	if name == "" {
		name = "pad"
	}
	p := device.NewVirtualPad("ssh-"+uuid.New().String(), name)
	s.hub.Connect(p, device.Gamepad, device.Joystick)
	s.logger.Info("pad: connected", "id", p.ID(), "name", name, "remote", sess.RemoteAddr().String())
	defer func() {
		p.Disconnect()
		s.hub.Disconnect(p.ID())
		s.logger.Info("pad: disconnected", "id", p.ID())
	}()

	s.run(sess.Context(), screen, p)
}

// termMu guards the process TERM while a terminfo screen is created.
var termMu sync.Mutex

// run pumps key events into p until a quit key or ctx ends.
func (s *Server) run(ctx context.Context, screen tcell.Screen, p *device.VirtualPad) {
	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(redrawEvery)
	defer ticker.Stop()
	draw(screen, p)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if handleKey(p, ev, s.cfg.Hold) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
			draw(screen, p)
		case <-ticker.C:
			draw(screen, p)
		}
	}
}

// handleKey applies one key to p and reports whether the player quit.
func handleKey(p *device.VirtualPad, ev *tcell.EventKey, hold time.Duration) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyLeft:
		p.HoldAxis(-1, hold)
	case tcell.KeyRight:
		p.HoldAxis(1, hold)
	case tcell.KeyEnter:
		p.Tap()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 'h', 'a', 'H', 'A':
			p.HoldAxis(-1, hold)
		case 'l', 'd', 'L', 'D':
			p.HoldAxis(1, hold)
		case ' ':
			p.Tap()
		}
	}
	return false
}

func draw(screen tcell.Screen, p *device.VirtualPad) {
	screen.Clear()
	w, h := screen.Size()
	y := h/2 - 2

	tag := p.Tag()
	title := p.Name() + " is waiting for a limb"
	if tag != "" {
		title = p.Name() + " controls " + tag
	}
	center(screen, w, y, title, tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true))

	st := p.Peek()
	gauge := []rune(strings.Repeat("─", 21))
	gauge[10] = '┼'
	gauge[10+int(st.Axis*10)] = '●'
	center(screen, w, y+2, "["+string(gauge)+"]", tcell.StyleDefault.Foreground(tcell.ColorWhite))
	center(screen, w, y+4, "←/→ or h/l to steer · space to confirm · q to leave",
		tcell.StyleDefault.Foreground(tcell.ColorGray))
	screen.Show()
}

func center(screen tcell.Screen, w, y int, msg string, style tcell.Style) {
	x := max(0, (w-len([]rune(msg)))/2)
	for i, r := range []rune(msg) {
		screen.SetContent(x+i, y, r, nil, style)
	}
}
