// Package inspect serves a small local HTTP API for watching and steering a
// running game: a JSON snapshot, a websocket stream of bus events, and a
// handful of commands the tick loop applies on its own goroutine.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"limbrun/internal/event"
	"limbrun/internal/input"
	"limbrun/internal/limb"
	"limbrun/internal/status"
)

const (
	timeout    = 10 * time.Second
	commandBuf = 16
	clientBuf  = 32
	writeWait  = 2 * time.Second
	maxSkin    = 1 << 10
)

// CommandKind identifies an inspector command.
type CommandKind uint8

const (
	CmdRestart CommandKind = iota
	CmdMode
	CmdAssign
	CmdUnpin
	CmdSkin
)

// Command is a request the tick loop must apply. Only the fields that
// belong to Kind are set.
type Command struct {
	Kind     CommandKind
	Mode     input.Mode
	Slot     limb.Slot
	DeviceID string
	Skin     int
}

// ErrBusy is returned when the command queue is full.
var ErrBusy = errors.New("inspect: command queue full")

// Server is the inspector. HandleEvent and Publish are called from the
// tick goroutine; HTTP handlers run on their own goroutines.
type Server struct {
	version string
	session string
	logger  *slog.Logger

	snap atomic.Pointer[status.Snapshot]
	cmds chan Command

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// The default origin check accepts only pages served from the inspector's
// own host, so other sites in a local browser cannot read the stream.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// New returns a Server with a fresh session id.
func New(version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		version: version,
		session: uuid.New().String(),
		logger:  logger,
		cmds:    make(chan Command, commandBuf),
		clients: make(map[*client]struct{}),
	}
}

// Session is the id stamped on every snapshot served by this process.
func (s *Server) Session() string { return s.session }

// Commands is drained by the tick loop.
func (s *Server) Commands() <-chan Command { return s.cmds }

// Publish replaces the snapshot served by GET /state.
func (s *Server) Publish(snap status.Snapshot) {
	snap.Session = s.session
	s.snap.Store(&snap)
}

// Snapshot returns the last published snapshot.
func (s *Server) Snapshot() (status.Snapshot, bool) {
	p := s.snap.Load()
	if p == nil {
		return status.Snapshot{Session: s.session}, false
	}
	return *p, true
}

// HandleEvent forwards ev to every websocket client. Slow clients are
// dropped instead of stalling the tick.
func (s *Server) HandleEvent(ev event.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("inspect: encode event", "type", ev.Type, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			delete(s.clients, c)
			close(c.send)
		}
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := httprouter.New()
	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error("inspect: handler panic", "path", r.URL.Path, "panic", v)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}

	mux.GET("/healthz", s.serveHealthCheck)
	mux.GET("/version", s.serveVersion)
	mux.GET("/state", s.serveState)
	mux.GET("/events", s.serveEvents)
	mux.PUT("/restart", s.serveRestart)
	mux.PUT("/mode/:mode", s.serveMode)
	mux.PUT("/slots/:slot/device/:id", s.serveAssign)
	mux.DELETE("/slots/:slot/device", s.serveUnpin)
	mux.PUT("/skins/:slot/:index", s.serveSkin)
	return mux
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then closes every client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("inspect: listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		s.closeClients()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.closeClients()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────

func (s *Server) serveHealthCheck(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ok\n"))
}

func (s *Server) serveVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("limbrun v" + s.version + "\n"))
}

func (s *Server) serveState(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	snap, _ := s.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("inspect: write state", "remote", r.RemoteAddr, "error", err)
	}
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("inspect: upgrade", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuf)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go c.writePump()
	s.readPump(c)
}

// readPump discards client messages and unregisters on disconnect.
func (s *Server) readPump(c *client) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[c]; ok {
			delete(s.clients, c)
			close(c.send)
		}
		s.mu.Unlock()
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) serveRestart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.enqueue(w, Command{Kind: CmdRestart})
}

func (s *Server) serveMode(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	mode, ok := input.ParseMode(p.ByName("mode"))
	if !ok {
		http.Error(w, "unknown mode "+strconv.Quote(p.ByName("mode")), http.StatusBadRequest)
		return
	}
	s.enqueue(w, Command{Kind: CmdMode, Mode: mode})
}

func (s *Server) serveAssign(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	slot, err := limb.ParseSlot(p.ByName("slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := p.ByName("id")
	if id == "" {
		http.Error(w, "missing device id", http.StatusBadRequest)
		return
	}
	s.enqueue(w, Command{Kind: CmdAssign, Slot: slot, DeviceID: id})
}

func (s *Server) serveUnpin(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	slot, err := limb.ParseSlot(p.ByName("slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.enqueue(w, Command{Kind: CmdUnpin, Slot: slot})
}

func (s *Server) serveSkin(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	slot, err := limb.ParseSlot(p.ByName("slot"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	idx, err := strconv.Atoi(p.ByName("index"))
	if err != nil || idx < 0 || idx > maxSkin {
		http.Error(w, "invalid skin index", http.StatusBadRequest)
		return
	}
	s.enqueue(w, Command{Kind: CmdSkin, Slot: slot, Skin: idx})
}

func (s *Server) enqueue(w http.ResponseWriter, cmd Command) {
	select {
	case s.cmds <- cmd:
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, ErrBusy.Error(), http.StatusServiceUnavailable)
	}
}
