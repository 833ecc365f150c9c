package linuxjs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"limbrun/internal/device"

	"github.com/fsnotify/fsnotify"
)

// Watcher discovers joystick nodes under dir and reports them to a hub.
type Watcher struct {
	dir    string
	hub    *device.Hub
	logger *slog.Logger
	open   func(path string) (io.ReadCloser, error)

	mu      sync.Mutex
	devices map[string]*Device // by resolved node path
	links   map[string]string  // by-id link path -> resolved node path
}

// NewWatcher returns a watcher for dir, usually /dev/input.
func NewWatcher(dir string, hub *device.Hub, logger *slog.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		hub:     hub,
		logger:  logger,
		open:    func(p string) (io.ReadCloser, error) { return os.Open(p) },
		devices: make(map[string]*Device),
		links:   make(map[string]string),
	}
}

// Scan opens every node currently present.
func (w *Watcher) Scan() error {
	nodes, err := filepath.Glob(filepath.Join(w.dir, "js*"))
	if err != nil {
		return fmt.Errorf("scan %s: %w", w.dir, err)
	}
	for _, n := range nodes {
		w.addNode(n)
	}
	links, err := filepath.Glob(filepath.Join(w.dir, "by-id", "*-joystick"))
	if err != nil {
		return fmt.Errorf("scan by-id: %w", err)
	}
	for _, l := range links {
		if isGamepadLink(filepath.Base(l)) {
			w.addLink(l)
		}
	}
	return nil
}

// Run scans, then follows hot-plug events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	byID := filepath.Join(w.dir, "by-id")
	if err := fw.Add(byID); err != nil {
		w.logger.Debug("by-id not watched", "error", err)
	}
	if err := w.Scan(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			w.closeAll()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("joystick watcher", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	base := filepath.Base(ev.Name)
	inByID := filepath.Base(filepath.Dir(ev.Name)) == "by-id"
	switch {
	case ev.Has(fsnotify.Create) && inByID && isGamepadLink(base):
		w.addLink(ev.Name)
	case ev.Has(fsnotify.Create) && !inByID && strings.HasPrefix(base, "js"):
		w.addNode(ev.Name)
	case ev.Has(fsnotify.Remove) && inByID:
		w.mu.Lock()
		delete(w.links, ev.Name)
		w.mu.Unlock()
	case ev.Has(fsnotify.Remove) && strings.HasPrefix(base, "js"):
		w.removeNode(ev.Name)
	}
}

func isGamepadLink(name string) bool {
	return strings.HasSuffix(name, "-joystick") && !strings.HasSuffix(name, "-event-joystick")
}

// addNode opens a js* node and reports it as a joystick.
func (w *Watcher) addNode(path string) *Device {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		real = path
	}
	w.mu.Lock()
	if d, ok := w.devices[real]; ok {
		w.mu.Unlock()
		return d
	}
	w.mu.Unlock()

	src, err := w.open(real)
	if err != nil {
		w.logger.Warn("open joystick", "path", real, "error", err)
		return nil
	}
	d := newDevice(real, filepath.Base(real), real, src)

	w.mu.Lock()
	w.devices[real] = d
	w.mu.Unlock()

	w.hub.Connect(d, device.Joystick)
	go func() {
		_ = d.readLoop(w.logger)
		w.removeNode(real)
	}()
	return d
}

// addLink reports the node behind a by-id link as a gamepad.
func (w *Watcher) addLink(link string) {
	real, err := filepath.EvalSymlinks(link)
	if err != nil {
		w.logger.Debug("resolve joystick link", "link", link, "error", err)
		return
	}
	d := w.addNode(real)
	if d == nil {
		return
	}
	w.mu.Lock()
	w.links[link] = real
	w.mu.Unlock()
	w.hub.Connect(d, device.Gamepad)
}

func (w *Watcher) removeNode(path string) {
	w.mu.Lock()
	d, ok := w.devices[path]
	if ok {
		delete(w.devices, path)
	}
	w.mu.Unlock()
	if !ok {
		return
	}
	d.close()
	w.hub.Disconnect(d.ID())
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.devices))
	for p := range w.devices {
		paths = append(paths, p)
	}
	w.mu.Unlock()
	for _, p := range paths {
		w.removeNode(p)
	}
}
