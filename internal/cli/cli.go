// Package cli builds the limbrun commands: the local terminal game and the
// headless server share one configuration surface and one runtime.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"limbrun/internal/audio"
	"limbrun/internal/config"
	"limbrun/internal/device"
	"limbrun/internal/device/linuxjs"
	"limbrun/internal/event"
	"limbrun/internal/game"
	"limbrun/internal/inspect"
	"limbrun/internal/pad"
)

// ReleaseVersion is reported by --version and the inspector.
const ReleaseVersion = "0.4.0"

// Variant selects how a command presents the game.
type Variant struct {
	Use   string
	Short string
	// Headless runs without a terminal screen. The defaults switch to
	// game mode with the pad server and inspector enabled.
	Headless bool
}

// NewCommand returns the root command for v.
func NewCommand(v Variant) *cobra.Command {
	cfg := config.Default()
	if v.Headless {
		cfg.Mode = "game"
		cfg.PadAddr = ":2222"
		cfg.InspectAddr = "127.0.0.1:8080"
		cfg.Audio = false
	}

	var loader *config.Loader
	cmd := &cobra.Command{
		Use:     v.Use,
		Short:   v.Short,
		Args:    cobra.ExactArgs(0),
		Version: ReleaseVersion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loader.Load(); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), cfg, v.Headless)
		},
	}
	loader = config.Register(cmd.Flags(), &cfg)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("limbrun v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// Run starts every configured service and plays until ctx is done or the
// local player quits.
func Run(ctx context.Context, cfg config.Config, headless bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, closeLog, err := newLogger(cfg, headless)
	if err != nil {
		return err
	}
	defer closeLog()

	hub := device.NewHub()
	var ins *inspect.Server
	if cfg.InspectAddr != "" {
		ins = inspect.New(ReleaseVersion, logger)
		go func() {
			if err := ins.ListenAndServe(ctx, cfg.InspectAddr); err != nil {
				logger.Error("inspector stopped", "error", err)
			}
		}()
	}
	if cfg.PadAddr != "" {
		srv := pad.NewServer(pad.Config{Addr: cfg.PadAddr, HostKey: cfg.HostKey, Hold: cfg.KeyHold}, hub, logger)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				logger.Error("pad server stopped", "error", err)
			}
		}()
	}
	if cfg.JoystickDir != "" {
		w := linuxjs.NewWatcher(cfg.JoystickDir, hub, logger)
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("joystick watcher stopped", "dir", cfg.JoystickDir, "error", err)
			}
		}()
	}

	var player audio.Player = audio.Silent{}
	if cfg.Audio {
		sp := audio.NewSpeaker()
		if err := sp.Init(); err != nil {
			logger.Warn("audio disabled", "error", err)
		} else {
			defer sp.Close()
			player = sp
		}
	}

	var screen tcell.Screen
	if !headless {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Fini()
	}

	var observers []event.Handler
	if cfg.Verbose {
		observers = append(observers, event.HandlerFunc(func(ev event.Event) {
			logger.Debug("event", "type", ev.Type, "at", ev.At, "payload", ev.Payload)
		}))
	}

	g, err := game.New(game.Options{
		Config:    cfg,
		Logger:    logger,
		Screen:    screen,
		Hub:       hub,
		Player:    player,
		Inspector: ins,
		Observers: observers,
	})
	if err != nil {
		return err
	}
	logger.Info("limbrun started", "version", ReleaseVersion, "mode", cfg.Mode, "headless", headless)
	return g.Run(ctx)
}

// newLogger writes to cfg.LogFile when set, to stderr when headless, and
// nowhere otherwise because the HUD owns the terminal.
func newLogger(cfg config.Config, headless bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = io.Discard
	closer := func() {}
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = func() { _ = f.Close() }
	case headless:
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closer, nil
}
