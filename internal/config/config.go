// Package config holds every tunable of a game process and binds it to
// command-line flags, LIMBRUN_* environment variables, an optional .env
// file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"limbrun/internal/hiding"
	"limbrun/internal/input"
	"limbrun/internal/phase"
	"limbrun/internal/qte"
	"limbrun/internal/rhythm"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "LIMBRUN"

// AppName names the XDG subdirectories.
const AppName = "limbrun"

// Config is the full process configuration.
type Config struct {
	Mode string
	Tick time.Duration

	Phase  phase.Config
	Rhythm rhythm.Config
	QTE    qte.Config
	Hiding hiding.Config

	LockKeys string
	KeyHold  time.Duration

	PadAddr     string
	HostKey     string
	JoystickDir string
	InspectAddr string

	SkinsFile string
	RunLogDir string
	Audio     bool

	LogFile string
	Verbose bool

	ConfigFile string
	EnvFile    string
}

// Default returns the stock configuration. Network listeners are off.
func Default() Config {
	return Config{
		Mode:        "debug",
		Tick:        time.Second / 60,
		Phase:       phase.DefaultConfig(),
		Rhythm:      rhythm.DefaultConfig(),
		QTE:         qte.DefaultConfig(),
		Hiding:      hiding.DefaultConfig(),
		LockKeys:    input.DefaultLockKeys,
		KeyHold:     input.DefaultHold,
		HostKey:     "limbrun_host_key",
		JoystickDir: "/dev/input",
		SkinsFile:   filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "skins.toml"),
		RunLogDir:   xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")),
		Audio:       true,
		EnvFile:     ".env",
	}
}

// xdgDir resolves $env/limbrun, falling back to ~/<fallback>/limbrun.
func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, AppName)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, ok := input.ParseMode(c.Mode); !ok {
		return fmt.Errorf("invalid mode %q (must be debug or game)", c.Mode)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("invalid tick %v (must be positive)", c.Tick)
	}
	if c.KeyHold <= 0 {
		return fmt.Errorf("invalid key hold %v (must be positive)", c.KeyHold)
	}
	if _, err := input.Bindings(c.LockKeys); err != nil {
		return err
	}
	var errs []error
	for _, v := range []interface{ Validate() error }{c.Phase, c.Rhythm, c.QTE, c.Hiding} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ParsedMode returns the validated input mode.
func (c *Config) ParsedMode() input.Mode {
	m, _ := input.ParseMode(c.Mode)
	return m
}

// Loader fills unset flags from the environment and config files.
type Loader struct {
	v   *viper.Viper
	fs  *pflag.FlagSet
	cfg *Config
}

// Register adds a flag for every field of cfg, using the current values as
// defaults.
func Register(fs *pflag.FlagSet, cfg *Config) *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Mode, "mode", "m", cfg.Mode, "input mode, debug or game (env: LIMBRUN_MODE)")
	fs.DurationVar(&cfg.Tick, "tick", cfg.Tick, "simulation step (env: LIMBRUN_TICK)")

	fs.DurationVar(&cfg.Phase.RunningDuration, "running-duration", cfg.Phase.RunningDuration, "length of each running phase (env: LIMBRUN_RUNNING_DURATION)")
	fs.DurationVar(&cfg.Phase.TransitionDelay, "transition-delay", cfg.Phase.TransitionDelay, "pause between phases (env: LIMBRUN_TRANSITION_DELAY)")
	fs.IntVar(&cfg.Phase.TargetRounds, "target-rounds", cfg.Phase.TargetRounds, "rounds needed to win (env: LIMBRUN_TARGET_ROUNDS)")
	fs.IntVar(&cfg.Phase.Lives, "lives", cfg.Phase.Lives, "failures allowed, 0 for unlimited (env: LIMBRUN_LIVES)")
	fs.BoolVar(&cfg.Phase.IncreaseDifficulty, "increase-difficulty", cfg.Phase.IncreaseDifficulty, "raise difficulty after each hidden wall (env: LIMBRUN_INCREASE_DIFFICULTY)")
	fs.Float64Var(&cfg.Phase.DifficultyStep, "difficulty-step", cfg.Phase.DifficultyStep, "difficulty multiplier per hidden wall (env: LIMBRUN_DIFFICULTY_STEP)")

	fs.DurationVar(&cfg.Rhythm.BaseInterval, "prompt-interval", cfg.Rhythm.BaseInterval, "initial time between prompts (env: LIMBRUN_PROMPT_INTERVAL)")
	fs.DurationVar(&cfg.Rhythm.Window, "prompt-window", cfg.Rhythm.Window, "prompt response window at difficulty 1 (env: LIMBRUN_PROMPT_WINDOW)")
	fs.Float64Var(&cfg.Rhythm.IntervalDecay, "interval-decay", cfg.Rhythm.IntervalDecay, "seconds of interval removed per second of running (env: LIMBRUN_INTERVAL_DECAY)")
	fs.IntVar(&cfg.Rhythm.Targets, "targets", cfg.Rhythm.Targets, "number of selectable targets (env: LIMBRUN_TARGETS)")

	fs.DurationVar(&cfg.QTE.Countdown, "countdown", cfg.QTE.Countdown, "sync challenge countdown (env: LIMBRUN_COUNTDOWN)")
	fs.DurationVar(&cfg.QTE.Window, "qte-window", cfg.QTE.Window, "sync challenge press window (env: LIMBRUN_QTE_WINDOW)")
	fs.DurationVar(&cfg.QTE.SyncWindow, "sync-window", cfg.QTE.SyncWindow, "largest press spread that counts as synced (env: LIMBRUN_SYNC_WINDOW)")
	fs.DurationVar(&cfg.QTE.ResolveDelay, "resolve-delay", cfg.QTE.ResolveDelay, "time the sync verdict stays on screen (env: LIMBRUN_RESOLVE_DELAY)")

	fs.DurationVar(&cfg.Hiding.Duration, "hiding-duration", cfg.Hiding.Duration, "time to match a pose (env: LIMBRUN_HIDING_DURATION)")

	fs.StringVar(&cfg.LockKeys, "lock-keys", cfg.LockKeys, "debug confirm keys in slot order (env: LIMBRUN_LOCK_KEYS)")
	fs.DurationVar(&cfg.KeyHold, "key-hold", cfg.KeyHold, "axis hold per key press (env: LIMBRUN_KEY_HOLD)")

	fs.StringVar(&cfg.PadAddr, "pad-addr", cfg.PadAddr, "SSH controller listen address, empty to disable (env: LIMBRUN_PAD_ADDR)")
	fs.StringVar(&cfg.HostKey, "host-key", cfg.HostKey, "SSH host key path, created if absent (env: LIMBRUN_HOST_KEY)")
	fs.StringVar(&cfg.JoystickDir, "joystick-dir", cfg.JoystickDir, "directory watched for js* devices, empty to disable (env: LIMBRUN_JOYSTICK_DIR)")
	fs.StringVar(&cfg.InspectAddr, "inspect-addr", cfg.InspectAddr, "inspector listen address, empty to disable (env: LIMBRUN_INSPECT_ADDR)")

	fs.StringVar(&cfg.SkinsFile, "skins-file", cfg.SkinsFile, "limb skin store (env: LIMBRUN_SKINS_FILE)")
	fs.StringVar(&cfg.RunLogDir, "run-log", cfg.RunLogDir, "directory for runs.jsonl, empty to disable (env: LIMBRUN_RUN_LOG)")
	fs.BoolVar(&cfg.Audio, "audio", cfg.Audio, "play sound cues (env: LIMBRUN_AUDIO)")

	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file (env: LIMBRUN_LOG_FILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log at debug level (env: LIMBRUN_VERBOSE)")

	fs.StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "toml, yaml or json config file (env: LIMBRUN_CONFIG)")
	fs.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "dotenv file loaded before the environment is read (env: LIMBRUN_ENV_FILE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
	})

	return &Loader{v: v, fs: fs, cfg: cfg}
}

// Load applies the dotenv file, then the config file, then the
// environment to every flag not given on the command line. Call it after
// the flags are parsed.
func (l *Loader) Load() error {
	if err := l.loadEnvFile(); err != nil {
		return err
	}

	if path := l.lookup("config"); path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var errs []error
	l.fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !l.v.IsSet(f.Name) {
			return
		}
		if err := l.fs.Set(f.Name, fmt.Sprintf("%v", l.v.Get(f.Name))); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

func (l *Loader) loadEnvFile() error {
	path := l.lookup("env-file")
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// lookup resolves a flag from the command line or the environment only.
func (l *Loader) lookup(name string) string {
	if f := l.fs.Lookup(name); f != nil && f.Changed {
		return f.Value.String()
	}
	if s, ok := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))); ok {
		return s
	}
	if f := l.fs.Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}
