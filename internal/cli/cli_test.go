package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"limbrun/internal/config"
)

func TestVersion(t *testing.T) {
	cmd := NewCommand(Variant{Use: "limbrun"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "limbrun v"+ReleaseVersion+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestInvalidConfigIsRejected(t *testing.T) {
	cmd := NewCommand(Variant{Use: "limbrun"})
	cmd.SetArgs([]string{"--tick=0s"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "tick") {
		t.Errorf("Execute() = %v, want a tick error", err)
	}
}

func TestUnknownFlag(t *testing.T) {
	cmd := NewCommand(Variant{Use: "limbrun"})
	cmd.SetArgs([]string{"--no-such-flag"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for an unknown flag")
	}
}

func TestHeadlessDefaults(t *testing.T) {
	cmd := NewCommand(Variant{Use: "limbrun-server", Headless: true})
	cases := map[string]string{
		"mode":         "game",
		"pad-addr":     ":2222",
		"inspect-addr": "127.0.0.1:8080",
		"audio":        "false",
	}
	for name, want := range cases {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("flag %s missing", name)
		}
		if f.DefValue != want {
			t.Errorf("%s default = %q, want %q", name, f.DefValue, want)
		}
	}

	local := NewCommand(Variant{Use: "limbrun"})
	if got := local.Flags().Lookup("mode").DefValue; got != "debug" {
		t.Errorf("local mode default = %q, want debug", got)
	}
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limbrun.log")
	cfg := config.Default()
	cfg.LogFile = path
	cfg.Verbose = true

	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=hello") || !strings.Contains(string(data), "level=DEBUG") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewLoggerBadPath(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "dir", "x.log")
	if _, _, err := newLogger(cfg, true); err == nil {
		t.Error("expected an error for an unwritable log path")
	}
}
