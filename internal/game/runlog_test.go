package game

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSaveRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "limbrun")

	log := RunLog{
		Mode:     "game",
		Victory:  false,
		Rounds:   3,
		Target:   10,
		Played:   42 * time.Second,
		Accuracy: map[string]int{"LeftArm": 80},
	}
	if err := saveRunLog(dir, log); err != nil {
		t.Fatalf("saveRunLog: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("runs.jsonl not created: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"rounds":3`) {
		t.Errorf("log file does not contain rounds; got: %q", content)
	}
	if !strings.HasSuffix(content, "\n") {
		t.Error("log line should end with a newline")
	}
}

func TestSaveRunLogAppendsMultiple(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if err := saveRunLog(dir, RunLog{Rounds: i}); err != nil {
			t.Fatal(err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "runs.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}

func TestSaveRunLogUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := saveRunLog(filepath.Join(file, "sub"), RunLog{}); err == nil {
		t.Error("expected an error when the directory cannot be created")
	}
}
