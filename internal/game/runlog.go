package game

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunLog records one finished game.
type RunLog struct {
	Timestamp  time.Time      `json:"timestamp"`
	Session    string         `json:"session,omitempty"`
	Mode       string         `json:"mode"`
	Victory    bool           `json:"victory"`
	Rounds     int            `json:"rounds"`
	Target     int            `json:"target_rounds"`
	Difficulty float64        `json:"difficulty"`
	Played     time.Duration  `json:"played"`
	Accuracy   map[string]int `json:"accuracy"`
	Hits       int            `json:"hits"`
	Misses     int            `json:"misses"`
}

// saveRunLog appends log as one JSON line to dir/runs.jsonl.
func saveRunLog(dir string, log RunLog) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, "runs.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}
	data = append(data, '\n')
	_, err = f.Write(data)
	return err
}
