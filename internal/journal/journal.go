package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry types written to the journal.
const (
	EntryRunStart = "run_start"
	EntryTrade    = "trade"
	EntryRunEnd   = "run_end"
)

// Entry wraps one journal line.
type Entry struct {
	Type string    `json:"type"`
	Data any       `json:"data"`
	At   time.Time `json:"at"`
}

// RawEntry is the read-back form; Data stays unparsed.
type RawEntry struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	At   time.Time       `json:"at"`
}

// RunStart opens a run section in the journal.
type RunStart struct {
	Name         string  `json:"name"`
	InitialCash  float64 `json:"initial_cash"`
	SizingMode   string  `json:"sizing_mode"`
	Seed         uint64  `json:"seed"`
	Observations int     `json:"observations"`
}

// RunEnd closes a run section.
type RunEnd struct {
	FinalEquity float64 `json:"final_equity"`
	TotalReturn float64 `json:"total_return"`
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Writer appends run entries to a JSONL file. Successive runs share the
// file; each opens with a run_start line.
type Writer struct {
	path string
	now  func() time.Time
}

func NewWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Writer{
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (w *Writer) Write(entryType string, data any) error {
	b, err := json.Marshal(Entry{Type: entryType, Data: data, At: w.now()})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(b, '\n'))
	return err
}

// Read returns every entry in the journal, oldest first. Malformed lines
// are skipped.
func Read(path string) ([]RawEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var entries []RawEntry
	for _, line := range splitLines(string(data)) {
		if line == "" {
			continue
		}
		var e RawEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// LastRun returns the entries of the most recent run section, from its
// run_start line onward.
func LastRun(path string) ([]RawEntry, error) {
	entries, err := Read(path)
	if err != nil {
		return nil, err
	}
	start := 0
	for i, e := range entries {
		if e.Type == EntryRunStart {
			start = i
		}
	}
	return entries[start:], nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
