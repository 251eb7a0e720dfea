package progress

import (
	"bufio"
	"encoding/json"
	"os"
	"time"
)

// Run summarizes one run of a task as reconstructed from its journal.
type Run struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Attempts  int
	Success   bool
	Errored   bool
	LastError string
}

// Duration is the wall time between the run's first and last entry.
func (r Run) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// ReadEntries loads a task's journal. Malformed lines are skipped; a
// missing file returns an empty slice.
func ReadEntries(workDir, taskID string) ([]Entry, error) {
	f, err := os.Open(JournalPath(workDir, taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, scanner.Err()
}

// Summarize groups entries into runs, preserving first-seen order.
func Summarize(entries []Entry) []Run {
	var order []string
	byID := make(map[string]*Run)

	for _, entry := range entries {
		run, ok := byID[entry.RunID]
		if !ok {
			run = &Run{ID: entry.RunID, StartedAt: entry.Timestamp}
			byID[entry.RunID] = run
			order = append(order, entry.RunID)
		}
		run.EndedAt = entry.Timestamp

		switch entry.Event {
		case EventAttemptStarted:
			// JSON numbers decode as float64.
			if n, ok := entry.Data["attempt"].(float64); ok && int(n) > run.Attempts {
				run.Attempts = int(n)
			}
		case EventAttemptFinished:
			if msg, ok := entry.Data["error"].(string); ok && msg != "" {
				run.LastError = msg
			}
		case EventTaskFinished:
			if success, ok := entry.Data["success"].(bool); ok {
				run.Success = success
			}
		case EventTaskErrored:
			run.Errored = true
			if msg, ok := entry.Data["error"].(string); ok {
				run.LastError = msg
			}
		}
	}

	runs := make([]Run, 0, len(order))
	for _, id := range order {
		runs = append(runs, *byID[id])
	}
	return runs
}
