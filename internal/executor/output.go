package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const outputLogFileName = "output.log"

// OutputWriter provides writers for capturing command output.
// Adapters use it to route agent stdout/stderr.
type OutputWriter interface {
	Stdout() io.Writer
	Stderr() io.Writer
}

// OutputCapture tees agent output to a log file and, optionally, to a
// channel consumed by the TUI tail view.
type OutputCapture struct {
	logFile    *os.File
	multiOut   io.Writer
	multiErr   io.Writer
	eventsChan chan string // nil when not streaming
}

// NewOutputCapture creates an output capture for the given runs directory.
// Opens output.log in append mode to preserve history across runs.
func NewOutputCapture(dir string) (*OutputCapture, error) {
	return NewOutputCaptureWithEvents(dir, nil)
}

// NewQuietOutputCapture logs agent output to the file only. Used when a
// status line owns the terminal and raw streaming would corrupt it.
func NewQuietOutputCapture(dir string) (*OutputCapture, error) {
	oc, err := NewOutputCaptureWithEvents(dir, nil)
	if err != nil {
		return nil, err
	}
	oc.multiOut = oc.logFile
	oc.multiErr = oc.logFile
	return oc, nil
}

// NewOutputCaptureWithEvents creates an output capture with optional event
// streaming. When eventsChan is non-nil, output chunks are also sent to the
// channel for TUI consumption; the channel should be buffered, and chunks are
// dropped when it is full so the child process never blocks. In streaming
// mode output does not go to the parent's stdout/stderr, which would corrupt
// the TUI display.
func NewOutputCaptureWithEvents(dir string, eventsChan chan string) (*OutputCapture, error) {
	logPath := filepath.Join(dir, outputLogFileName)

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	oc := &OutputCapture{
		logFile:    f,
		eventsChan: eventsChan,
	}

	if eventsChan != nil {
		oc.multiOut = &channelWriter{underlying: f, eventsChan: eventsChan}
		oc.multiErr = &channelWriter{underlying: f, eventsChan: eventsChan}
	} else {
		oc.multiOut = io.MultiWriter(os.Stdout, f)
		oc.multiErr = io.MultiWriter(os.Stderr, f)
	}

	return oc, nil
}

// channelWriter writes to the underlying writer and mirrors chunks onto a
// channel for the TUI.
type channelWriter struct {
	underlying io.Writer
	eventsChan chan string
}

func (w *channelWriter) Write(p []byte) (n int, err error) {
	n, err = w.underlying.Write(p)

	select {
	case w.eventsChan <- string(p):
	default:
		// Drop if buffer full, don't block execution
	}
	return
}

// Stdout returns the writer for stdout.
func (oc *OutputCapture) Stdout() io.Writer {
	return oc.multiOut
}

// Stderr returns the writer for stderr.
func (oc *OutputCapture) Stderr() io.Writer {
	return oc.multiErr
}

// EventsChan returns the events channel for TUI streaming, or nil if not
// streaming.
func (oc *OutputCapture) EventsChan() chan string {
	return oc.eventsChan
}

// Close closes the log file. Safe to call when no log file is open.
func (oc *OutputCapture) Close() error {
	if oc.logFile != nil {
		return oc.logFile.Close()
	}
	return nil
}

// WriteAttemptHeader writes a marker to the log before an attempt's output.
// Safe to call when no log file is open.
func (oc *OutputCapture) WriteAttemptHeader(taskID string, attempt int) {
	if oc.logFile == nil {
		return
	}
	oc.logFile.WriteString(fmt.Sprintf("\n=== Task %s, Attempt %d ===\n", taskID, attempt))
	oc.logFile.WriteString(fmt.Sprintf("Started: %s\n\n", time.Now().Format(time.RFC3339)))
}

// WriteAttemptFooter writes a marker to the log after an attempt finishes.
// Safe to call when no log file is open.
func (oc *OutputCapture) WriteAttemptFooter(taskID string, success bool) {
	if oc.logFile == nil {
		return
	}
	result := "SUCCESS"
	if !success {
		result = "FAILED"
	}
	oc.logFile.WriteString(fmt.Sprintf("\n=== Task %s: %s ===\n\n", taskID, result))
}
