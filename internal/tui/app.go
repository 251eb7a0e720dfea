// Package tui is the Bubble Tea run monitor: one task, a live phase and
// attempt header, an activity feed, and a tail of the agent's output.
// It observes a run through the orchestrator listener and the executor
// output channel; it never drives the run itself.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/pablasso/sherpa/internal/orchestrator"
)

// runState represents the current state of the monitor.
type runState int

const (
	stateRunning runState = iota
	stateCancelling
	stateDone
	stateCancelled
)

const (
	eventBuffer  = 64
	outputBuffer = 256

	// activityRows is the fixed height of the activity feed.
	activityRows = 6
	// chromeLines is everything on screen that is not the output panel:
	// header, info line, blank line, activity section, panel border, and
	// the status bar.
	chromeLines = 14
)

// RunFunc executes the task and returns its outcome. The monitor runs it
// on a background goroutine and cancels the context on Ctrl+C.
type RunFunc func(ctx context.Context) (*orchestrator.Result, error)

// activityEntry is a single item in the activity feed.
type activityEntry struct {
	text   string
	done   bool
	failed bool
}

// Model is the Bubble Tea model for the run monitor.
type Model struct {
	state runState

	rootID      string
	taskID      string
	taskTitle   string
	phase       string
	attempt     int
	maxAttempts int
	model       string
	startTime   time.Time

	spinner    spinner.Model
	tail       outputTail
	activities []activityEntry

	// Channels feeding the model. events and output are drained by
	// re-armed listen commands; done carries the single terminal message.
	events chan tea.Msg
	output chan string
	done   chan RunDoneMsg

	run    RunFunc
	cancel context.CancelFunc

	finalResult  *orchestrator.Result
	finalErr     error
	finalMessage string

	width  int
	height int
}

// New creates a monitor for the given task. maxAttempts is the configured
// retry budget, shown next to the attempt counter.
func New(taskID, title string, maxAttempts int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = accentStyle

	return Model{
		state:       stateRunning,
		rootID:      taskID,
		taskID:      taskID,
		taskTitle:   title,
		maxAttempts: maxAttempts,
		startTime:   time.Now(),
		spinner:     s,
		tail:        newOutputTail(80, 20, 0), // Will be resized
		events:      make(chan tea.Msg, eventBuffer),
		output:      make(chan string, outputBuffer),
		done:        make(chan RunDoneMsg, 1),
	}
}

// Listener returns an orchestrator listener that feeds this monitor.
func (m *Model) Listener() *Listener {
	return &Listener{events: m.events}
}

// OutputChan returns the channel agent output chunks should be sent to,
// for wiring into the executor's output capture.
func (m *Model) OutputChan() chan string {
	return m.output
}

// Run starts the monitor and executes run underneath it. It blocks until
// the UI exits and returns the run's outcome. A Ctrl+C cancellation
// surfaces as a context.Canceled error.
func Run(m Model, run RunFunc) (*orchestrator.Result, error) {
	m.run = run

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	fm, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected final model %T", final)
	}
	return fm.finalResult, fm.finalErr
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tickCmd(),
		m.startRun(),
		m.waitForEvent(),
		m.waitForOutput(),
		m.waitForDone(),
	)
}

// tickCmd returns a command that sends tick messages for elapsed time updates.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// startRun launches the run on a background goroutine and hands back a
// cancel handle. The channels are closed once the run returns, so the
// listen commands unblock; the buffered done channel means the goroutine
// never waits on the UI.
func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		if m.run == nil {
			return RunDoneMsg{Err: errors.New("no run function configured")}
		}

		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			result, err := m.run(ctx)
			close(m.events)
			close(m.output)
			m.done <- RunDoneMsg{Result: result, Err: err}
		}()

		return RunStartedMsg{Cancel: cancel}
	}
}

// waitForEvent returns a command that waits for the next listener event.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.events
		if !ok {
			return nil
		}
		return msg
	}
}

// waitForOutput returns a command that waits for the next output chunk.
func (m Model) waitForOutput() tea.Cmd {
	return func() tea.Msg {
		chunk, ok := <-m.output
		if !ok {
			return nil
		}
		return OutputChunkMsg{Chunk: chunk}
	}
}

// waitForDone returns a command that waits for the run's terminal message.
func (m Model) waitForDone() tea.Cmd {
	return func() tea.Msg {
		return <-m.done
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateTailSize()
		return m, nil

	case spinner.TickMsg:
		if m.state == stateRunning || m.state == stateCancelling {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tickMsg:
		if m.state == stateRunning || m.state == stateCancelling {
			return m, m.tickCmd()
		}
		return m, nil

	case TaskStartedMsg:
		m.taskID = msg.TaskID
		m.taskTitle = msg.Title
		m.phase = ""
		m.attempt = 0
		m.model = ""
		if msg.TaskID != m.rootID {
			m.markLastActivityDone()
			m.addActivity(fmt.Sprintf("%s: %s", msg.TaskID, msg.Title))
		}
		return m, m.waitForEvent()

	case PhaseMsg:
		m.phase = string(msg.Phase)
		m.markLastActivityDone()
		m.addActivity(m.activityLabel(msg.TaskID, string(msg.Phase)))
		return m, m.waitForEvent()

	case AttemptStartedMsg:
		m.attempt = msg.Number
		m.model = msg.Model
		if msg.Number > 1 {
			m.markLastActivityDone()
			label := fmt.Sprintf("attempt %d/%d", msg.Number, m.maxAttempts)
			if msg.Model != "" {
				label += " · " + msg.Model
			}
			m.addActivity(m.activityLabel(msg.TaskID, label))
		}
		return m, m.waitForEvent()

	case AttemptFinishedMsg:
		m.markLastActivityDone()
		if !msg.Attempt.Success && msg.Attempt.Error != "" {
			label := fmt.Sprintf("attempt %d failed: %s", msg.Attempt.Number, firstLine(msg.Attempt.Error))
			m.addFailedActivity(m.activityLabel(msg.TaskID, label))
		}
		return m, m.waitForEvent()

	case TaskFinishedMsg:
		if msg.TaskID != m.rootID {
			m.markLastActivityDone()
			if msg.Success {
				m.addDoneActivity(fmt.Sprintf("%s completed", msg.TaskID))
			} else {
				m.addFailedActivity(fmt.Sprintf("%s did not complete", msg.TaskID))
			}
		}
		return m, m.waitForEvent()

	case TaskErroredMsg:
		m.markLastActivityDone()
		m.addFailedActivity(m.activityLabel(msg.TaskID, firstLine(msg.Err.Error())))
		return m, m.waitForEvent()

	case OutputChunkMsg:
		m.tail.appendChunk(msg.Chunk)
		return m, m.waitForOutput()

	case RunStartedMsg:
		m.cancel = msg.Cancel
		if m.state == stateCancelling && m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil

	case RunDoneMsg:
		return m.finishRun(msg), nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	// Pass through to the output tail for scrolling.
	var cmd tea.Cmd
	m.tail, cmd = m.tail.update(msg)
	return m, cmd
}

// handleKeyPress handles keyboard input based on current state.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateRunning:
		switch msg.String() {
		case "ctrl+c":
			// Trigger graceful stop. If the run isn't wired yet, stay in
			// cancelling state and cancel as soon as RunStartedMsg arrives.
			m.state = stateCancelling
			m.finalMessage = "Stopping... waiting for the agent to exit."
			if m.cancel != nil {
				m.cancel()
				m.cancel = nil
			}
			return m, nil
		case "up", "k", "pgup", "ctrl+u", "down", "j", "pgdown", "ctrl+d", "home", "g", "end", "G":
			var cmd tea.Cmd
			m.tail, cmd = m.tail.update(msg)
			return m, cmd
		}

	case stateCancelling:
		switch msg.String() {
		case "up", "k", "pgup", "ctrl+u", "down", "j", "pgdown", "ctrl+d", "home", "g", "end", "G":
			// Allow output scrolling while waiting for the run to stop.
			var cmd tea.Cmd
			m.tail, cmd = m.tail.update(msg)
			return m, cmd
		}

	case stateDone, stateCancelled:
		switch msg.String() {
		case "q", "enter", "ctrl+c":
			return m, tea.Quit
		}
	}

	return m, nil
}

// finishRun records the run's outcome and moves to a terminal state.
func (m Model) finishRun(msg RunDoneMsg) Model {
	m.finalResult = msg.Result
	m.finalErr = msg.Err

	attempts := 0
	if msg.Result != nil {
		attempts = len(msg.Result.Attempts)
	}

	switch {
	case msg.Err != nil && (m.state == stateCancelling || errors.Is(msg.Err, context.Canceled)):
		m.state = stateCancelled
		m.finalMessage = "Stopped before completion."
	case msg.Err != nil:
		m.state = stateDone
		m.finalMessage = msg.Err.Error()
	case msg.Result != nil && msg.Result.Success:
		m.state = stateDone
		elapsed := formatDuration(time.Since(m.startTime))
		if attempts > 0 {
			m.finalMessage = fmt.Sprintf("Completed in %s (%s)", elapsed, attemptsPhrase(attempts))
		} else {
			m.finalMessage = fmt.Sprintf("Completed in %s", elapsed)
		}
	default:
		m.state = stateDone
		if attempts > 0 {
			m.finalMessage = fmt.Sprintf("Did not complete (%s)", attemptsPhrase(attempts))
		} else {
			m.finalMessage = "Did not complete."
		}
	}

	return m
}

// activityLabel prefixes feed text with the task ID when the event belongs
// to a subtask rather than the task the run was started for.
func (m Model) activityLabel(taskID, text string) string {
	if taskID != "" && taskID != m.rootID {
		return taskID + ": " + text
	}
	return text
}

// addActivity appends a live entry to the activity feed.
func (m *Model) addActivity(text string) {
	m.activities = append(m.activities, activityEntry{text: text})
}

// addDoneActivity appends an already-completed entry.
func (m *Model) addDoneActivity(text string) {
	m.activities = append(m.activities, activityEntry{text: text, done: true})
}

// addFailedActivity appends a failed entry.
func (m *Model) addFailedActivity(text string) {
	m.activities = append(m.activities, activityEntry{text: text, failed: true})
}

// markLastActivityDone settles the most recent live entry.
func (m *Model) markLastActivityDone() {
	if len(m.activities) == 0 {
		return
	}
	last := &m.activities[len(m.activities)-1]
	if !last.failed {
		last.done = true
	}
}

// updateTailSize recalculates the output panel size from the window size.
func (m *Model) updateTailSize() {
	if m.width == 0 || m.height == 0 {
		return
	}

	// Panel border and padding take 4 columns.
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	h := m.height - chromeLines
	if h < 3 {
		h = 3
	}
	m.tail.setSize(w, h)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	switch m.state {
	case stateRunning, stateCancelling:
		return m.renderRunning()
	default:
		return m.renderFinal()
	}
}

// renderRunning renders the live view: header, activity feed, output tail.
func (m Model) renderRunning() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Running %s: %s", m.taskID, m.taskTitle)))
	b.WriteString("\n")

	phase := m.phase
	if phase == "" {
		phase = "starting"
	}
	info := phase
	if m.attempt > 0 {
		info += fmt.Sprintf(" │ Attempt %d/%d", m.attempt, m.maxAttempts)
	}
	if m.model != "" {
		info += " │ " + m.model
	}
	info += " │ ⏱ " + formatDuration(time.Since(m.startTime))
	b.WriteString(truncateWithEllipsis(info, m.width))
	b.WriteString("\n\n")

	b.WriteString(subtleStyle.Render("Activity"))
	b.WriteString("\n─────\n")
	for _, line := range m.renderActivities() {
		b.WriteString(line)
		b.WriteString("\n")
	}

	panel := boxStyle.Width(m.width - 2).Render(m.tail.view())
	b.WriteString(panel)
	b.WriteString("\n")

	statusItems := []string{"Running...", "Ctrl+C Cancel", "↑/↓ Scroll"}
	if m.state == stateCancelling {
		statusItems = []string{"Stopping...", "Waiting for the agent"}
	}
	b.WriteString(statusBar(m.width, statusItems))

	return b.String()
}

// renderActivities renders the most recent feed entries, padded to the
// fixed row count so the output panel below does not jump around.
func (m Model) renderActivities() []string {
	lines := make([]string, 0, activityRows)

	start := 0
	if len(m.activities) > activityRows {
		start = len(m.activities) - activityRows
	}

	for i := start; i < len(m.activities); i++ {
		entry := m.activities[i]
		indicator := "├─"
		switch {
		case entry.failed:
			indicator = errorStyle.Render("✗")
		case entry.done:
			indicator = successStyle.Render("✓")
		case i == len(m.activities)-1 && m.state == stateRunning:
			indicator = m.spinner.View()
		}
		lines = append(lines, truncateWithEllipsis(fmt.Sprintf("%s %s", indicator, entry.text), m.width))
	}

	if len(m.activities) == 0 {
		lines = append(lines, subtleStyle.Render("  (waiting...)"))
	}
	for len(lines) < activityRows {
		lines = append(lines, "")
	}

	return lines
}

// renderFinal renders the terminal view after the run has finished.
func (m Model) renderFinal() string {
	var b strings.Builder

	var title string
	switch {
	case m.state == stateCancelled:
		title = subtleStyle.Render("Run Cancelled")
	case m.finalErr == nil && m.finalResult != nil && m.finalResult.Success:
		title = successStyle.Render("Task Completed")
	default:
		title = errorStyle.Render("Task Failed")
	}
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	mark := errorStyle.Render("✗")
	if m.state != stateCancelled && m.finalErr == nil && m.finalResult != nil && m.finalResult.Success {
		mark = successStyle.Render("✓")
	}
	resultLine := fmt.Sprintf("%s %s: %s", mark, m.rootID, m.finalMessage)
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, resultLine))
	b.WriteString("\n")

	if m.finalResult != nil && m.finalResult.Commit != nil && m.finalResult.Commit.Hash != "" {
		commitLine := subtleStyle.Render("Commit: " + m.finalResult.Commit.Hash)
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, commitLine))
		b.WriteString("\n")
	}

	if m.finalResult != nil && len(m.finalResult.Subtasks) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, subtleStyle.Render("Subtasks:")))
		b.WriteString("\n")
		for _, sub := range m.finalResult.Subtasks {
			indicator := errorStyle.Render("✗")
			if sub.Result != nil && sub.Result.Success {
				indicator = successStyle.Render("✓")
			}
			b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, fmt.Sprintf("%s %s", indicator, sub.TaskID)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	quit := accentStyle.Render("[q]") + " Quit"
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, quit))
	b.WriteString("\n")

	// Fill remaining space
	lines := strings.Count(b.String(), "\n") + 1
	if remaining := m.height - lines - 1; remaining > 0 {
		b.WriteString(strings.Repeat("\n", remaining))
	}

	b.WriteString(statusBar(m.width, []string{"q Quit"}))

	return b.String()
}

func attemptsPhrase(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

// firstLine truncates multi-line error text to its first line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration as MM:SS or HH:MM:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}

const tailMaxLines = 1000

// outputTail is a ring-buffered tail over the agent's output stream,
// backed by a bubbles viewport. Chunk boundaries do not create hard line
// breaks; scrolling up pauses auto-scroll.
type outputTail struct {
	viewport   viewport.Model
	raw        []string // buffered raw lines (unwrapped)
	open       bool     // true when the last raw line is an unfinished chunk
	maxLines   int      // ring buffer size
	autoScroll bool
	width      int
	height     int
}

// newOutputTail creates a tail with the given dimensions. maxLines
// controls the ring buffer size (0 uses the default of 1000).
func newOutputTail(width, height, maxLines int) outputTail {
	if maxLines <= 0 {
		maxLines = tailMaxLines
	}

	vp := viewport.New(width, height)
	vp.SetContent("")
	return outputTail{
		viewport:   vp,
		maxLines:   maxLines,
		autoScroll: true,
		width:      width,
		height:     height,
	}
}

// appendChunk appends streamed output while preserving exact whitespace
// and newlines.
func (o *outputTail) appendChunk(chunk string) {
	if chunk == "" {
		return
	}

	start := 0
	for start < len(chunk) {
		relIdx := strings.IndexByte(chunk[start:], '\n')
		if relIdx == -1 {
			o.appendToCurrentLine(chunk[start:])
			break
		}
		o.appendToCurrentLine(chunk[start : start+relIdx])
		o.open = false
		start += relIdx + 1
	}

	o.refresh()
}

func (o *outputTail) appendToCurrentLine(text string) {
	if o.open && len(o.raw) > 0 {
		o.raw[len(o.raw)-1] += text
		return
	}

	if len(o.raw) >= o.maxLines {
		o.raw = o.raw[1:]
	}
	o.raw = append(o.raw, text)
	o.open = true
}

// refresh rewraps the buffer at the current width and pushes it into the
// viewport.
func (o *outputTail) refresh() {
	var wrapped []string
	for _, line := range o.raw {
		w := line
		if o.width > 0 {
			w = ansi.Wrap(line, o.width, "/")
		}
		wrapped = append(wrapped, strings.Split(w, "\n")...)
	}

	if len(wrapped) > o.maxLines {
		wrapped = wrapped[len(wrapped)-o.maxLines:]
	}

	o.viewport.SetContent(strings.Join(wrapped, "\n"))
	if o.autoScroll {
		o.viewport.GotoBottom()
	}
}

// update handles viewport key events. Scrolling up pauses auto-scroll.
func (o outputTail) update(msg tea.Msg) (outputTail, tea.Cmd) {
	var cmd tea.Cmd
	o.viewport, cmd = o.viewport.Update(msg)

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "up", "k", "pgup", "ctrl+u":
			o.autoScroll = false
		case "down", "j", "pgdown", "ctrl+d":
			if o.viewport.AtBottom() {
				o.autoScroll = true
			}
		case "end", "G":
			o.autoScroll = true
			o.viewport.GotoBottom()
		case "home", "g":
			o.autoScroll = false
		}
	}

	return o, cmd
}

func (o *outputTail) setSize(width, height int) {
	if o.width == width && o.height == height {
		return
	}

	o.width = width
	o.height = height
	o.viewport.Width = width
	o.viewport.Height = height
	o.refresh()
}

func (o outputTail) view() string {
	return o.viewport.View()
}

func (o outputTail) lineCount() int {
	return len(o.raw)
}
