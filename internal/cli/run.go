package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/agent"
	"github.com/pablasso/sherpa/internal/config"
	"github.com/pablasso/sherpa/internal/display"
	"github.com/pablasso/sherpa/internal/executor"
	"github.com/pablasso/sherpa/internal/lock"
	"github.com/pablasso/sherpa/internal/orchestrator"
	"github.com/pablasso/sherpa/internal/progress"
	"github.com/pablasso/sherpa/internal/task"
	"github.com/pablasso/sherpa/internal/tui"
)

var (
	runTool             string
	runModel            string
	runMaxRetries       int
	runTryModels        string
	runVerify           []string
	runNoPlan           bool
	runNoReview         bool
	runNoCommit         bool
	runNoSubtasks       bool
	runDryRun           bool
	runMessage          string
	runIncludeCompleted bool
	runTUI              bool
)

var runCmd = &cobra.Command{
	Use:   "run <taskID>",
	Short: "Run a task through the agent until it lands",
	Long: `Executes a task through plan, execute, verify and review phases,
retrying with escalating models until it succeeds or retries run out.
A task with subtasks executes them in order instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	registerRunFlags(runCmd)
}

// registerRunFlags binds the run flags to a command. Split from init so
// tests can build a command with fresh changed-state.
func registerRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runTool, "tool", "", "Agent CLI to use: claude or codex")
	cmd.Flags().StringVar(&runModel, "model", "", "Model for every attempt")
	cmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "Attempts per task before giving up")
	cmd.Flags().StringVar(&runTryModels, "try-models", "", "Comma-separated escalation list; entries are model or tool:model")
	cmd.Flags().StringArrayVar(&runVerify, "verify", nil, "Verification command, repeatable; all must exit zero")
	cmd.Flags().BoolVar(&runNoPlan, "no-plan", false, "Skip the planning phase")
	cmd.Flags().BoolVar(&runNoReview, "no-review", false, "Skip plan and diff review")
	cmd.Flags().BoolVar(&runNoCommit, "no-commit", false, "Leave the agent's changes uncommitted")
	cmd.Flags().BoolVar(&runNoSubtasks, "no-subtasks", false, "Run the task itself even when it has subtasks")
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Walk the pipeline without spawning processes or writing state")
	cmd.Flags().StringVar(&runMessage, "message", "", "Replace the task content in the execution prompt")
	cmd.Flags().BoolVar(&runIncludeCompleted, "include-completed", false, "Re-run subtasks that are already completed")
	cmd.Flags().BoolVar(&runTUI, "tui", false, "Monitor the run in a full-screen TUI")
}

func runTask(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	// 1. Locate the project and merge config under explicit flags
	workDir, err := findRepoRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	applyConfigDefaults(cmd, cfg)

	// 2. Resolve tool and model escalation
	tool, err := executor.ParseTool(runTool)
	if err != nil {
		return err
	}
	tryModels, err := parseTryModels(runTryModels, tool)
	if err != nil {
		return err
	}
	if runMaxRetries < 1 {
		return fmt.Errorf("max-retries must be at least 1, got %d", runMaxRetries)
	}

	// 3. The agent CLI must exist unless this is a rehearsal
	if !runDryRun {
		if err := checkAgentCLI(tool); err != nil {
			return err
		}
		for _, attempt := range tryModels {
			if attempt.Tool != tool {
				if err := checkAgentCLI(attempt.Tool); err != nil {
					return err
				}
			}
		}
	}

	// 4. Load the task up front for a clean error and the title
	repo := task.NewFileRepository(task.StateDir(workDir))
	tsk, err := repo.Get(taskID)
	if err != nil {
		return err
	}

	// 5. One run at a time per working tree
	if !runDryRun {
		runLock := lock.New(workDir)
		if err := runLock.Acquire(); err != nil {
			return err
		}
		defer runLock.Release()
	}

	execCfg := orchestrator.ExecutionConfig{
		Tool:             tool,
		Executor:         executor.Config{Model: runModel},
		VerifyCommands:   runVerify,
		MaxRetries:       runMaxRetries,
		TryModels:        tryModels,
		Plan:             !runNoPlan,
		Review:           !runNoReview,
		AutoCommit:       !runNoCommit,
		Subtasks:         !runNoSubtasks,
		IncludeCompleted: runIncludeCompleted,
		DryRun:           runDryRun,
		MessageOverride:  runMessage,
		ProjectContext:   readProjectContext(workDir),
		WorkDir:          workDir,
	}

	// 6. Run until done or interrupted
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if runTUI {
		return runWithTUI(ctx, repo, tsk, execCfg, workDir)
	}
	return runWithConsole(ctx, repo, tsk, execCfg, workDir)
}

// runWithConsole drives the run behind a single status line, with agent
// output captured to the log file. With --verbose the status line is
// dropped and agent output streams through instead.
func runWithConsole(ctx context.Context, repo task.Repository, tsk *task.Task, cfg orchestrator.ExecutionConfig, workDir string) error {
	var (
		d         *display.Display
		output    executor.OutputWriter
		listeners []orchestrator.Listener
	)

	if !verbose {
		d = display.New(os.Stdout)
		listeners = append(listeners, display.NewListener(d, cfg.MaxRetries))
	}

	if !cfg.DryRun {
		capture, err := openCapture(workDir, verbose, nil)
		if err != nil {
			return err
		}
		defer capture.Close()
		output = capture
		listeners = append(listeners, progress.NewJournal(workDir, slog.Default()))
	}

	cfg.ReviewPlan = promptPlanReview(d)

	orch := orchestrator.New(orchestrator.Options{
		Repository: repo,
		Agent:      reviewAgent(workDir),
		Output:     output,
		Listeners:  listeners,
	})

	if d != nil {
		d.Start()
	}
	start := time.Now()
	result, err := orch.Execute(ctx, tsk.ID, cfg)
	if d != nil {
		d.Stop()
	}

	return reportResult(tsk.ID, result, err, time.Since(start))
}

// runWithTUI drives the run inside the Bubble Tea monitor. The TUI owns
// cancellation through its own context; the surrounding signal context
// is bridged in so SIGTERM still stops the agent.
func runWithTUI(ctx context.Context, repo task.Repository, tsk *task.Task, cfg orchestrator.ExecutionConfig, workDir string) error {
	m := tui.New(tsk.ID, tsk.Title, cfg.MaxRetries)

	var (
		output    executor.OutputWriter
		listeners = []orchestrator.Listener{m.Listener()}
	)
	if !cfg.DryRun {
		capture, err := openCapture(workDir, false, m.OutputChan())
		if err != nil {
			return err
		}
		defer capture.Close()
		output = capture
		listeners = append(listeners, progress.NewJournal(workDir, slog.Default()))
	}

	orch := orchestrator.New(orchestrator.Options{
		Repository: repo,
		Agent:      reviewAgent(workDir),
		Output:     output,
		Listeners:  listeners,
	})

	start := time.Now()
	result, err := tui.Run(m, func(runCtx context.Context) (*orchestrator.Result, error) {
		runCtx, cancel := context.WithCancel(runCtx)
		defer cancel()
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
		return orch.Execute(runCtx, tsk.ID, cfg)
	})
	return reportResult(tsk.ID, result, err, time.Since(start))
}

// openCapture opens the output log under .sherpa/runs. Streaming mode
// feeds the TUI tail; passthrough mode mirrors to the terminal; quiet
// mode writes the file only.
func openCapture(workDir string, passthrough bool, events chan string) (*executor.OutputCapture, error) {
	dir := filepath.Join(task.StateDir(workDir), task.RunsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if events != nil {
		return executor.NewOutputCaptureWithEvents(dir, events)
	}
	if passthrough {
		return executor.NewOutputCapture(dir)
	}
	return executor.NewQuietOutputCapture(dir)
}

// reviewAgent returns the best available agent, or nil when none exists.
// The orchestrator degrades review and commit synthesis on nil.
func reviewAgent(workDir string) agent.Agent {
	a, err := buildAgent(workDir)
	if err != nil {
		return nil
	}
	return a
}

// promptPlanReview builds the interactive plan gate. The status line is
// paused around the prompt so typed feedback stays readable. Empty input
// approves the plan; anything else is sent back to the agent as feedback.
func promptPlanReview(d *display.Display) orchestrator.ReviewPlanFunc {
	return func(planPath string) (string, error) {
		if d != nil {
			d.Stop()
			defer d.Start()
		}
		return planReviewPrompt(os.Stdin, os.Stdout, planPath)
	}
}

// planReviewPrompt reads one line of feedback for the plan at planPath.
// A closed stdin approves, so unattended runs proceed.
func planReviewPrompt(in io.Reader, out io.Writer, planPath string) (string, error) {
	fmt.Fprintf(out, "\nPlan written to %s\n", planPath)
	fmt.Fprintln(out, "Review it in your editor.")
	fmt.Fprint(out, "Press enter to approve, or type feedback to request changes: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// reportResult prints the outcome and converts an unsuccessful run into
// the command's error.
func reportResult(taskID string, result *orchestrator.Result, err error, elapsed time.Duration) error {
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("task %s produced no result", taskID)
	}

	if result.Success {
		fmt.Printf("\n%s Task %s completed (%s, %s)\n", successStyle.Render("✓"), taskID, countAttempts(result), elapsed.Round(time.Second))
		if result.Commit != nil {
			fmt.Printf("  %s\n", subtleStyle.Render("Commit: "+result.Commit.Hash))
		}
		return nil
	}

	if failed := firstFailedSubtask(result); failed != "" {
		return fmt.Errorf("task %s did not complete: subtask %s failed", taskID, failed)
	}
	return fmt.Errorf("task %s did not complete after %s", taskID, countAttempts(result))
}

func countAttempts(result *orchestrator.Result) string {
	n := len(result.Attempts)
	for _, sub := range result.Subtasks {
		if sub.Result != nil {
			n += len(sub.Result.Attempts)
		}
	}
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

func firstFailedSubtask(result *orchestrator.Result) string {
	for _, sub := range result.Subtasks {
		if sub.Result == nil || !sub.Result.Success {
			return sub.TaskID
		}
	}
	return ""
}

// applyConfigDefaults fills run settings from config for every flag the
// user did not set explicitly. Flags always win over config and
// environment.
func applyConfigDefaults(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("tool") {
		runTool = cfg.Tool
	}
	if !cmd.Flags().Changed("model") {
		runModel = cfg.Model
	}
	if !cmd.Flags().Changed("max-retries") {
		runMaxRetries = cfg.MaxRetries
	}
	if !cmd.Flags().Changed("try-models") {
		runTryModels = strings.Join(cfg.TryModels, ",")
	}
	if !cmd.Flags().Changed("verify") {
		runVerify = cfg.VerifyCommands
	}
	if !cmd.Flags().Changed("no-plan") {
		runNoPlan = !cfg.Plan
	}
	if !cmd.Flags().Changed("no-review") {
		runNoReview = !cfg.Review
	}
	if !cmd.Flags().Changed("no-commit") {
		runNoCommit = !cfg.AutoCommit
	}
	if !cmd.Flags().Changed("no-subtasks") {
		runNoSubtasks = !cfg.Subtasks
	}
}

// parseTryModels turns "sonnet,opus" or "claude:sonnet,codex:gpt-5" into
// the attempt escalation list. Entries without a tool use the run's tool.
func parseTryModels(s string, defaultTool executor.Tool) ([]orchestrator.ModelAttempt, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var attempts []orchestrator.ModelAttempt
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		tool := defaultTool
		model := entry
		if name, rest, found := strings.Cut(entry, ":"); found {
			parsed, err := executor.ParseTool(name)
			if err != nil {
				return nil, fmt.Errorf("try-models entry %q: %w", entry, err)
			}
			tool = parsed
			model = rest
		}
		if model == "" {
			return nil, fmt.Errorf("try-models entry %q: missing model", entry)
		}
		attempts = append(attempts, orchestrator.ModelAttempt{Tool: tool, Model: model})
	}
	return attempts, nil
}

// readProjectContext loads AGENTS.md (or CLAUDE.md) from the project
// root so prompts carry the project's own conventions.
func readProjectContext(workDir string) string {
	for _, name := range []string{"AGENTS.md", "CLAUDE.md"} {
		data, err := os.ReadFile(filepath.Join(workDir, name))
		if err == nil && len(data) > 0 {
			return string(data)
		}
	}
	return ""
}
