// Package cli wires the sherpa commands: init, create, tasks, run and
// history. Commands resolve the project root by walking up to the
// nearest .sherpa directory, so they work from anywhere inside a
// project.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/telemetry"
	"github.com/pablasso/sherpa/internal/version"
)

// Shared output styles, matching the TUI palette.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87AF87"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF5F5F"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "sherpa",
	Short:   "Task runner for AI coding agents",
	Long:    `Sherpa drives a coding agent through plan, execute, verify and review phases until each task lands. One task, one attempt at a time, with git keeping score.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(verbose)
		if err := telemetry.Init(cmd.Context(), "sherpa", version.Version); err != nil {
			slog.Warn("telemetry init failed", "error", err)
		}
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sherpa %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.CommitSHA)
		fmt.Printf("  built:  %s\n", version.BuildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging installs the process-wide logger. Logs go to stderr so
// they never interleave with command output or the run status line on
// stdout. The default level only surfaces problems; --verbose opens up
// the full debug stream.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command with the given base context.
func Execute(ctx context.Context) error {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
	}()
	return rootCmd.ExecuteContext(ctx)
}
