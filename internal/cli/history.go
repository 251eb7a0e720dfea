package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pablasso/sherpa/internal/progress"
)

var historyCmd = &cobra.Command{
	Use:   "history <taskID>",
	Short: "Show past runs of a task",
	Long:  `Reads the task's run journal under .sherpa/runs/ and summarizes every recorded run: outcome, attempts and duration.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	root, err := findRepoRoot()
	if err != nil {
		return err
	}

	entries, err := progress.ReadEntries(root, taskID)
	if err != nil {
		return err
	}
	runs := progress.Summarize(entries)
	if len(runs) == 0 {
		fmt.Printf("No runs recorded for %s.\n", taskID)
		return nil
	}

	fmt.Printf("History for %s:\n\n", taskID)
	for _, r := range runs {
		fmt.Println(formatRun(r))
	}
	return nil
}

// formatRun renders one history row.
func formatRun(r progress.Run) string {
	outcome := "✗ failed"
	style := errorStyle
	switch {
	case r.Success:
		outcome = "✓ completed"
		style = successStyle
	case r.Errored:
		outcome = "! errored"
	}

	attempts := fmt.Sprintf("%d attempts", r.Attempts)
	if r.Attempts == 1 {
		attempts = "1 attempt"
	}

	// Pad before styling so ANSI escapes do not skew the column width.
	line := fmt.Sprintf("  %s  %s  %s  %-10s  %s",
		shortRunID(r.ID),
		r.StartedAt.Format("2006-01-02 15:04"),
		style.Render(fmt.Sprintf("%-11s", outcome)),
		attempts,
		r.Duration().Round(time.Second),
	)
	if r.Errored && r.LastError != "" {
		line += "\n" + subtleStyle.Render("            error: "+truncateError(r.LastError))
	}
	return line
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncateError(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
