package cli

import (
	"strings"
	"testing"

	"github.com/pablasso/sherpa/internal/task"
)

func TestParseStatusFilter(t *testing.T) {
	t.Run("empty means no filter", func(t *testing.T) {
		filter, err := parseStatusFilter("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filter.Status != "" {
			t.Errorf("expected empty filter, got %q", filter.Status)
		}
	})

	t.Run("valid statuses parse", func(t *testing.T) {
		for _, s := range []string{"todo", "in-progress", "completed"} {
			filter, err := parseStatusFilter(s)
			if err != nil {
				t.Errorf("status %q: unexpected error: %v", s, err)
			}
			if string(filter.Status) != s {
				t.Errorf("status %q: got filter %q", s, filter.Status)
			}
		}
	})

	t.Run("unknown status errors", func(t *testing.T) {
		_, err := parseStatusFilter("done")
		if err == nil {
			t.Error("expected error for unknown status, got nil")
		}
	})
}

func TestFormatTaskLine(t *testing.T) {
	t.Run("top-level task has no indent", func(t *testing.T) {
		line := formatTaskLine(&task.Task{ID: "t01", Status: task.StatusTodo, Title: "Set up"})
		if !strings.Contains(line, "t01") || !strings.Contains(line, "todo") || !strings.Contains(line, "Set up") {
			t.Errorf("line missing fields: %q", line)
		}
		if strings.HasPrefix(line, "    ") {
			t.Errorf("top-level task should not be indented: %q", line)
		}
	})

	t.Run("subtasks indent by depth", func(t *testing.T) {
		child := formatTaskLine(&task.Task{ID: "t01.1", Status: task.StatusCompleted, Title: "Child"})
		grandchild := formatTaskLine(&task.Task{ID: "t01.1.1", Status: task.StatusTodo, Title: "Grandchild"})

		if !strings.HasPrefix(child, "    t01.1") {
			t.Errorf("child should be indented one level: %q", child)
		}
		if !strings.HasPrefix(grandchild, "      t01.1.1") {
			t.Errorf("grandchild should be indented two levels: %q", grandchild)
		}
	})
}
