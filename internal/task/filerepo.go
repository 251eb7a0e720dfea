package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FileRepository persists tasks as one JSON file per task under
// <stateDir>/tasks/. It implements Repository plus the creation surface
// used by the CLI.
type FileRepository struct {
	dir string
}

// NewFileRepository creates a repository rooted at the given state directory
// (typically <workdir>/.sherpa).
func NewFileRepository(stateDir string) *FileRepository {
	return &FileRepository{dir: filepath.Join(stateDir, TasksDirName)}
}

func (r *FileRepository) taskPath(id string) string {
	return filepath.Join(r.dir, id+".json")
}

// Get loads a task by ID.
func (r *FileRepository) Get(id string) (*Task, error) {
	data, err := os.ReadFile(r.taskPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse task %s: %w", id, err)
	}
	return &t, nil
}

// Subtasks loads the children of a task in their stored order.
func (r *FileRepository) Subtasks(id string) ([]*Task, error) {
	parent, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	subtasks := make([]*Task, 0, len(parent.SubtaskIDs))
	for _, childID := range parent.SubtaskIDs {
		child, err := r.Get(childID)
		if err != nil {
			return nil, fmt.Errorf("subtask of %s: %w", id, err)
		}
		subtasks = append(subtasks, child)
	}
	return subtasks, nil
}

// SetStatus updates a task's status.
func (r *FileRepository) SetStatus(id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q for task %s", status, id)
	}

	t, err := r.Get(id)
	if err != nil {
		return err
	}
	t.Status = status
	return r.save(t)
}

// SetPlan stores plan text on a task.
func (r *FileRepository) SetPlan(id string, plan string) error {
	t, err := r.Get(id)
	if err != nil {
		return err
	}
	t.Plan = plan
	return r.save(t)
}

// Plan returns the stored plan text for a task, empty if none.
func (r *FileRepository) Plan(id string) (string, error) {
	t, err := r.Get(id)
	if err != nil {
		return "", err
	}
	return t.Plan, nil
}

// List returns tasks matching the filter, ordered by ID.
func (r *FileRepository) List(filter ListFilter) ([]*Task, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	var tasks []*Task
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		t, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return compareIDs(tasks[i].ID, tasks[j].ID) < 0
	})
	return tasks, nil
}

// Create persists a new task. The ID must be unused.
func (r *FileRepository) Create(t *Task) error {
	if t.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if _, err := os.Stat(r.taskPath(t.ID)); err == nil {
		return fmt.Errorf("task %s already exists", t.ID)
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = StatusTodo
	}
	return r.save(t)
}

// AddSubtask appends a child ID to the parent's ordered subtask list.
func (r *FileRepository) AddSubtask(parentID, childID string) error {
	parent, err := r.Get(parentID)
	if err != nil {
		return err
	}
	parent.SubtaskIDs = append(parent.SubtaskIDs, childID)
	return r.save(parent)
}

// NextIndex returns the index to use for the next top-level task ID.
func (r *FileRepository) NextIndex() (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	max := 0
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		// Only top-level IDs (t01) count; subtask IDs (t01.1) share the parent's index.
		if strings.Contains(name, ".") || !strings.HasPrefix(name, "t") {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

// save writes a task to disk with an atomic write (temp file then rename).
func (r *FileRepository) save(t *Task) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	t.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", t.ID, err)
	}

	path := r.taskPath(t.ID)
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write task temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename task temp file: %w", err)
	}
	return nil
}

// compareIDs orders IDs like t02 < t10 < t10.1 < t10.2 by comparing numeric
// segments rather than raw strings.
func compareIDs(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "t"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "t"), ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			if as[i] != bs[i] {
				return strings.Compare(as[i], bs[i])
			}
			continue
		}
		if an != bn {
			return an - bn
		}
	}
	return len(as) - len(bs)
}
