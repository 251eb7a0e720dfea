package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pablasso/sherpa/internal/task"
)

func TestValidateCreateInputs(t *testing.T) {
	t.Run("missing .sherpa returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		mdFile := filepath.Join(tmpDir, "design.md")
		os.WriteFile(mdFile, []byte("# Design"), 0644)

		err := validateCreateInputs(mdFile, false)
		if err == nil {
			t.Error("expected error for missing .sherpa, got nil")
		}
	})

	t.Run("dry-run skips .sherpa check", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		mdFile := filepath.Join(tmpDir, "design.md")
		os.WriteFile(mdFile, []byte("# Design"), 0644)

		if err := validateCreateInputs(mdFile, true); err != nil {
			t.Errorf("dry-run should skip .sherpa check, got error: %v", err)
		}
	})

	t.Run("missing file returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)

		err := validateCreateInputs(filepath.Join(tmpDir, "nonexistent.md"), false)
		if err == nil {
			t.Error("expected error for missing file, got nil")
		}
	})

	t.Run("non-markdown file returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)
		txtFile := filepath.Join(tmpDir, "design.txt")
		os.WriteFile(txtFile, []byte("some content"), 0644)

		err := validateCreateInputs(txtFile, false)
		if err == nil {
			t.Error("expected error for non-markdown file, got nil")
		}
	})

	t.Run("empty file returns error", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)
		mdFile := filepath.Join(tmpDir, "empty.md")
		os.WriteFile(mdFile, []byte{}, 0644)

		err := validateCreateInputs(mdFile, false)
		if err == nil {
			t.Error("expected error for empty file, got nil")
		}
	})
}

func TestAssembleTasks(t *testing.T) {
	extracted := []task.ExtractedTask{
		{
			Title:              "Set up the project",
			Content:            "Create the skeleton.",
			AcceptanceCriteria: []string{"builds cleanly"},
			VerifyCommands:     []string{"go build ./..."},
		},
		{
			Title:   "Implement the parser",
			Content: "Tokenize and parse.",
		},
	}

	t.Run("top-level tasks get sequential IDs", func(t *testing.T) {
		tasks := assembleTasks(extracted, "", 0)

		if len(tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(tasks))
		}
		if tasks[0].ID != "t01" || tasks[1].ID != "t02" {
			t.Errorf("got IDs %s, %s; want t01, t02", tasks[0].ID, tasks[1].ID)
		}
		if tasks[0].Title != "Set up the project" {
			t.Errorf("unexpected title %q", tasks[0].Title)
		}
		if tasks[0].Content != "Create the skeleton." {
			t.Errorf("unexpected content %q", tasks[0].Content)
		}
		if len(tasks[0].AcceptanceCriteria) != 1 || tasks[0].AcceptanceCriteria[0] != "builds cleanly" {
			t.Errorf("acceptance criteria not mapped: %v", tasks[0].AcceptanceCriteria)
		}
		if len(tasks[0].VerifyCommands) != 1 || tasks[0].VerifyCommands[0] != "go build ./..." {
			t.Errorf("verify commands not mapped: %v", tasks[0].VerifyCommands)
		}
		if tasks[0].Status != task.StatusTodo {
			t.Errorf("expected status todo, got %s", tasks[0].Status)
		}
		if tasks[0].ParentID != "" {
			t.Errorf("expected no parent, got %q", tasks[0].ParentID)
		}
	})

	t.Run("startIndex continues existing numbering", func(t *testing.T) {
		tasks := assembleTasks(extracted, "", 3)

		if tasks[0].ID != "t04" || tasks[1].ID != "t05" {
			t.Errorf("got IDs %s, %s; want t04, t05", tasks[0].ID, tasks[1].ID)
		}
	})

	t.Run("subtasks get dotted IDs under the parent", func(t *testing.T) {
		tasks := assembleTasks(extracted, "t02", 1)

		if tasks[0].ID != "t02.2" || tasks[1].ID != "t02.3" {
			t.Errorf("got IDs %s, %s; want t02.2, t02.3", tasks[0].ID, tasks[1].ID)
		}
		if tasks[0].ParentID != "t02" {
			t.Errorf("expected parent t02, got %q", tasks[0].ParentID)
		}
	})
}

func TestPersistTasks(t *testing.T) {
	extracted := []task.ExtractedTask{
		{Title: "First", Content: "one"},
		{Title: "Second", Content: "two"},
	}

	t.Run("creates top-level tasks after existing ones", func(t *testing.T) {
		repo := task.NewFileRepository(filepath.Join(t.TempDir(), ".sherpa"))
		if err := repo.Create(&task.Task{ID: "t01", Title: "Existing", Content: "x"}); err != nil {
			t.Fatal(err)
		}

		tasks, err := persistTasks(repo, extracted, "")
		if err != nil {
			t.Fatalf("persistTasks failed: %v", err)
		}
		if tasks[0].ID != "t02" || tasks[1].ID != "t03" {
			t.Errorf("got IDs %s, %s; want t02, t03", tasks[0].ID, tasks[1].ID)
		}

		stored, err := repo.Get("t03")
		if err != nil {
			t.Fatalf("expected t03 stored: %v", err)
		}
		if stored.Title != "Second" {
			t.Errorf("stored title %q, want Second", stored.Title)
		}
	})

	t.Run("links subtasks under the parent", func(t *testing.T) {
		repo := task.NewFileRepository(filepath.Join(t.TempDir(), ".sherpa"))
		if err := repo.Create(&task.Task{ID: "t01", Title: "Parent", Content: "x"}); err != nil {
			t.Fatal(err)
		}

		tasks, err := persistTasks(repo, extracted, "t01")
		if err != nil {
			t.Fatalf("persistTasks failed: %v", err)
		}
		if tasks[0].ID != "t01.1" || tasks[1].ID != "t01.2" {
			t.Errorf("got IDs %s, %s; want t01.1, t01.2", tasks[0].ID, tasks[1].ID)
		}

		parent, err := repo.Get("t01")
		if err != nil {
			t.Fatal(err)
		}
		if len(parent.SubtaskIDs) != 2 || parent.SubtaskIDs[0] != "t01.1" || parent.SubtaskIDs[1] != "t01.2" {
			t.Errorf("parent subtask list wrong: %v", parent.SubtaskIDs)
		}
	})

	t.Run("missing parent returns error", func(t *testing.T) {
		repo := task.NewFileRepository(filepath.Join(t.TempDir(), ".sherpa"))

		_, err := persistTasks(repo, extracted, "t99")
		if err == nil {
			t.Error("expected error for missing parent, got nil")
		}
	})
}
