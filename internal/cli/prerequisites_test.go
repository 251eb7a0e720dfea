package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestPrerequisiteError(t *testing.T) {
	t.Run("formats error with check, message, and help", func(t *testing.T) {
		err := &PrerequisiteError{
			Check:   "Test Check",
			Message: "Something went wrong",
			Help:    "Try doing X to fix it.",
		}

		expected := "Test Check: Something went wrong\n\nTry doing X to fix it."
		if err.Error() != expected {
			t.Errorf("got %q, want %q", err.Error(), expected)
		}
	})
}

func TestCheckGitRepo(t *testing.T) {
	t.Run("in git repo returns nil", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		cmd := exec.Command("git", "init")
		if err := cmd.Run(); err != nil {
			t.Fatalf("failed to init git repo: %v", err)
		}

		err := checkGitRepo()
		if err != nil {
			t.Errorf("expected nil error in git repo, got: %v", err)
		}
	})

	t.Run("not in git repo returns PrerequisiteError", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		err := checkGitRepo()
		if err == nil {
			t.Error("expected error when not in git repo, got nil")
		}

		prereqErr, ok := err.(*PrerequisiteError)
		if !ok {
			t.Fatalf("expected *PrerequisiteError, got %T", err)
		}

		if prereqErr.Message != "Not a git repository" {
			t.Errorf("got message %q, want %q", prereqErr.Message, "Not a git repository")
		}

		expectedHelp := "Sherpa requires a git repository. Run 'git init' first."
		if prereqErr.Help != expectedHelp {
			t.Errorf("got help %q, want %q", prereqErr.Help, expectedHelp)
		}
	})
}

func TestIsInitialized(t *testing.T) {
	t.Run("returns true when .sherpa directory exists", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)

		if !IsInitialized() {
			t.Error("expected IsInitialized() to return true when .sherpa exists")
		}
	})

	t.Run("returns false when .sherpa does not exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		if IsInitialized() {
			t.Error("expected IsInitialized() to return false when .sherpa does not exist")
		}
	})

	t.Run("returns false when .sherpa is a file not directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.WriteFile(filepath.Join(tmpDir, ".sherpa"), []byte("not a dir"), 0644)

		if IsInitialized() {
			t.Error("expected IsInitialized() to return false when .sherpa is a file")
		}
	})
}

func TestFindRepoRoot(t *testing.T) {
	t.Run("finds root from the root itself", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)

		root, err := findRepoRoot()
		if err != nil {
			t.Fatalf("findRepoRoot failed: %v", err)
		}
		resolved, _ := filepath.EvalSymlinks(tmpDir)
		if got, _ := filepath.EvalSymlinks(root); got != resolved {
			t.Errorf("got root %q, want %q", got, resolved)
		}
	})

	t.Run("walks up from a nested directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		defer os.Chdir(originalWd)

		os.MkdirAll(filepath.Join(tmpDir, ".sherpa"), 0755)
		nested := filepath.Join(tmpDir, "internal", "deep")
		os.MkdirAll(nested, 0755)
		os.Chdir(nested)

		root, err := findRepoRoot()
		if err != nil {
			t.Fatalf("findRepoRoot failed: %v", err)
		}
		resolved, _ := filepath.EvalSymlinks(tmpDir)
		if got, _ := filepath.EvalSymlinks(root); got != resolved {
			t.Errorf("got root %q, want %q", got, resolved)
		}
	})

	t.Run("errors when no .sherpa exists up the tree", func(t *testing.T) {
		tmpDir := t.TempDir()
		originalWd, _ := os.Getwd()
		os.Chdir(tmpDir)
		defer os.Chdir(originalWd)

		_, err := findRepoRoot()
		if err == nil {
			t.Error("expected error when no .sherpa exists, got nil")
		}
	})
}
