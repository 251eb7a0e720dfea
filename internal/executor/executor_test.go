package executor

import (
	"strings"
	"testing"
)

func TestParseTool(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Tool
		wantErr bool
	}{
		{name: "claude", input: "claude", want: ToolClaude},
		{name: "codex", input: "codex", want: ToolCodex},
		{name: "empty defaults to claude", input: "", want: ToolClaude},
		{name: "unknown tool", input: "gemini", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTool(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("ParseTool() should return error")
				}
				if !strings.Contains(err.Error(), "unknown tool") {
					t.Errorf("error should name the unknown tool, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTool() returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTool() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	opts := Options{WorkDir: t.TempDir()}

	t.Run("claude", func(t *testing.T) {
		adapter, err := New(ToolClaude, opts)
		if err != nil {
			t.Fatalf("New() returned error: %v", err)
		}
		if _, ok := adapter.(*ClaudeAdapter); !ok {
			t.Errorf("New(claude) = %T, want *ClaudeAdapter", adapter)
		}
	})

	t.Run("codex", func(t *testing.T) {
		adapter, err := New(ToolCodex, opts)
		if err != nil {
			t.Fatalf("New() returned error: %v", err)
		}
		if _, ok := adapter.(*CodexAdapter); !ok {
			t.Errorf("New(codex) = %T, want *CodexAdapter", adapter)
		}
	})

	t.Run("empty defaults to claude", func(t *testing.T) {
		adapter, err := New("", opts)
		if err != nil {
			t.Fatalf("New() returned error: %v", err)
		}
		if _, ok := adapter.(*ClaudeAdapter); !ok {
			t.Errorf("New(\"\") = %T, want *ClaudeAdapter", adapter)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := New("gemini", opts); err == nil {
			t.Error("New() should return error for unsupported tool")
		}
	})
}
