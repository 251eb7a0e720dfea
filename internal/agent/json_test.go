package agent

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:    "clean JSON",
			input:   `{"approved":true,"feedback":""}`,
			want:    `{"approved":true,"feedback":""}`,
			wantErr: false,
		},
		{
			name:    "JSON with leading text",
			input:   `Here is my verdict: {"approved":true,"feedback":""}`,
			want:    `{"approved":true,"feedback":""}`,
			wantErr: false,
		},
		{
			name:    "JSON with trailing text",
			input:   `{"approved":false,"feedback":"fix the tests"} Hope this helps!`,
			want:    `{"approved":false,"feedback":"fix the tests"}`,
			wantErr: false,
		},
		{
			name:    "markdown-wrapped JSON",
			input:   "```json\n" + `{"approved":true,"feedback":""}` + "\n```",
			want:    `{"approved":true,"feedback":""}`,
			wantErr: false,
		},
		{
			name:    "bare fence wrapped JSON",
			input:   "```\n" + `{"approved":true,"feedback":""}` + "\n```",
			want:    `{"approved":true,"feedback":""}`,
			wantErr: false,
		},
		{
			name:    "nested JSON object",
			input:   `{"tasks":[{"title":"Task 1","content":"Do something","acceptanceCriteria":["test passes"]}]}`,
			want:    `{"tasks":[{"title":"Task 1","content":"Do something","acceptanceCriteria":["test passes"]}]}`,
			wantErr: false,
		},
		{
			name:    "invalid JSON",
			input:   `{"approved":true`,
			wantErr: true,
		},
		{
			name:    "no JSON",
			input:   `This is just plain text with no JSON`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "only braces without valid JSON",
			input:   `{invalid json content}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ExtractJSON() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("ExtractJSON() = %s, want %s", string(got), tt.want)
			}
		})
	}
}
