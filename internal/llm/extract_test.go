package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseProposalRoundTrip(t *testing.T) {
	proposals := []CommandProposal{
		{Command: "ls -la", Explanation: "List all files, including hidden ones."},
		{Command: `grep -r "TODO {x}" .`, Explanation: "Search for braces } and quotes \" in files."},
		{Command: "echo 你好", Explanation: " leading and trailing spaces "},
		{},
	}

	for _, want := range proposals {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reply := "Sure! Here is the command:\n" + string(data) + "\nLet me know if you need more."

		got, err := ParseProposal(reply)
		if err != nil {
			t.Fatalf("ParseProposal(%q): %v", reply, err)
		}
		if got != want {
			t.Fatalf("ParseProposal = %+v, want %+v", got, want)
		}
	}
}

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		want     CommandProposal
		wantKind GenerationErrorKind
		wantErr  bool
	}{
		{
			name:  "plain json",
			reply: `{"command":"df -h","explanation":"disk usage"}`,
			want:  CommandProposal{Command: "df -h", Explanation: "disk usage"},
		},
		{
			name:  "fenced json",
			reply: "```json\n{\"command\": \"uptime\", \"explanation\": \"load\"}\n```",
			want:  CommandProposal{Command: "uptime", Explanation: "load"},
		},
		{
			name:  "multiline object",
			reply: "{\n  \"command\": \"pwd\",\n  \"explanation\": \"print dir\"\n}",
			want:  CommandProposal{Command: "pwd", Explanation: "print dir"},
		},
		{
			name:  "missing explanation tolerated",
			reply: `{"command":"whoami"}`,
			want:  CommandProposal{Command: "whoami"},
		},
		{
			name:  "missing both keys tolerated",
			reply: `{"note":"nothing to do"}`,
			want:  CommandProposal{},
		},
		{
			name:  "non string values coerced",
			reply: `{"command": 42, "explanation": true}`,
			want:  CommandProposal{Command: "42", Explanation: "true"},
		},
		{
			name:  "first invalid candidate skipped",
			reply: `{oops} then {"command":"date","explanation":"time"}`,
			want:  CommandProposal{Command: "date", Explanation: "time"},
		},
		{
			name:  "stray brace before object",
			reply: `Note: a lone { starts a block in sh. Here you go: {"command":"ls","explanation":"list"}`,
			want:  CommandProposal{Command: "ls", Explanation: "list"},
		},
		{
			name:     "unbalanced braces",
			reply:    `{"command": "echo }`,
			wantErr:  true,
			wantKind: ErrInvalidJSON,
		},
		{
			name:     "no braces",
			reply:    "I cannot help with that.",
			wantErr:  true,
			wantKind: ErrUnparsable,
		},
		{
			name:     "empty reply",
			reply:    "",
			wantErr:  true,
			wantKind: ErrUnparsable,
		},
		{
			name:     "unterminated object",
			reply:    `{"command": "ls"`,
			wantErr:  true,
			wantKind: ErrUnparsable,
		},
		{
			name:     "trailing comma",
			reply:    `{"command": "ls", "explanation": "list",}`,
			wantErr:  true,
			wantKind: ErrInvalidJSON,
		},
		{
			name:     "single quotes",
			reply:    `{'command': 'ls'}`,
			wantErr:  true,
			wantKind: ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProposal(tt.reply)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %+v, want %+v", got, tt.want)
				}
				return
			}

			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("err = %v, want *GenerationError", err)
			}
			if genErr.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", genErr.Kind, tt.wantKind)
			}
			if genErr.Raw != tt.reply {
				t.Fatalf("raw = %q, want original reply %q", genErr.Raw, tt.reply)
			}
		})
	}
}

func TestJSONObjectCandidates(t *testing.T) {
	got := jsonObjectCandidates(`a {"x":"}"} b { stray {"y":{"z":1}} {"esc":"\"}"}`)
	want := []string{`{"x":"}"}`, `{"y":{"z":1}}`, `{"esc":"\"}"}`}
	if len(got) != len(want) {
		t.Fatalf("candidates = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d = %q, want %q", i, got[i], want[i])
		}
	}
}
