package bot

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser("RewardBot")

	tests := []struct {
		name      string
		text      string
		wantCmd   string
		wantArgs  []string
		isCommand bool
	}{
		{"plain text", "hello there", "", nil, false},
		{"empty", "", "", nil, false},
		{"bare slash", "/", "", nil, false},
		{"simple command", "/balance", "balance", nil, true},
		{"uppercase normalized", "/Balance", "balance", nil, true},
		{"command with args", "/penalty 123 60", "penalty", []string{"123", "60"}, true},
		{"leading whitespace", "  /start  ", "start", nil, true},
		{"addressed to us", "/balance@RewardBot", "balance", nil, true},
		{"addressed to us mixed case", "/balance@rewardbot", "balance", nil, true},
		{"addressed to other bot", "/balance@SomeOtherBot", "", nil, false},
		{"bare at-sign", "/@RewardBot", "", nil, false},
		{"extra spaces between args", "/find   asha", "find", []string{"asha"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			if ok != tt.isCommand {
				t.Fatalf("isCommand = %v, want %v", ok, tt.isCommand)
			}
			if cmd != tt.wantCmd {
				t.Errorf("cmd = %q, want %q", cmd, tt.wantCmd)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}
