package dex

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		programID string
		want      string
	}{
		{"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", "Jupiter"},
		{"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc", "Orca"},
		{"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", "Raydium"},
		{"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P", "Pump"},
		{"notAProgram", "Unknown DEX"},
	}
	for _, tt := range tests {
		if got := Name(tt.programID); got != tt.want {
			t.Errorf("Name(%s) = %q, want %q", tt.programID, got, tt.want)
		}
	}
}

func TestFirstProgram(t *testing.T) {
	keys := []string{
		"walletAAAA",
		"tokenAccountBBBB",
		"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
	}
	if got := FirstProgram(keys); got != "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8" {
		t.Errorf("FirstProgram = %q, want Raydium program", got)
	}
	if got := FirstProgram([]string{"a", "b"}); got != "" {
		t.Errorf("FirstProgram with no DEX = %q, want empty", got)
	}
}
