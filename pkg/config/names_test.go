package config

import (
	"strings"
	"testing"
)

func TestValidateEntityName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "player", false},
		{"punctuation", "wall-north_2.b", false},
		{"max_length", strings.Repeat("a", MaxEntityNameLen), false},
		{"empty", "", true},
		{"too_long", strings.Repeat("a", MaxEntityNameLen+1), true},
		{"space", "big wall", true},
		{"control_character", "wall\x00", true},
		{"invalid_utf8", "wall\xff", true},
		{"markup", "<wall>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntityName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEntityName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
