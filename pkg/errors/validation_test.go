package errors

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"numeric", "42", false},
		{"slug", "beach-tours", false},
		{"object id", "65f1c2a9e4b0a1b2c3d4e5f6", false},
		{"unicode", "пляж", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"slash", "a/b", true},
		{"backslash", "a\\b", true},
		{"null byte", "a\x00b", true},
		{"newline", "a\nb", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidID) {
				t.Errorf("ValidateID(%q) code = %v", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidateKeyPrefix(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"", false},
		{"clustermap:", false},
		{"user:123:", false},
		{"has space", true},
		{"tab\t", true},
		{strings.Repeat("p", 200), true},
	}

	for _, tt := range tests {
		if err := ValidateKeyPrefix(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateKeyPrefix(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "data/tree.json", false},
		{"absolute", "/var/lib/clustermap/tree.yaml", false},
		{"empty", "", true},
		{"traversal", "../secret", true},
		{"control", "a\x01b", true},
		{"too long", strings.Repeat("x", 600), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePath(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
