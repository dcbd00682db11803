package sanitizex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSingleLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"basic trimming", "  hello world  ", "hello world"},
		{"collapse spaces", "hello    world", "hello world"},
		{"newlines", "hello\nworld", "hello world"},
		{"tabs and carriage returns", "hello\t\r\nworld", "hello world"},
		{"control characters", "hel\x00lo\x7f", "hel lo"},
		{"only whitespace", " \t\n ", ""},
		{"nfc normalization", "é", "é"},
		{"email unchanged", "user@example.com", "user@example.com"},
		{"unicode spaces", "a  b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanSingleLine(tt.input))
		})
	}
}

func TestCompactCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"123456", "123456"},
		{" 123 456 ", "123456"},
		{"123-456", "123456"},
		{"１２３４５６", "123456"},
		{"12\t34\n56", "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompactCode(tt.input))
		})
	}
}
