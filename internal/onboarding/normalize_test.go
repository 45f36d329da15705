package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain lowercase", "yes", "yes"},
		{"uppercase", "YES", "yes"},
		{"emoji prefix", "✅ Yes", "yes"},
		{"man emoji answer", "🙋‍♂️ Male", "male"},
		{"diacritics and punctuation", "  Über-Cool!! ", "uber cool"},
		{"punctuation runs collapse", "a---b...c", "a b c"},
		{"interior whitespace collapses", "one   two", "one two"},
		{"digits kept", "10 per day", "10 per day"},
		{"cjk stripped", "はい yes", "yes"},
		{"empty", "", ""},
		{"only decoration", "✨🎉!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"✅ Yes", "  Über-Cool!! ", "No thanks", "🙋‍♂️ Male", "", "a---b", "Café au lait",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  string
	}{
		{"nil", nil, ""},
		{"string", "✅ Yes", "yes"},
		{"bool", true, "true"},
		{"int", 12, "12"},
		{"float", 2.5, "2.5"},
		{"string slice joined", []string{"Gum", "Patches"}, "gum patches"},
		{"interface slice joined", []interface{}{"🚬 Cigarettes", "Vape"}, "cigarettes vape"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.input))
		})
	}
}
