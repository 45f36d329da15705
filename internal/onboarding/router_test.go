package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func routerConfig() *Config {
	return &Config{
		Version: 3,
		Questions: map[string]QuestionDef{
			"1":  {Question: "Do you smoke or vape?", Type: QuestionSingleChoice, Options: []string{"🚬 Cigarettes", "💨 Vape", "Both"}},
			"2a": {Question: "How many cigarettes a day?", Type: QuestionTextInput},
			"2b": {Question: "How often do you vape?", Type: QuestionTextInput},
			"2c": {Question: "Tell us more", Type: QuestionTextInput},
			"3":  {Question: "When did you start?", Type: QuestionDatePicker},
		},
		Routing: map[string]RouteDef{
			"1": RulesTo([]Rule{
				{Op: "contains", Value: "cigarettes", Target: "2a"},
				{Op: "contains", Value: "vape", Target: "2b"},
			}, "2c"),
			"2a": NextTo("3"),
			"2b": NextTo("3"),
			"2c": NextTo("3"),
			"3":  End(),
		},
	}
}

func TestNextID_NoRouteEndsFlow(t *testing.T) {
	cfg := routerConfig()
	_, ok := NextID("unrouted", cfg, AnswerBag{})
	assert.False(t, ok)
}

func TestNextID_End(t *testing.T) {
	cfg := routerConfig()
	for _, answer := range []interface{}{nil, "anything", 42, []string{"a", "b"}} {
		_, ok := NextID("3", cfg, AnswerBag{"3": answer})
		assert.False(t, ok)
	}
}

func TestNextID_NextIgnoresAnswer(t *testing.T) {
	cfg := routerConfig()
	for _, answer := range []interface{}{nil, "whatever", false} {
		next, ok := NextID("2a", cfg, AnswerBag{"2a": answer})
		assert.True(t, ok)
		assert.Equal(t, "3", next)
	}
}

func TestNextID_RulesFirstMatchWins(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"q": RulesTo([]Rule{
				{Op: "contains", Value: "a", Target: "A"},
				{Op: "contains", Value: "b", Target: "B"},
			}, ""),
		},
	}

	next, ok := NextID("q", cfg, AnswerBag{"q": "ab"})
	assert.True(t, ok)
	assert.Equal(t, "A", next)
}

func TestNextID_RulesDefaultFallback(t *testing.T) {
	cfg := routerConfig()

	next, ok := NextID("1", cfg, AnswerBag{"1": "pipe tobacco"})
	assert.True(t, ok)
	assert.Equal(t, "2c", next)
}

func TestNextID_RulesNoMatchNoDefaultEnds(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"q": RulesTo([]Rule{{Op: "contains", Value: "x", Target: "X"}}, ""),
		},
	}

	_, ok := NextID("q", cfg, AnswerBag{"q": "nothing relevant"})
	assert.False(t, ok)
}

func TestNextID_NotContains(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"q": RulesTo([]Rule{{Op: "notcontains", Value: "yes", Target: "N"}}, "Y"),
		},
	}

	next, ok := NextID("q", cfg, AnswerBag{"q": "no thanks"})
	assert.True(t, ok)
	assert.Equal(t, "N", next)

	next, ok = NextID("q", cfg, AnswerBag{"q": "✅ Yes"})
	assert.True(t, ok)
	assert.Equal(t, "Y", next)
}

func TestNextID_EqualsOperator(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"q": RulesTo([]Rule{
				{Op: "equals", Value: "Both", Target: "B"},
				{Op: "eq", Value: "Neither", Target: "N"},
			}, "D"),
		},
	}

	tests := []struct {
		answer interface{}
		want   string
	}{
		{"both", "B"},
		{"✨ Both ✨", "B"},
		{"Neither", "N"},
		{"both of them", "D"}, // equals is exact, not substring
	}
	for _, tt := range tests {
		next, ok := NextID("q", cfg, AnswerBag{"q": tt.answer})
		assert.True(t, ok)
		assert.Equal(t, tt.want, next, "answer %v", tt.answer)
	}
}

func TestNextID_UnknownOperatorNeverMatches(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"q": RulesTo([]Rule{{Op: "regex", Value: ".*", Target: "R"}}, "D"),
		},
	}

	next, ok := NextID("q", cfg, AnswerBag{"q": "anything"})
	assert.True(t, ok)
	assert.Equal(t, "D", next)
}

func TestNextID_MultiChoiceAnswerMatchesAnyElement(t *testing.T) {
	cfg := routerConfig()

	next, ok := NextID("1", cfg, AnswerBag{"1": []string{"💨 Vape", "sometimes"}})
	assert.True(t, ok)
	assert.Equal(t, "2b", next)
}

func TestNextID_EmojiDecoratedAnswer(t *testing.T) {
	cfg := &Config{
		Routing: map[string]RouteDef{
			"1": RulesTo([]Rule{
				{Op: "contains", Value: "male", Target: "2a"},
				{Op: "contains", Value: "female", Target: "2b"},
			}, "2c"),
		},
	}

	next, ok := NextID("1", cfg, AnswerBag{"1": "🙋‍♂️ Male"})
	assert.True(t, ok)
	assert.Equal(t, "2a", next)
}

func TestNextID_Deterministic(t *testing.T) {
	cfg := routerConfig()
	answers := AnswerBag{"1": "🚬 Cigarettes"}

	first, ok := NextID("1", cfg, answers)
	assert.True(t, ok)
	for i := 0; i < 50; i++ {
		next, ok := NextID("1", cfg, answers)
		assert.True(t, ok)
		assert.Equal(t, first, next)
	}
}
