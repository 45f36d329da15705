package onboarding

import "strings"

// NextID computes the question that follows currentID given the stored
// answers. ok is false when the flow ends there: no route, an End route, or
// an exhausted rule set with no default.
//
// Pure and deterministic; identical inputs always produce identical outputs.
func NextID(currentID string, cfg *Config, answers AnswerBag) (next string, ok bool) {
	route, found := cfg.Routing[currentID]
	if !found {
		return "", false
	}

	switch route.Kind {
	case RouteEnd:
		return "", false
	case RouteNext:
		return route.Next, true
	case RouteRules:
		haystack := NormalizeValue(answers[currentID])
		for _, rule := range route.Rules {
			if ruleMatches(rule, haystack) {
				return rule.Target, true
			}
		}
		if route.Default != "" {
			return route.Default, true
		}
		return "", false
	default:
		return "", false
	}
}

// ruleMatches evaluates one rule against the normalized haystack. Unknown
// operators never match and never fail.
func ruleMatches(rule Rule, haystack string) bool {
	needle := Normalize(rule.Value)
	switch rule.Op {
	case "contains":
		return strings.Contains(haystack, needle)
	case "equals", "eq":
		return haystack == needle
	case "notcontains":
		return !strings.Contains(haystack, needle)
	default:
		return false
	}
}
