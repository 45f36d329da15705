package onboarding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RouteKind discriminates the three routing variants.
type RouteKind int

const (
	// RouteEnd terminates the flow.
	RouteEnd RouteKind = iota
	// RouteNext jumps unconditionally to Next.
	RouteNext
	// RouteRules evaluates ordered rules against the current answer.
	RouteRules
)

// Rule is one "operator:value" -> target entry of a conditional route.
type Rule struct {
	Op     string
	Value  string
	Target string
}

// RouteDef is the routing instruction attached to a question id.
//
// Wire shapes: null -> End, a bare string -> Next, an object -> Rules. In the
// object shape every key except the reserved "default" key is an
// "operator:value" rule; key order in the source JSON is the evaluation order.
type RouteDef struct {
	Kind    RouteKind
	Next    string
	Rules   []Rule
	Default string // fallback target for RouteRules; "" means end
}

// End constructs the terminating route.
func End() RouteDef { return RouteDef{Kind: RouteEnd} }

// NextTo constructs an unconditional jump.
func NextTo(id string) RouteDef { return RouteDef{Kind: RouteNext, Next: id} }

// RulesTo constructs a conditional route. Rule order is evaluation order.
func RulesTo(rules []Rule, def string) RouteDef {
	return RouteDef{Kind: RouteRules, Rules: rules, Default: def}
}

const defaultKey = "default"

func (r *RouteDef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = End()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var target string
		if err := json.Unmarshal(trimmed, &target); err != nil {
			return fmt.Errorf("routing entry: %w", err)
		}
		*r = NextTo(target)
		return nil
	case '{':
		return r.unmarshalRules(trimmed)
	default:
		return fmt.Errorf("routing entry: unsupported JSON shape %q", trimmed[0])
	}
}

// unmarshalRules decodes the object shape with a token stream so the source
// key order survives; encoding/json maps would scramble it.
func (r *RouteDef) unmarshalRules(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // opening brace
		return fmt.Errorf("routing entry: %w", err)
	}

	var rules []Rule
	var def string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("routing entry: %w", err)
		}
		key := keyTok.(string)

		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("routing entry %q: %w", key, err)
		}

		if key == defaultKey {
			def = target
			continue
		}

		op, value, ok := strings.Cut(key, ":")
		if !ok {
			// Malformed rule key: skipped, not an error.
			continue
		}
		rules = append(rules, Rule{Op: op, Value: value, Target: target})
	}

	*r = RulesTo(rules, def)
	return nil
}

func (r RouteDef) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RouteEnd:
		return []byte("null"), nil
	case RouteNext:
		return json.Marshal(r.Next)
	case RouteRules:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, rule := range r.Rules {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(rule.Op + ":" + rule.Value)
			target, _ := json.Marshal(rule.Target)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(target)
		}
		if r.Default != "" {
			if len(r.Rules) > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(defaultKey)
			target, _ := json.Marshal(r.Default)
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(target)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("routing entry: unknown kind %d", r.Kind)
	}
}
