package onboarding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteDef_DecodeNull(t *testing.T) {
	var r RouteDef
	require.NoError(t, json.Unmarshal([]byte(`null`), &r))
	assert.Equal(t, RouteEnd, r.Kind)
}

func TestRouteDef_DecodeString(t *testing.T) {
	var r RouteDef
	require.NoError(t, json.Unmarshal([]byte(`"2a"`), &r))
	assert.Equal(t, RouteNext, r.Kind)
	assert.Equal(t, "2a", r.Next)
}

func TestRouteDef_DecodeRulesPreservesOrder(t *testing.T) {
	raw := `{"contains:male":"2a","contains:female":"2b","default":"2c"}`

	var r RouteDef
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, RouteRules, r.Kind)
	require.Len(t, r.Rules, 2)
	assert.Equal(t, Rule{Op: "contains", Value: "male", Target: "2a"}, r.Rules[0])
	assert.Equal(t, Rule{Op: "contains", Value: "female", Target: "2b"}, r.Rules[1])
	assert.Equal(t, "2c", r.Default)
}

func TestRouteDef_DecodeRules_MalformedKeySkipped(t *testing.T) {
	raw := `{"nocolonhere":"X","contains:yes":"Y"}`

	var r RouteDef
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	require.Len(t, r.Rules, 1)
	assert.Equal(t, "Y", r.Rules[0].Target)
}

func TestRouteDef_DecodeEmptyObject(t *testing.T) {
	var r RouteDef
	require.NoError(t, json.Unmarshal([]byte(`{}`), &r))

	// Empty rules with no default behaves like End at evaluation time.
	assert.Equal(t, RouteRules, r.Kind)
	assert.Empty(t, r.Rules)
	assert.Empty(t, r.Default)
}

func TestRouteDef_DecodeRejectsOtherShapes(t *testing.T) {
	var r RouteDef
	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &r))
}

func TestRouteDef_MarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"end", `null`},
		{"next", `"7"`},
		{"rules", `{"contains:a":"A","notcontains:b":"B","default":"C"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r RouteDef
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &r))
			out, err := json.Marshal(r)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, string(out))
		})
	}
}
