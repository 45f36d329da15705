package onboarding

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/docstore"
)

const localConfigJSON = `{
  "version": 1,
  "questionMap": {
    "1": {"question": "Do you smoke or vape?", "type": "singleChoice", "options": ["Cigarettes", "Vape"]}
  },
  "routing": {"1": null}
}`

const remoteConfigJSON = `{
  "version": 2,
  "questionMap": {
    "1": {"question": "Do you smoke or vape?", "type": "singleChoice", "options": ["Cigarettes", "Vape"]},
    "2": {"question": "How many per day?", "type": "textInput"}
  },
  "routing": {"1": "2", "2": null}
}`

func writeLocalConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onboarding.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LocalOnly(t *testing.T) {
	loader := NewLoader(docstore.NewMemory(), writeLocalConfig(t, localConfigJSON), "config/onboarding", logger.Nop())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)
}

func TestLoader_RemoteOverridesLocal(t *testing.T) {
	mem := docstore.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "config/onboarding", json.RawMessage(remoteConfigJSON), false))

	loader := NewLoader(mem, writeLocalConfig(t, localConfigJSON), "config/onboarding", logger.Nop())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Version)
	assert.Len(t, cfg.Questions, 2)
}

func TestLoader_RemoteUsableWhenLocalBroken(t *testing.T) {
	mem := docstore.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "config/onboarding", json.RawMessage(remoteConfigJSON), false))

	loader := NewLoader(mem, writeLocalConfig(t, `{not json`), "config/onboarding", logger.Nop())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Version)
}

func TestLoader_LocalFallbackWhenRemoteInvalid(t *testing.T) {
	mem := docstore.NewMemory()
	// Remote document fails schema validation: routing target is a number.
	require.NoError(t, mem.Set(context.Background(), "config/onboarding",
		json.RawMessage(`{"version": 9, "questionMap": {}, "routing": {"1": 42}}`), false))

	loader := NewLoader(mem, writeLocalConfig(t, localConfigJSON), "config/onboarding", logger.Nop())

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)
}

func TestLoader_BothSourcesFailing(t *testing.T) {
	loader := NewLoader(docstore.NewMemory(), filepath.Join(t.TempDir(), "missing.json"), "config/onboarding", logger.Nop())

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConfigUnavailable, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestDecodeConfig_RulePreservation(t *testing.T) {
	raw := []byte(`{
	  "version": 1,
	  "questionMap": {"1": {"question": "q", "type": "textInput"}},
	  "routing": {"1": {"contains:b": "B", "contains:a": "A", "default": "C"}}
	}`)

	cfg, err := DecodeConfig(raw)
	require.NoError(t, err)

	route := cfg.Routing["1"]
	require.Len(t, route.Rules, 2)
	assert.Equal(t, "B", route.Rules[0].Target) // source order, not sorted
	assert.Equal(t, "A", route.Rules[1].Target)
}

func TestDecodeConfig_RejectsUnknownQuestionType(t *testing.T) {
	raw := []byte(`{
	  "version": 1,
	  "questionMap": {"1": {"question": "q", "type": "slider"}},
	  "routing": {}
	}`)

	_, err := DecodeConfig(raw)
	assert.Error(t, err)
}
