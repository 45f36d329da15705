package onboarding

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// QuestionType enumerates the renderable question kinds.
type QuestionType string

const (
	QuestionTextInput    QuestionType = "textInput"
	QuestionSingleChoice QuestionType = "singleChoice"
	QuestionMultiChoice  QuestionType = "multiChoice"
	QuestionDatePicker   QuestionType = "datePicker"
	QuestionImageCapture QuestionType = "imageCapture"
)

// QuestionDef is one node in the question graph. Immutable after load.
type QuestionDef struct {
	Question string       `json:"question"`
	Type     QuestionType `json:"type"`
	Options  []string     `json:"options,omitempty"`
}

// Config is the versioned questionnaire: the question map plus the routing
// graph. Read-only for the duration of a session.
type Config struct {
	Version   int                    `json:"version"`
	Questions map[string]QuestionDef `json:"questionMap"`
	Routing   map[string]RouteDef    `json:"routing"`
}

// AnswerBag maps question ids to answer values (string, bool, number,
// []string or nil). Owned by the flow controller.
type AnswerBag map[string]interface{}

// configSchema gates the raw document before decode. Routing entries may be
// null, a target string, or a rules object whose values are target strings.
const configSchema = `{
  "type": "object",
  "required": ["version", "questionMap", "routing"],
  "properties": {
    "version": {"type": "integer"},
    "questionMap": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["question", "type"],
        "properties": {
          "question": {"type": "string"},
          "type": {"enum": ["textInput", "singleChoice", "multiChoice", "datePicker", "imageCapture"]},
          "options": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "routing": {
      "type": "object",
      "additionalProperties": {
        "anyOf": [
          {"type": "null"},
          {"type": "string"},
          {"type": "object", "additionalProperties": {"type": "string"}}
        ]
      }
    }
  }
}`

var compiledConfigSchema = gojsonschema.NewStringLoader(configSchema)

// DecodeConfig validates and decodes one questionnaire document.
func DecodeConfig(data []byte) (*Config, error) {
	result, err := gojsonschema.Validate(compiledConfigSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("onboarding config: validate: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("onboarding config: schema violation: %s", result.Errors()[0].String())
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("onboarding config: decode: %w", err)
	}
	if cfg.Questions == nil {
		cfg.Questions = map[string]QuestionDef{}
	}
	if cfg.Routing == nil {
		cfg.Routing = map[string]RouteDef{}
	}
	return &cfg, nil
}
