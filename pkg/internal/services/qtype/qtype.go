package qtype

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/reflectus-app/reflectus/pkg/internal/models"
)

// Handler binds one question type to its config schema, value contract and
// aggregation rule. Handlers are pure and hold no state.
type Handler interface {
	// ParseConfig decodes and checks the raw config map, returning the
	// typed config on success.
	ParseConfig(raw map[string]any) (any, error)
	// Validate checks a submitted primary value against the parsed config.
	Validate(cfg any, value any) error
	// Aggregate folds all answered values of one question into a summary.
	Aggregate(cfg any, values []any) Aggregate
}

// Aggregate is the per-question analytics summary. Distribution carries
// occurrence counts for most types and mean allocations for pie questions.
type Aggregate struct {
	Average      *float64           `json:"average,omitempty"`
	Distribution map[string]float64 `json:"distribution"`
}

type ConfigError struct {
	Type   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bad %s config: %s", e.Type, e.Reason)
}

var registry = map[string]Handler{
	models.QuestionTypeTrafficLight:       choiceHandler{kind: models.QuestionTypeTrafficLight},
	models.QuestionTypeEmotion:            choiceHandler{kind: models.QuestionTypeEmotion},
	models.QuestionTypeScale:              rangeHandler{kind: models.QuestionTypeScale, defMin: 1, defMax: 5},
	models.QuestionTypeThermometer:        rangeHandler{kind: models.QuestionTypeThermometer, defMin: 1, defMax: 10},
	models.QuestionTypeMultiSelect:        multiSelectHandler{},
	models.QuestionTypePie100:             pieHandler{},
	models.QuestionTypeSentenceCompletion: textHandler{kind: models.QuestionTypeSentenceCompletion},
	models.QuestionTypeFreeText:           textHandler{kind: models.QuestionTypeFreeText},
}

// For looks the handler of a question type up.
func For(qt string) (Handler, bool) {
	handler, ok := registry[qt]
	return handler, ok
}

// ParseConfig is a convenience dispatch over For.
func ParseConfig(qt string, raw map[string]any) (any, error) {
	handler, ok := For(qt)
	if !ok {
		return nil, &ConfigError{Type: qt, Reason: "unknown question type"}
	}
	return handler.ParseConfig(raw)
}

func decodeConfig(raw map[string]any, out any) error {
	buf, err := jsoniter.Marshal(raw)
	if err != nil {
		return err
	}
	return jsoniter.Unmarshal(buf, out)
}

// toNumber coerces a decoded JSON value into a finite float.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case jsoniter.Number:
		parsed, err := v.Float64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return parsed, err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0)
	default:
		return 0, false
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
