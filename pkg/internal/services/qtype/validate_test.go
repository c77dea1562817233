package qtype

import (
	"strings"
	"testing"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	viper.SetDefault("pie.sum_tolerance", 0.5)
}

func mustParse(t *testing.T, qt string, raw map[string]any) (Handler, any) {
	t.Helper()
	handler, ok := For(qt)
	require.True(t, ok, "handler for %s", qt)
	cfg, err := handler.ParseConfig(raw)
	require.NoError(t, err)
	return handler, cfg
}

func TestRegistryCoversEveryType(t *testing.T) {
	for _, qt := range []string{
		models.QuestionTypeTrafficLight,
		models.QuestionTypeEmotion,
		models.QuestionTypeScale,
		models.QuestionTypeThermometer,
		models.QuestionTypeSentenceCompletion,
		models.QuestionTypeFreeText,
		models.QuestionTypeMultiSelect,
		models.QuestionTypePie100,
	} {
		_, ok := For(qt)
		assert.True(t, ok, qt)
	}

	_, ok := For("ranking")
	assert.False(t, ok)
}

func TestChoiceValidate(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypeTrafficLight, map[string]any{
		"options": []map[string]any{
			{"value": "green", "label": "Going well"},
			{"value": "yellow", "label": "Some friction"},
			{"value": "red", "label": "Stuck"},
		},
	})

	assert.NoError(t, handler.Validate(cfg, "green"))
	assert.Error(t, handler.Validate(cfg, "GREEN"), "option match is case sensitive")
	assert.Error(t, handler.Validate(cfg, "blue"))
	assert.Error(t, handler.Validate(cfg, 42))

	// An empty option list accepts any string
	handler, cfg = mustParse(t, models.QuestionTypeEmotion, map[string]any{})
	assert.NoError(t, handler.Validate(cfg, "joy"))
}

func TestChoiceConfigRejectsOptionWithoutValue(t *testing.T) {
	handler, _ := For(models.QuestionTypeTrafficLight)
	_, err := handler.ParseConfig(map[string]any{
		"options": []map[string]any{{"label": "no value here"}},
	})
	assert.Error(t, err)
	assert.IsType(t, &ConfigError{}, err)
}

func TestScaleValidateDefaults(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypeScale, map[string]any{})

	assert.NoError(t, handler.Validate(cfg, float64(1)))
	assert.NoError(t, handler.Validate(cfg, float64(5)))
	assert.NoError(t, handler.Validate(cfg, "3"), "numeric strings coerce")

	err := handler.Validate(cfg, float64(6))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	assert.Error(t, handler.Validate(cfg, float64(0)))
	assert.Error(t, handler.Validate(cfg, "not a number"))
}

func TestThermometerValidateDefaults(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypeThermometer, map[string]any{})

	assert.NoError(t, handler.Validate(cfg, float64(10)))
	assert.Error(t, handler.Validate(cfg, float64(11)))
}

func TestRangeConfigRejectsInvertedBounds(t *testing.T) {
	handler, _ := For(models.QuestionTypeScale)
	_, err := handler.ParseConfig(map[string]any{"min": 10, "max": 1})
	assert.Error(t, err)
}

func TestMultiSelectValidate(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypeMultiSelect, map[string]any{
		"options": []map[string]any{
			{"value": "a", "label": "Alpha"},
			{"value": "b", "label": "Beta"},
			{"value": "c", "label": "Gamma"},
		},
		"min_choices": 1,
		"max_choices": 2,
	})

	assert.NoError(t, handler.Validate(cfg, []any{"a"}))
	assert.NoError(t, handler.Validate(cfg, []any{"a", "c"}))
	assert.Error(t, handler.Validate(cfg, []any{}), "below min choices")
	assert.Error(t, handler.Validate(cfg, []any{"a", "b", "c"}), "above max choices")
	assert.Error(t, handler.Validate(cfg, []any{"z"}), "unknown option")
	assert.Error(t, handler.Validate(cfg, "a"), "not a list")
}

func TestPieValidateSumTolerance(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypePie100, map[string]any{
		"categories": []map[string]any{
			{"id": "work", "label": "Work"},
			{"id": "rest", "label": "Rest"},
		},
	})

	assert.NoError(t, handler.Validate(cfg, map[string]any{"work": float64(60), "rest": float64(40)}))
	assert.NoError(t, handler.Validate(cfg, map[string]any{"work": float64(59.4), "rest": float64(40)}), "99.4 is inside tolerance")
	assert.NoError(t, handler.Validate(cfg, map[string]any{"work": float64(60.5), "rest": float64(40)}), "100.5 is inside tolerance")
	assert.Error(t, handler.Validate(cfg, map[string]any{"work": float64(59.3), "rest": float64(40)}), "99.3 is one tenth too far")
	assert.Error(t, handler.Validate(cfg, map[string]any{"work": float64(58), "rest": float64(40)}), "98 is outside tolerance")

	assert.NoError(t, handler.Validate(cfg, map[string]any{" Work ": float64(100)}), "keys are trimmed and case insensitive")
	assert.Error(t, handler.Validate(cfg, map[string]any{"play": float64(100)}), "unknown category")
	assert.Error(t, handler.Validate(cfg, map[string]any{"work": float64(-1), "rest": float64(101)}), "negative share")
}

func TestTextValidateLength(t *testing.T) {
	handler, cfg := mustParse(t, models.QuestionTypeFreeText, map[string]any{"placeholder": "Say more..."})

	assert.NoError(t, handler.Validate(cfg, "short enough"))
	assert.Error(t, handler.Validate(cfg, 12))

	long := make([]byte, maxTextAnswerLength+1)
	for i := range long {
		long[i] = 'x'
	}
	assert.Error(t, handler.Validate(cfg, string(long)))

	// Length is counted in characters, not bytes
	wide := strings.Repeat("реф", 600)
	assert.NoError(t, handler.Validate(cfg, wide), "1800 multibyte characters fit")
	assert.Error(t, handler.Validate(cfg, strings.Repeat("реф", 667)), "2001 characters do not")
}
