package qtype

import (
	"fmt"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
)

type multiSelectHandler struct{}

func (h multiSelectHandler) ParseConfig(raw map[string]any) (any, error) {
	var cfg models.MultiSelectConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ConfigError{Type: models.QuestionTypeMultiSelect, Reason: err.Error()}
	}
	if len(cfg.Options) == 0 {
		return nil, &ConfigError{Type: models.QuestionTypeMultiSelect, Reason: "at least one option is required"}
	}
	for idx, option := range cfg.Options {
		if len(option.Value) == 0 {
			return nil, &ConfigError{Type: models.QuestionTypeMultiSelect, Reason: fmt.Sprintf("option #%d is missing a value", idx)}
		}
	}
	min, max := h.choiceBounds(cfg)
	if min < 0 || max < min {
		return nil, &ConfigError{Type: models.QuestionTypeMultiSelect, Reason: fmt.Sprintf("choice bounds [%d, %d] are inconsistent", min, max)}
	}
	return cfg, nil
}

func (h multiSelectHandler) choiceBounds(conf models.MultiSelectConfig) (int, int) {
	min := 0
	if conf.MinChoices != nil {
		min = *conf.MinChoices
	}
	max := len(conf.Options)
	if conf.MaxChoices != nil {
		max = *conf.MaxChoices
	}
	return min, max
}

func (h multiSelectHandler) Validate(cfg any, value any) error {
	conf, ok := cfg.(models.MultiSelectConfig)
	if !ok {
		return &ConfigError{Type: models.QuestionTypeMultiSelect, Reason: "config was not parsed"}
	}

	selected, err := toStringSlice(value)
	if err != nil {
		return err
	}

	allowed := make(map[string]bool, len(conf.Options))
	for _, option := range conf.Options {
		allowed[option.Value] = true
	}
	for _, pick := range selected {
		if !allowed[pick] {
			return fmt.Errorf("%q is not one of the configured options", pick)
		}
	}

	min, max := h.choiceBounds(conf)
	if len(selected) < min || len(selected) > max {
		return fmt.Errorf("pick between %d and %d options, got %d", min, max, len(selected))
	}

	return nil
}

func (h multiSelectHandler) Aggregate(cfg any, values []any) Aggregate {
	conf, _ := cfg.(models.MultiSelectConfig)
	labels := make(map[string]string, len(conf.Options))
	for _, option := range conf.Options {
		labels[option.Value] = option.Label
	}

	distribution := make(map[string]float64)
	for _, value := range values {
		selected, err := toStringSlice(value)
		if err != nil {
			continue
		}
		for _, pick := range selected {
			label, known := labels[pick]
			if !known {
				continue
			}
			if len(label) == 0 {
				label = pick
			}
			distribution[label]++
		}
	}

	return Aggregate{Distribution: distribution}
}

func toStringSlice(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			text, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("every selection must be a string")
			}
			out = append(out, text)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value must be a list of strings")
	}
}
