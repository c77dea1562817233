package qtype

import (
	"fmt"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/samber/lo"
)

// choiceHandler serves the single-choice types: traffic lights and emotions.
type choiceHandler struct {
	kind string
}

func (h choiceHandler) ParseConfig(raw map[string]any) (any, error) {
	var cfg models.ChoiceConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ConfigError{Type: h.kind, Reason: err.Error()}
	}
	for idx, option := range cfg.Options {
		if len(option.Value) == 0 {
			return nil, &ConfigError{Type: h.kind, Reason: fmt.Sprintf("option #%d is missing a value", idx)}
		}
	}
	return cfg, nil
}

func (h choiceHandler) Validate(cfg any, value any) error {
	conf, ok := cfg.(models.ChoiceConfig)
	if !ok {
		return &ConfigError{Type: h.kind, Reason: "config was not parsed"}
	}

	picked, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}

	// An empty option list accepts any string.
	if len(conf.Options) == 0 {
		return nil
	}

	if !lo.ContainsBy(conf.Options, func(option models.ChoiceOption) bool {
		return option.Value == picked
	}) {
		return fmt.Errorf("%q is not one of the configured options", picked)
	}

	return nil
}

func (h choiceHandler) Aggregate(cfg any, values []any) Aggregate {
	conf, _ := cfg.(models.ChoiceConfig)
	labels := make(map[string]string, len(conf.Options))
	for _, option := range conf.Options {
		labels[option.Value] = option.Label
	}

	distribution := make(map[string]float64)
	for _, value := range values {
		picked, ok := value.(string)
		if !ok {
			continue
		}
		if len(conf.Options) > 0 {
			label, known := labels[picked]
			if !known {
				continue
			}
			if len(label) > 0 {
				picked = label
			}
		}
		distribution[picked]++
	}

	return Aggregate{Distribution: distribution}
}
