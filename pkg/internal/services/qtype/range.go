package qtype

import (
	"fmt"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/samber/lo"
)

// rangeHandler serves the numeric types: scales and thermometers. Each
// registration carries its own default bounds.
type rangeHandler struct {
	kind   string
	defMin float64
	defMax float64
}

func (h rangeHandler) bounds(conf models.RangeConfig) (float64, float64) {
	min := lo.FromPtrOr(conf.Min, h.defMin)
	max := lo.FromPtrOr(conf.Max, h.defMax)
	return min, max
}

func (h rangeHandler) ParseConfig(raw map[string]any) (any, error) {
	var cfg models.RangeConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ConfigError{Type: h.kind, Reason: err.Error()}
	}
	min, max := h.bounds(cfg)
	if min >= max {
		return nil, &ConfigError{Type: h.kind, Reason: fmt.Sprintf("min %v must be below max %v", min, max)}
	}
	if cfg.Step != nil && *cfg.Step <= 0 {
		return nil, &ConfigError{Type: h.kind, Reason: "step must be positive"}
	}
	return cfg, nil
}

func (h rangeHandler) Validate(cfg any, value any) error {
	conf, ok := cfg.(models.RangeConfig)
	if !ok {
		return &ConfigError{Type: h.kind, Reason: "config was not parsed"}
	}

	number, ok := toNumber(value)
	if !ok {
		return fmt.Errorf("value must be a number")
	}

	min, max := h.bounds(conf)
	if number < min || number > max {
		return fmt.Errorf("value %v is out of range [%v, %v]", number, min, max)
	}

	return nil
}

func (h rangeHandler) Aggregate(cfg any, values []any) Aggregate {
	distribution := make(map[string]float64)

	var sum float64
	var count int
	for _, value := range values {
		number, ok := toNumber(value)
		if !ok {
			continue
		}
		distribution[formatNumber(number)]++
		sum += number
		count++
	}

	out := Aggregate{Distribution: distribution}
	if count > 0 {
		out.Average = lo.ToPtr(sum / float64(count))
	}
	return out
}
