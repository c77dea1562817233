package qtype

import (
	"fmt"
	"math"
	"strings"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
	"github.com/spf13/viper"
)

const pieTargetSum = 100

type pieHandler struct{}

func (h pieHandler) ParseConfig(raw map[string]any) (any, error) {
	var cfg models.PieConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ConfigError{Type: models.QuestionTypePie100, Reason: err.Error()}
	}
	if len(cfg.Categories) == 0 {
		return nil, &ConfigError{Type: models.QuestionTypePie100, Reason: "at least one category is required"}
	}
	for idx, category := range cfg.Categories {
		if len(category.ID) == 0 && len(category.Label) == 0 {
			return nil, &ConfigError{Type: models.QuestionTypePie100, Reason: fmt.Sprintf("category #%d has neither id nor label", idx)}
		}
	}
	return cfg, nil
}

// categoryKeys maps every normalized id and label onto the category's
// canonical display key.
func (h pieHandler) categoryKeys(conf models.PieConfig) map[string]string {
	keys := make(map[string]string, len(conf.Categories)*2)
	for _, category := range conf.Categories {
		display := category.Label
		if len(display) == 0 {
			display = category.ID
		}
		if len(category.ID) > 0 {
			keys[normalizePieKey(category.ID)] = display
		}
		if len(category.Label) > 0 {
			keys[normalizePieKey(category.Label)] = display
		}
	}
	return keys
}

func (h pieHandler) Validate(cfg any, value any) error {
	conf, ok := cfg.(models.PieConfig)
	if !ok {
		return &ConfigError{Type: models.QuestionTypePie100, Reason: "config was not parsed"}
	}

	allocations, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("value must be a category to share mapping")
	}

	keys := h.categoryKeys(conf)
	var sum float64
	for key, raw := range allocations {
		if _, known := keys[normalizePieKey(key)]; !known {
			return fmt.Errorf("%q is not one of the configured categories", key)
		}
		share, ok := toNumber(raw)
		if !ok || share < 0 {
			return fmt.Errorf("share of %q must be a number of at least zero", key)
		}
		sum += share
	}

	// Shares carry at most one decimal of precision, so the deviation is
	// judged in tenths and the band runs one tenth past the configured
	// tolerance. A sum of 99.4 passes under the default 0.5.
	tolerance := viper.GetFloat64("pie.sum_tolerance")
	deviation := math.Round(math.Abs(sum-pieTargetSum) * 10)
	if deviation > math.Round((tolerance+0.1)*10) {
		return fmt.Errorf("shares must sum to %d, got %v", pieTargetSum, sum)
	}

	return nil
}

func (h pieHandler) Aggregate(cfg any, values []any) Aggregate {
	conf, _ := cfg.(models.PieConfig)
	keys := h.categoryKeys(conf)

	totals := make(map[string]float64)
	var relevant int
	for _, value := range values {
		allocations, ok := value.(map[string]any)
		if !ok {
			continue
		}
		relevant++
		for key, raw := range allocations {
			display, known := keys[normalizePieKey(key)]
			if !known {
				continue
			}
			share, ok := toNumber(raw)
			if !ok {
				continue
			}
			totals[display] += share
		}
	}

	distribution := make(map[string]float64)
	if relevant > 0 {
		for _, category := range conf.Categories {
			display := category.Label
			if len(display) == 0 {
				display = category.ID
			}
			distribution[display] = math.Round(totals[display]/float64(relevant)*100) / 100
		}
	}

	return Aggregate{Distribution: distribution}
}

func normalizePieKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
