package qtype

import (
	"fmt"
	"unicode/utf8"

	"github.com/reflectus-app/reflectus/pkg/internal/models"
)

const maxTextAnswerLength = 2000

// textHandler serves sentence completions and free text prompts.
type textHandler struct {
	kind string
}

func (h textHandler) ParseConfig(raw map[string]any) (any, error) {
	var cfg models.TextConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ConfigError{Type: h.kind, Reason: err.Error()}
	}
	return cfg, nil
}

func (h textHandler) Validate(cfg any, value any) error {
	if _, ok := cfg.(models.TextConfig); !ok {
		return &ConfigError{Type: h.kind, Reason: "config was not parsed"}
	}

	text, ok := value.(string)
	if !ok {
		return fmt.Errorf("value must be a string")
	}
	if utf8.RuneCountInString(text) > maxTextAnswerLength {
		return fmt.Errorf("text exceeds %d characters", maxTextAnswerLength)
	}

	return nil
}

// Aggregate builds a frequency table over literal answers. It is a coarse
// signal only, there is no text analysis behind it.
func (h textHandler) Aggregate(cfg any, values []any) Aggregate {
	distribution := make(map[string]float64)
	for _, value := range values {
		text, ok := value.(string)
		if !ok {
			if number, numeric := toNumber(value); numeric {
				text = formatNumber(number)
			} else {
				continue
			}
		}
		distribution[text]++
	}

	return Aggregate{Distribution: distribution}
}
