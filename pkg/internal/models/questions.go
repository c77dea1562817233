package models

import (
	"gorm.io/datatypes"
)

const (
	QuestionTypeTrafficLight       = "traffic_light"
	QuestionTypeEmotion            = "emotion"
	QuestionTypeScale              = "scale"
	QuestionTypeThermometer        = "thermometer"
	QuestionTypeSentenceCompletion = "sentence_completion"
	QuestionTypeFreeText           = "free_text"
	QuestionTypeMultiSelect        = "multi_select"
	QuestionTypePie100             = "pie_100"
)

type Question struct {
	BaseModel

	Prompt     string `json:"prompt"`
	HelperText string `json:"helper_text"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	Order      int    `json:"order"`

	Config datatypes.JSONMap `json:"config"`

	// FollowUp questions are presented when the primary answer
	// was marked as unknown.
	FollowUp datatypes.JSONSlice[FollowUpQuestion] `json:"follow_up"`

	QuestionnaireID uint `json:"questionnaire_id"`
}

type FollowUpQuestion struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Typed question configurations. Raw config maps are decoded into these
// by the qtype registry before any validation or aggregation happens.

type ChoiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type ChoiceConfig struct {
	Options []ChoiceOption `json:"options"`
}

type RangeConfig struct {
	Min        *float64 `json:"min"`
	Max        *float64 `json:"max"`
	Step       *float64 `json:"step"`
	Statements []string `json:"statements"`
}

type MultiSelectConfig struct {
	Options    []ChoiceOption `json:"options"`
	MinChoices *int           `json:"min_choices"`
	MaxChoices *int           `json:"max_choices"`
}

type PieCategory struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type PieConfig struct {
	Categories []PieCategory `json:"categories"`
}

type TextConfig struct {
	Placeholder string `json:"placeholder"`
}
