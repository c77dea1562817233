package models

import (
	"gorm.io/datatypes"
)

const (
	AnswerStatusAnswered = "answered"
	AnswerStatusUnknown  = "unknown"
	AnswerStatusDeclined = "declined"
)

type Response struct {
	BaseModel

	ActivityID uint `json:"activity_id" gorm:"uniqueIndex:idx_response_identity"`

	// IdentityKey is the submitter's account id for named activities, or a
	// keyed hash for anonymous ones. The unique index across it and the
	// activity is what actually rejects the second submission of a racing
	// pair.
	IdentityKey string `json:"-" gorm:"uniqueIndex:idx_response_identity"`

	// AccountID is only kept for named activities.
	AccountID *uint `json:"account_id,omitempty"`

	Language string `json:"language"`

	Answers []Answer `json:"answers"`
}

type Answer struct {
	BaseModel

	QuestionID uint   `json:"question_id"`
	Status     string `json:"status"`

	// Value holds the raw submitted value; its shape depends on the
	// question type (string, number, string list or allocation map).
	// Stored as text so bare JSON scalars survive drivers with column
	// affinity, sqlite would otherwise hand a number back as int64.
	Value datatypes.JSON `json:"value" gorm:"type:text"`

	FollowUpAnswers datatypes.JSONSlice[FollowUpAnswer] `json:"follow_up_answers"`

	ResponseID uint `json:"response_id"`
}

type FollowUpAnswer struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
	Value  string `json:"value"`
}
