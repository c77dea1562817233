package services

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateSubmission is raised both by the pre-check and by the storage
// unique index when a second submission races past it.
var ErrDuplicateSubmission = errors.New("a response was already submitted for this activity")

// ValidationError rejects a submission at the first failing question.
type ValidationError struct {
	Prompt string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Prompt) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Prompt, e.Reason)
}

// StateError rejects operations on activities in the wrong lifecycle state
// or outside their submission window.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

// PrivacyGuardError refuses reads on anonymous activities whose cohort is
// still too small to be shown without re-identification risk.
type PrivacyGuardError struct {
	MinCount     int `json:"min_count"`
	CurrentCount int `json:"current_count"`
}

func (e *PrivacyGuardError) Error() string {
	return fmt.Sprintf("not enough responses to protect anonymity (%d of %d required)", e.CurrentCount, e.MinCount)
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}
