package ask

import (
	"errors"
	"fmt"
)

// Configuration errors are fixable only by the operator and surface as
// HTTP 500 without retry.
var (
	ErrMissingCredential = errors.New("LLM is not configured (missing DEEPSEEK_API_KEY)")
	ErrMissingDocument   = errors.New("CV text not found; put the resume text at the configured cv_path")
)

// ErrQuestionEmpty rejects a question that is blank after trimming.
var ErrQuestionEmpty = errors.New("please enter a question")

// ErrDailyLimit rejects a request over the per-day quota.
var ErrDailyLimit = errors.New("daily limit reached, try again tomorrow")

// QuestionTooLongError rejects a question over the character limit.
type QuestionTooLongError struct {
	Max int
}

func (e *QuestionTooLongError) Error() string {
	return fmt.Sprintf("keep questions under %d characters", e.Max)
}

// CooldownError rejects a request inside the cooldown window.
type CooldownError struct {
	RetryAfterSeconds int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("too many requests, try again in %ds", e.RetryAfterSeconds)
}

// UpstreamError wraps a completion service failure. The request's
// cooldown and quota were already consumed; there is no rollback and no
// retry.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion service failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
