package models

// AskRequest is the body of POST /api/ask-cv.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the success body of POST /api/ask-cv.
type AskResponse struct {
	Answer string `json:"answer"`
	Cached bool   `json:"cached"`
}

// ErrorResponse is the body of every failed API request. RetryAfterSeconds
// is set only for cooldown rejections.
type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
