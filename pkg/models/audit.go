package models

import "time"

// AskRecord represents a single audited ask request.
type AskRecord struct {
	RequestID      string    `json:"request_id"`
	IdentityHash   string    `json:"identity_hash"`
	IdentityPrefix string    `json:"identity_prefix"`
	Question       string    `json:"question,omitempty"`
	Answer         string    `json:"answer,omitempty"`
	Cached         bool      `json:"cached"`
	StatusCode     int       `json:"status_code"`
	LatencyMs      int64     `json:"latency_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// AuditConfig controls the ask audit log.
type AuditConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
	LogQuestions  bool   `yaml:"log_questions"`
	LogAnswers    bool   `yaml:"log_answers"`
	MaxBodySize   int    `yaml:"max_body_size"` // bytes
}

// AuditQueryOpts specifies filters for querying audit records.
type AuditQueryOpts struct {
	RequestID      string
	IdentityPrefix string
	Since          time.Time
	StatusCode     int
	Limit          int
}

// AuditStat holds aggregate ask counts for a single day.
type AuditStat struct {
	Day      string
	Total    int
	Cached   int
	Rejected int
}
