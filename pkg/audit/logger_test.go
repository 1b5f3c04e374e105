package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmarinova/cvgate/pkg/models"
)

func setup(t *testing.T, cfg models.AuditConfig) (*Logger, context.Context) {
	t.Helper()
	cfg.DBPath = filepath.Join(t.TempDir(), "audit_test.db")
	l, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, context.Background()
}

func record(id string) models.AskRecord {
	hash, prefix := HashIdentity("203.0.113.7")
	return models.AskRecord{
		RequestID:      id,
		IdentityHash:   hash,
		IdentityPrefix: prefix,
		Question:       "What is her field?",
		Answer:         "Marketing.",
		Cached:         false,
		StatusCode:     200,
		LatencyMs:      412,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, LogAnswers: true, RetentionDays: 30})

	if err := l.Log(ctx, record("req-1")); err != nil {
		t.Fatal(err)
	}

	records, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}
	r := records[0]
	if r.Question != "What is her field?" || r.Answer != "Marketing." {
		t.Errorf("record = %+v", r)
	}
	if r.IdentityHash == "" || r.IdentityPrefix != "203.0.11" {
		t.Errorf("identity hash/prefix = %q/%q", r.IdentityHash, r.IdentityPrefix)
	}
}

func TestLogRespectsRedaction(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, LogAnswers: false, RetentionDays: 30})

	if err := l.Log(ctx, record("req-1")); err != nil {
		t.Fatal(err)
	}

	records, err := l.Query(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if records[0].Answer != "" {
		t.Error("answers should be redacted when log_answers is off")
	}
	if records[0].Question == "" {
		t.Error("questions should be kept when log_questions is on")
	}
}

func TestLogCapsBodySize(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, LogAnswers: true, MaxBodySize: 5, RetentionDays: 30})

	if err := l.Log(ctx, record("req-1")); err != nil {
		t.Fatal(err)
	}

	records, err := l.Query(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if got := records[0].Question; got != "What " {
		t.Errorf("question = %q, want 5-byte cap", got)
	}
}

func TestQueryFilters(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, RetentionDays: 30})

	ok := record("req-ok")
	denied := record("req-denied")
	denied.StatusCode = 429
	if err := l.Log(ctx, ok); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(ctx, denied); err != nil {
		t.Fatal(err)
	}

	records, err := l.Query(ctx, models.AuditQueryOpts{StatusCode: 429})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].RequestID != "req-denied" {
		t.Errorf("records = %+v", records)
	}
}

func TestStats(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, RetentionDays: 30})

	fresh := record("req-1")
	cached := record("req-2")
	cached.Cached = true
	denied := record("req-3")
	denied.StatusCode = 429
	for _, r := range []models.AskRecord{fresh, cached, denied} {
		if err := l.Log(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("got %d stat rows", len(stats))
	}
	s := stats[0]
	if s.Total != 3 || s.Cached != 1 || s.Rejected != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestCleanup(t *testing.T) {
	l, ctx := setup(t, models.AuditConfig{LogQuestions: true, RetentionDays: 7})

	old := record("req-old")
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -30)
	recent := record("req-recent")
	if err := l.Log(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(ctx, recent); err != nil {
		t.Fatal(err)
	}

	n, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("cleanup removed %d, want 1", n)
	}

	records, err := l.Query(ctx, models.AuditQueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].RequestID != "req-recent" {
		t.Errorf("records = %+v", records)
	}
}

func TestHashIdentity(t *testing.T) {
	hash1, prefix := HashIdentity("203.0.113.7")
	hash2, _ := HashIdentity("203.0.113.7")
	hash3, _ := HashIdentity("203.0.113.8")

	if hash1 != hash2 {
		t.Error("hashing should be deterministic")
	}
	if hash1 == hash3 {
		t.Error("different identities should hash differently")
	}
	if prefix != "203.0.11" {
		t.Errorf("prefix = %q", prefix)
	}

	_, short := HashIdentity("::1")
	if short != "::1" {
		t.Errorf("short identity prefix = %q", short)
	}
}
