// Package ask composes the admission gates, the answer cache, the CV
// context and the completion client into the per-request pipeline.
package ask

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/dmarinova/cvgate/pkg/cache"
	"github.com/dmarinova/cvgate/pkg/document"
	"github.com/dmarinova/cvgate/pkg/ratelimit"
)

// Completer is the completion service collaborator: given a system
// instruction and a user message it returns generated text or fails.
type Completer interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Answer is the outcome of a successful ask.
type Answer struct {
	Text   string
	Cached bool
}

// Service runs the fixed admission pipeline for each question:
// configuration check, input validation, cooldown, daily quota, counter
// commit, cache lookup, completion call. The counters are consumed
// before the cache is consulted, so a cache hit still counts as
// activity against both limits.
type Service struct {
	doc              *document.Source
	limiter          *ratelimit.Limiter
	answers          *cache.AnswerCache
	completer        Completer
	subject          string
	maxQuestionChars int

	now    func() time.Time
	flight singleflight.Group
}

// New wires a Service. subject names the person the CV describes and is
// embedded in the completion persona.
func New(doc *document.Source, limiter *ratelimit.Limiter, answers *cache.AnswerCache, completer Completer, subject string, maxQuestionChars int) *Service {
	return &Service{
		doc:              doc,
		limiter:          limiter,
		answers:          answers,
		completer:        completer,
		subject:          subject,
		maxQuestionChars: maxQuestionChars,
		now:              time.Now,
	}
}

// Ready reports whether the service can answer at all: a completion
// credential is present and the CV document has text. It runs before
// any per-request work, so callers can fail fast without reading input.
func (s *Service) Ready() error {
	if !s.completer.Configured() {
		return ErrMissingCredential
	}
	if s.doc.Empty() {
		return ErrMissingDocument
	}
	return nil
}

// Ask answers one question from the given client identity.
func (s *Service) Ask(ctx context.Context, identity, question string) (Answer, error) {
	if err := s.Ready(); err != nil {
		return Answer{}, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrQuestionEmpty
	}
	if utf8.RuneCountInString(question) > s.maxQuestionChars {
		return Answer{}, &QuestionTooLongError{Max: s.maxQuestionChars}
	}

	now := s.now()
	dec := s.limiter.Reserve(identity, now)
	if !dec.Allowed {
		if dec.DailyLimited {
			return Answer{}, ErrDailyLimit
		}
		return Answer{}, &CooldownError{RetryAfterSeconds: dec.RetryAfterSeconds}
	}

	if text, ok := s.answers.Get(identity, question, now); ok {
		return Answer{Text: text, Cached: true}, nil
	}

	// Concurrent identical questions from one identity collapse into a
	// single upstream call; each caller has already consumed its counters.
	flightKey := identity + "\x00" + cache.NormalizeQuestion(question)
	v, err, _ := s.flight.Do(flightKey, func() (any, error) {
		text, err := s.completer.Complete(ctx, s.systemPrompt(), s.userPrompt(question))
		if err != nil {
			return nil, &UpstreamError{Err: err}
		}
		s.answers.Put(identity, question, text, s.now())
		return text, nil
	})
	if err != nil {
		return Answer{}, err
	}

	return Answer{Text: v.(string)}, nil
}

func (s *Service) systemPrompt() string {
	return fmt.Sprintf(
		"You are an assistant that answers questions about %s ONLY using the CV text provided. "+
			"If the answer is not explicitly supported by the CV, say you don't know and suggest what to ask instead. "+
			"Keep answers short (3-6 sentences).", s.subject)
}

func (s *Service) userPrompt(question string) string {
	return fmt.Sprintf("CV:\n%s\n\nQuestion: %s", s.doc.Context(), question)
}
