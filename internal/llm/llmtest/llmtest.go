// Package llmtest provides scripted llm.Client doubles for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Reply is one scripted response: text, or an error when Err is set.
type Reply struct {
	Text string
	Err  error
}

// Scripted returns its replies in order and records every prompt it was sent.
// Once the script is exhausted it returns Fallback, or an error when Fallback
// is nil.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	prompts  []string
	Fallback *Reply
}

// NewScripted builds a client that answers with the given replies in order.
func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Text is shorthand for a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail is shorthand for a failed call.
func Fail(err error) Reply { return Reply{Err: err} }

// Generate implements llm.Client.
func (s *Scripted) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)

	var r Reply
	switch {
	case len(s.replies) > 0:
		r = s.replies[0]
		s.replies = s.replies[1:]
	case s.Fallback != nil:
		r = *s.Fallback
	default:
		return "", eris.New("llmtest: script exhausted")
	}
	return r.Text, r.Err
}

// Prompts returns a copy of the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls returns how many times Generate was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
