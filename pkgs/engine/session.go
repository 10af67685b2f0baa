package engine

import (
	"sync"

	"github.com/dgenies/batchdsl/pkgs/config"
	"github.com/dgenies/batchdsl/pkgs/invariant"
)

// Session publishes the results of successive passes over the same batch.
// Passes may run concurrently; a pass that started before the latest
// published one is discarded, so the newest text always wins.
type Session struct {
	env  *config.Environment
	opts []Option

	mu        sync.Mutex
	started   uint64
	published uint64
	current   Result
}

// NewSession creates a session validating against env
func NewSession(env *config.Environment, opts ...Option) *Session {
	invariant.NotNil(env, "env")
	return &Session{env: env, opts: opts}
}

// Pass is one in-flight validation, ordered by when it began
type Pass struct {
	session    *Session
	generation uint64
}

// Begin reserves the next generation. Call it when the input is read,
// not when validation finishes.
func (s *Session) Begin() *Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return &Pass{session: s, generation: s.started}
}

// Publish makes res the session's current result unless a newer pass
// already published. It reports whether res was kept.
func (p *Pass) Publish(res Result) bool {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.generation < s.published {
		return false
	}
	s.published = p.generation
	s.current = res
	return true
}

// Run validates text in a new pass and publishes the result. The returned
// result is the session's current one, which is res unless a newer pass
// overtook this one.
func (s *Session) Run(text string, uploaded []string) (Result, bool) {
	pass := s.Begin()
	res := Validate(text, s.env, uploaded, s.opts...)
	if pass.Publish(res) {
		return res, true
	}
	current, _ := s.Current()
	return current, false
}

// Current returns the last published result, if any
func (s *Session) Current() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.published > 0
}
