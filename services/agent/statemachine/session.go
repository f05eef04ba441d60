// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package statemachine

import "sync"

// Session is the per-user conversation state: the current phase and the
// accumulated fact bag. Sessions live for the process lifetime; nothing
// expires them.
//
// Access is serialized by the turn mutex: the engine acquires it for
// the duration of a turn, so concurrent requests for the same user
// queue up instead of interleaving phase logic. The field accessors
// themselves are deliberately unguarded because tools called inside a
// turn read the session from the same goroutine that holds the lock.
type Session struct {
	turnMu sync.Mutex

	state      State
	transition Transition
	results    map[string]string
}

// NewSession returns a fresh session with no phase and no facts.
func NewSession() *Session {
	return &Session{results: make(map[string]string)}
}

// Acquire locks the session for one turn and returns the unlock func.
func (s *Session) Acquire() func() {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// CurrentState returns the active phase, or nil before the first turn.
func (s *Session) CurrentState() State {
	return s.state
}

// CurrentTransition returns the transition tag recorded with the
// active phase.
func (s *Session) CurrentTransition() Transition {
	return s.transition
}

// SetCurrentStep records the active phase and its transition tag.
func (s *Session) SetCurrentStep(state State, t Transition) {
	s.state = state
	s.transition = t
}

// AddStepResult stores or overwrites a fact.
func (s *Session) AddStepResult(key, value string) {
	s.results[key] = value
}

// StepResult returns a fact and whether it exists.
func (s *Session) StepResult(key string) (string, bool) {
	v, ok := s.results[key]
	return v, ok
}

// RemoveStepResult deletes a fact if present.
func (s *Session) RemoveStepResult(key string) {
	delete(s.results, key)
}

// ContextSnapshot returns the six replayed facts, substituting the
// literal "none" for anything not yet established.
func (s *Session) ContextSnapshot() map[string]string {
	snap := make(map[string]string, len(snapshotKeys))
	for _, key := range snapshotKeys {
		if v, ok := s.results[key]; ok && v != "" {
			snap[key] = v
		} else {
			snap[key] = "none"
		}
	}
	return snap
}
