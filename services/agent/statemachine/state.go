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

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/observability"
)

// SessionContextMarker is embedded in the session context system
// message so it can be located and replaced between phase iterations.
const SessionContextMarker = "*As Context for you*"

// Prompt registry keys consumed by the phases.
const (
	PromptDomainSelection     = "DomainSelection"
	PromptRestDiscovery       = "RestDiscovery"
	PromptSwaggerDefinition   = "SwaggerDefinition"
	PromptCommandSelect       = "CommandSelect"
	PromptExecutionPlanSelect = "ExecutionPlanSelect"
	PromptCommandInvoke       = "CommandInvoke"
	PromptSessionContext      = "SessionContext"
)

// maxParseAttempts bounds repeated completion attempts when the model
// keeps answering with something that is not the phase's JSON contract.
// When the budget runs out the phase stays put and the user is asked to
// rephrase; their next message starts a fresh budget.
const maxParseAttempts = 3

// retryRequestMessage is sent when the parse budget is exhausted.
const retryRequestMessage = "I had trouble forming a structured reply to that. " +
	"Could you rephrase your message or try again?"

// Reporter delivers assistant output to the client mid-turn.
type Reporter interface {
	// Report sends one assistant message.
	Report(msg datatypes.Message) error

	// ReportText sends free-form progress text, used by long-running
	// tool work such as plan execution.
	ReportText(text string) error

	// Complete terminates the stream.
	Complete() error
}

// PromptSource renders registry prompts with optional template args.
type PromptSource interface {
	Render(key string, args map[string]string) (string, error)
}

// Turn carries everything request-scoped through a single chat turn.
type Turn struct {
	// UserKey identifies the session owner.
	UserKey string

	// Session is attached by the engine after the turn lock is held.
	Session *Session

	// Transcript is the working conversation for this turn.
	Transcript *datatypes.Transcript

	// Reporter streams assistant output back to the client.
	Reporter Reporter

	// Invoker dispatches tool calls for tool-enabled phases.
	Invoker agent.Invoker
}

// State is one conversation phase.
//
// Handle runs the phase against the turn and returns the transition the
// conversation should follow next plus whether the phase concluded. A
// concluded phase hands the same turn to its successor without waiting
// for new user input; an unconcluded one ends the turn.
type State interface {
	Name() string
	Transition() Transition
	Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error)
}

// StateContext holds the phase the conversation is currently in. States
// swap the active phase through it when they conclude.
type StateContext struct {
	current State
}

// NewStateContext starts a context at the given phase.
func NewStateContext(s State) *StateContext {
	return &StateContext{current: s}
}

// Current returns the active phase.
func (c *StateContext) Current() State {
	return c.current
}

// SetState swaps the active phase.
func (c *StateContext) SetState(s State) {
	c.current = s
}

// Handle delegates to the active phase.
func (c *StateContext) Handle(ctx context.Context, t *Turn) (Transition, bool, error) {
	return c.current.Handle(ctx, c, t)
}

// baseState carries the dependencies shared by every phase.
type baseState struct {
	agent   agent.CompletionAgent
	prompts PromptSource
	ops     *datatypes.OperationStore
	metrics *observability.AgentMetrics
	logger  *slog.Logger
	factory *Factory
}

// completeParsed requests a completion and unmarshals the reply into
// out, retrying up to maxParseAttempts when the reply is not valid
// JSON for the contract. preprocess, when non-nil, is applied to the
// raw reply content before unmarshaling (plan replies arrive fenced in
// markdown more often than not).
//
// Returns false with a nil error when the budget is exhausted; the
// caller must then keep the phase where it is without touching its
// session facts.
func (b *baseState) completeParsed(ctx context.Context, t *Turn, stateName string, withTools bool, preprocess func(string) string, out any) (bool, error) {
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		var reply datatypes.Message
		var err error
		if withTools {
			reply, err = b.agent.CompleteWithTools(ctx, t.Transcript.Messages, t.Invoker)
		} else {
			reply, err = b.agent.Complete(ctx, t.Transcript.Messages)
		}
		if err != nil {
			return false, err
		}

		content := reply.Content
		if preprocess != nil {
			content = preprocess(content)
		}
		if err := json.Unmarshal([]byte(content), out); err != nil {
			b.metrics.RecordParseFailure(stateName)
			b.logger.Warn("structured reply did not parse",
				"state", stateName,
				"attempt", attempt,
				"error", err)
			continue
		}
		return true, nil
	}

	if err := t.Reporter.Report(datatypes.Message{
		Role:    datatypes.RoleAssistant,
		Content: retryRequestMessage,
	}); err != nil {
		return false, err
	}
	return false, nil
}

// report sends an assistant message, tolerating empty content by
// substituting a generic continuation prompt so the client never
// receives a blank frame.
func (b *baseState) report(t *Turn, content string) error {
	if content == "" {
		content = "How would you like to proceed?"
	}
	return t.Reporter.Report(datatypes.Message{
		Role:    datatypes.RoleAssistant,
		Content: content,
	})
}
