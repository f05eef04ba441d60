// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent wraps the chat completion backend behind two small
// contracts: plain completions for phases that only need a structured
// reply, and tool-enabled completions for phases that let the model
// call discovery and invocation tools.
package agent

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/argusai/argus/services/agent/datatypes"
)

// ErrAbortTurn wraps tool failures that must terminate the turn instead
// of being fed back to the model as a failed tool result.
var ErrAbortTurn = errors.New("turn aborted by tool")

// Invoker exposes a tool catalog to the completion loop and dispatches
// calls the model makes against it.
type Invoker interface {
	// Definitions returns the tool schemas advertised to the model.
	Definitions() []openai.Tool

	// Invoke runs one tool call and returns its result as a JSON
	// string. Errors not wrapping ErrAbortTurn are surfaced to the
	// model as failed tool results rather than ending the turn.
	Invoke(ctx context.Context, name, arguments string) (string, error)
}

// CompletionAgent is the contract consumed by the state machine.
type CompletionAgent interface {
	// Complete requests a single assistant reply with no tools attached.
	Complete(ctx context.Context, msgs []datatypes.Message) (datatypes.Message, error)

	// CompleteWithTools runs the tool-call loop: the model may issue
	// tool calls, sees their results, and eventually produces a final
	// assistant reply.
	CompleteWithTools(ctx context.Context, msgs []datatypes.Message, inv Invoker) (datatypes.Message, error)

	// Model reports the backend model identifier, used for stream
	// chunk attribution.
	Model() string
}
