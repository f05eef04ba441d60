// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// Chat roles as they appear on the wire. Unknown inbound roles are
// normalized to RoleUser rather than rejected.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Input size limits for the chat endpoint.
const (
	// MaxChatMessages bounds the replayed conversation history per request.
	MaxChatMessages = 200

	// MaxMessageContentBytes bounds a single message body (1 MiB).
	MaxMessageContentBytes = 1 << 20
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Message is a single conversation entry: the caller's replayed history,
// an injected system prompt, or an assistant reply on its way out.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest is the body of POST /nextEvent. The caller replays the full
// visible conversation on every request; server-side session state is
// keyed by the authenticated user, not by anything in this payload.
type ChatRequest struct {
	Messages []Message `json:"messages" validate:"max=200,dive"`
	Model    string    `json:"model,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// Validate checks structural bounds on the request. Role strings are not
// validated here: unknown roles are coerced during transcript construction
// so that a sloppy client still gets a turn instead of a 400.
func (r *ChatRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	for i := range r.Messages {
		if len(r.Messages[i].Content) > MaxMessageContentBytes {
			return &MessageTooLargeError{Index: i, Size: len(r.Messages[i].Content)}
		}
	}
	return nil
}

// MessageTooLargeError reports a single oversized message in the history.
type MessageTooLargeError struct {
	Index int
	Size  int
}

func (e *MessageTooLargeError) Error() string {
	return "message content exceeds size limit"
}

// NormalizeRole maps arbitrary inbound role strings onto the supported
// set. Anything unrecognized becomes RoleUser.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleSystem:
		return RoleSystem
	case RoleAssistant:
		return RoleAssistant
	case RoleTool:
		return RoleTool
	default:
		return RoleUser
	}
}
