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

import "strings"

// Transcript is the working copy of the conversation for one turn. It
// starts from the caller's replayed history and accumulates the system
// prompts injected while the turn advances through phases. It is never
// persisted; session state lives elsewhere.
type Transcript struct {
	Messages []Message
}

// NewTranscript builds a transcript from inbound request messages,
// normalizing unknown roles to user.
func NewTranscript(msgs []Message) *Transcript {
	t := &Transcript{Messages: make([]Message, 0, len(msgs))}
	for _, m := range msgs {
		t.Messages = append(t.Messages, Message{
			Role:    NormalizeRole(m.Role),
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return t
}

// Append adds a message to the end of the transcript.
func (t *Transcript) Append(role, content string) {
	t.Messages = append(t.Messages, Message{Role: role, Content: content})
}

// RemoveSystemContaining deletes every system message whose content
// contains marker. Used to replace injected context blocks instead of
// stacking duplicates when a turn loops through several phases.
func (t *Transcript) RemoveSystemContaining(marker string) {
	kept := t.Messages[:0]
	for _, m := range t.Messages {
		if m.Role == RoleSystem && strings.Contains(m.Content, marker) {
			continue
		}
		kept = append(kept, m)
	}
	t.Messages = kept
}

// LastUserContent returns the content of the most recent user message,
// or the empty string when the history has none.
func (t *Transcript) LastUserContent() string {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Role == RoleUser {
			return t.Messages[i].Content
		}
	}
	return ""
}
