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
	"time"

	"github.com/google/uuid"
)

// ChatChunk mirrors the chat-completion-chunk shape streamed by
// OpenAI-compatible frontends. Copilot-style clients reassemble the
// assistant reply from the Delta fields of successive chunks.
type ChatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
	Usage   *ChunkUsage   `json:"usage,omitempty"`
}

// ChunkChoice carries one delta within a streamed chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChunkDelta is the incremental payload of a choice.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkUsage is only present on the final chunk of a reply.
type ChunkUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewAssistantChunk wraps a complete assistant message as a single
// streamed chunk. The agent emits whole messages rather than token
// deltas, so each reply is one chunk with a stop finish reason.
func NewAssistantChunk(content, model string) ChatChunk {
	stop := "stop"
	return ChatChunk{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []ChunkChoice{
			{
				Index:        0,
				Delta:        ChunkDelta{Role: RoleAssistant, Content: content},
				FinishReason: &stop,
			},
		},
	}
}

// LocalChunk is the simplified frame used by the local development
// stream: one JSON object per event, no chat-completion envelope.
type LocalChunk struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}
