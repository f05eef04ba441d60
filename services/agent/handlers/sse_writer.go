// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/argusai/argus/services/agent/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StreamWriter abstracts the SSE wire format so the engine can stream
// to copilot-style clients and the local development client through
// the same reporter.
//
// Implementations flush after every write; the agent streams whole
// messages rather than token deltas, so latency comes from the model,
// not the writer.
type StreamWriter interface {
	// WriteMessage emits one assistant message. eventType, when
	// non-empty, is written as the SSE event name.
	WriteMessage(msg datatypes.Message, eventType string) error

	// WriteText emits free-form progress text.
	WriteText(text string) error

	// WriteDone terminates the stream.
	WriteDone() error
}

// CopilotEventMessage is the default SSE event type for chat content.
const CopilotEventMessage = "message"

// =============================================================================
// Copilot Writer
// =============================================================================

// copilotSSEWriter frames messages as OpenAI chat-completion chunks:
// optional "event: <name>" line, then "data: <chunk JSON>", terminated
// by "data: [DONE]". GitHub Copilot extensions and OpenAI-compatible
// frontends consume this shape directly.
type copilotSSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	model   string
}

var _ StreamWriter = (*copilotSSEWriter)(nil)

// NewCopilotSSEWriter wraps w. Returns an error when the writer cannot
// flush, since buffered SSE defeats the point.
func NewCopilotSSEWriter(w http.ResponseWriter, model string) (StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &copilotSSEWriter{w: w, flusher: flusher, model: model}, nil
}

func (c *copilotSSEWriter) WriteMessage(msg datatypes.Message, eventType string) error {
	chunk := datatypes.NewAssistantChunk(msg.Content, c.model)
	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshaling chunk: %w", err)
	}
	if eventType != "" {
		if _, err := fmt.Fprintf(c.w, "event: %s\n", eventType); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *copilotSSEWriter) WriteText(text string) error {
	return c.WriteMessage(datatypes.Message{
		Role:    datatypes.RoleAssistant,
		Content: text,
	}, CopilotEventMessage)
}

func (c *copilotSSEWriter) WriteDone() error {
	if _, err := fmt.Fprint(c.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

// =============================================================================
// Local Writer
// =============================================================================

// localSSEWriter is the simplified frame for the bundled development
// client: one small JSON object per data line, no completion envelope.
type localSSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

var _ StreamWriter = (*localSSEWriter)(nil)

// NewLocalSSEWriter wraps w for local development streaming.
func NewLocalSSEWriter(w http.ResponseWriter) (StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &localSSEWriter{w: w, flusher: flusher}, nil
}

func (l *localSSEWriter) WriteMessage(msg datatypes.Message, eventType string) error {
	frame := datatypes.LocalChunk{Message: msg.Content, Role: msg.Role}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	if _, err := fmt.Fprintf(l.w, "data: %s\n\n", data); err != nil {
		return err
	}
	l.flusher.Flush()
	return nil
}

func (l *localSSEWriter) WriteText(text string) error {
	return l.WriteMessage(datatypes.Message{
		Role:    datatypes.RoleAssistant,
		Content: text,
	}, "")
}

func (l *localSSEWriter) WriteDone() error {
	if _, err := fmt.Fprint(l.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	l.flusher.Flush()
	return nil
}

// =============================================================================
// Headers
// =============================================================================

// SetSSEHeaders configures the response for SSE streaming. Call before
// the first write.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
