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
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/statemachine"
)

// StreamReporter adapts a StreamWriter to the engine's Reporter
// contract. One reporter serves one turn.
type StreamReporter struct {
	writer StreamWriter
}

var _ statemachine.Reporter = (*StreamReporter)(nil)

// NewStreamReporter wraps writer.
func NewStreamReporter(writer StreamWriter) *StreamReporter {
	return &StreamReporter{writer: writer}
}

// Report implements statemachine.Reporter.
func (r *StreamReporter) Report(msg datatypes.Message) error {
	return r.writer.WriteMessage(msg, CopilotEventMessage)
}

// ReportText implements statemachine.Reporter.
func (r *StreamReporter) ReportText(text string) error {
	return r.writer.WriteText(text)
}

// Complete implements statemachine.Reporter.
func (r *StreamReporter) Complete() error {
	return r.writer.WriteDone()
}
