// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statemachine

import (
	"context"
	"fmt"
	"strings"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/datatypes"
)

// scriptedAgent returns canned assistant replies in order. The last
// reply repeats once the script runs out.
type scriptedAgent struct {
	replies []string
	calls   int
}

func (a *scriptedAgent) next() datatypes.Message {
	idx := a.calls
	if idx >= len(a.replies) {
		idx = len(a.replies) - 1
	}
	a.calls++
	return datatypes.Message{Role: datatypes.RoleAssistant, Content: a.replies[idx]}
}

func (a *scriptedAgent) Complete(_ context.Context, _ []datatypes.Message) (datatypes.Message, error) {
	return a.next(), nil
}

func (a *scriptedAgent) CompleteWithTools(_ context.Context, _ []datatypes.Message, _ agent.Invoker) (datatypes.Message, error) {
	return a.next(), nil
}

var _ agent.CompletionAgent = (*scriptedAgent)(nil)

func (a *scriptedAgent) Model() string { return "test-model" }

// recordingReporter captures everything a phase streams out.
type recordingReporter struct {
	messages  []datatypes.Message
	texts     []string
	completed bool
}

func (r *recordingReporter) Report(msg datatypes.Message) error {
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingReporter) ReportText(text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingReporter) Complete() error {
	r.completed = true
	return nil
}

// stubPrompts renders every key as a recognizable placeholder. The
// session context prompt embeds the marker and the snapshot facts so
// transcript replacement logic can be exercised.
type stubPrompts struct{}

func (stubPrompts) Render(key string, args map[string]string) (string, error) {
	if key == PromptSessionContext {
		parts := []string{SessionContextMarker}
		for _, k := range snapshotKeys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, args[k]))
		}
		return strings.Join(parts, "\n"), nil
	}
	if key == PromptSwaggerDefinition {
		return swaggerCatalogMarker + "\n" + args[KeyDetectedRestOperationsWithContent], nil
	}
	if len(args) > 0 {
		parts := []string{"prompt:" + key}
		for k, v := range args {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
		return strings.Join(parts, "\n"), nil
	}
	return "prompt:" + key, nil
}
