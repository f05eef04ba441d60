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
	"fmt"

	"github.com/argusai/argus/services/agent/datatypes"
)

// swaggerCatalogMarker identifies the injected command catalog system
// message so stale copies are replaced rather than stacked when the
// phase runs repeatedly.
const swaggerCatalogMarker = "Detected Commands With Content:"

// CommandSelectState narrows the discovered catalog down to one
// runnable command. Advancing requires the model to judge the command
// valid against the catalog and the user to confirm it.
type CommandSelectState struct {
	baseState
}

var _ State = (*CommandSelectState)(nil)

func (s *CommandSelectState) Name() string { return "CommandSelectState" }

func (s *CommandSelectState) Transition() Transition { return TransitionCommandSelect }

func (s *CommandSelectState) Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error) {
	withContent, ok := t.Session.StepResult(KeyDetectedRestOperationsWithContent)
	if !ok || withContent == "" {
		withContent = "none"
	}
	t.Transcript.RemoveSystemContaining(swaggerCatalogMarker)

	catalog, err := s.prompts.Render(PromptSwaggerDefinition, map[string]string{
		KeyDetectedRestOperationsWithContent: withContent,
	})
	if err != nil {
		return TransitionCommandSelect, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, catalog)

	prompt, err := s.prompts.Render(PromptCommandSelect, nil)
	if err != nil {
		return TransitionCommandSelect, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, prompt)

	var out datatypes.CommandSelectOutput
	parsed, err := s.completeParsed(ctx, t, s.Name(), false, nil, &out)
	if err != nil || !parsed {
		return TransitionCommandSelect, false, err
	}

	if out.CommandSelected {
		t.Session.AddStepResult(KeySelectedCommand, formatSelectedCommand(out))
		// A fresh selection supersedes any remembered correction.
		t.Session.RemoveStepResult(KeyCorrectedUserMessage)
	}

	if out.CommandIsValid && out.IsConfirmed {
		sc.SetState(s.factory.CommandInvoke())
		t.Session.SetCurrentStep(sc.Current(), TransitionCommandSelect)
		s.metrics.RecordTransition(s.Name(), sc.Current().Name())
		return TransitionCommandInvocation, true, nil
	}

	if err := s.report(t, out.UserResponse); err != nil {
		return TransitionCommandSelect, false, err
	}
	return TransitionCommandSelect, false, nil
}

// formatSelectedCommand renders the canonical command string consumed
// by the invocation tools. A missing body renders as an empty JSON
// object so the fenced block is always present.
func formatSelectedCommand(out datatypes.CommandSelectOutput) string {
	content := out.Content
	if content == "" {
		content = "{}"
	}
	return fmt.Sprintf("Http Method: %s\nRequest Uri: %s\nRequest Content:```json\n%s\n```",
		out.HTTPMethod, out.RequestURI, content)
}
