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

	"github.com/argusai/argus/services/agent/datatypes"
)

// ExecutionPlanState builds a multi-step plan through deltas. The model
// proposes changes against the cached plan; the merged result replaces
// the cache only when the merge yields at least one step, so an
// all-removed revision cannot silently wipe a confirmed plan.
type ExecutionPlanState struct {
	baseState
}

var _ State = (*ExecutionPlanState)(nil)

func (s *ExecutionPlanState) Name() string { return "ExecutionPlanState" }

func (s *ExecutionPlanState) Transition() Transition { return TransitionExecutionPlanSelect }

func (s *ExecutionPlanState) Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error) {
	prompt, err := s.prompts.Render(PromptExecutionPlanSelect, nil)
	if err != nil {
		return TransitionExecutionPlanSelect, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, prompt)

	// Plan replies habitually arrive fenced despite instructions, so
	// unwrap before parsing.
	var out datatypes.ExecutionPlanSelectOutput
	parsed, err := s.completeParsed(ctx, t, s.Name(), false, ExtractJSONFromMarkdown, &out)
	if err != nil || !parsed {
		return TransitionExecutionPlanSelect, false, err
	}

	merged := s.mergeChanges(t.Session, &out)
	if len(merged) > 0 {
		t.Session.AddStepResult(KeySelectedExecutionPlan, FormatPlan(merged))
		planJSON, err := json.Marshal(merged)
		if err != nil {
			return TransitionExecutionPlanSelect, false, err
		}
		t.Session.AddStepResult(KeySelectedExecutionPlanJSON, string(planJSON))
	}

	if out.IsConfirmed {
		sc.SetState(s.factory.CommandInvoke())
		t.Session.SetCurrentStep(sc.Current(), TransitionCommandInvocation)
		s.metrics.RecordTransition(s.Name(), sc.Current().Name())
		return TransitionCommandInvocation, true, nil
	}

	if err := s.report(t, out.UserResponse); err != nil {
		return TransitionExecutionPlanSelect, false, err
	}
	return TransitionExecutionPlanSelect, false, nil
}

// mergeChanges applies the reply's change set to the cached plan. A
// cached plan that no longer parses is logged and treated as empty
// rather than failing the turn.
func (s *ExecutionPlanState) mergeChanges(sess *Session, out *datatypes.ExecutionPlanSelectOutput) []datatypes.PlanStep {
	if len(out.Changes) == 0 {
		return nil
	}

	var existing []datatypes.PlanStep
	if cached, ok := sess.StepResult(KeySelectedExecutionPlanJSON); ok && cached != "" {
		if err := json.Unmarshal([]byte(cached), &existing); err != nil {
			s.logger.Warn("cached execution plan is malformed, starting fresh", "error", err)
			existing = nil
		}
	}
	return ApplyPlanChanges(existing, out.UpdatedPlan, out.Changes)
}
