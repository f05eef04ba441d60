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
	"strings"

	"github.com/argusai/argus/services/agent/datatypes"
)

// CommandInvokeState is the working phase: the model runs commands or
// whole plans through tools, analyses the outcome, and may route the
// conversation back to command selection or plan building.
type CommandInvokeState struct {
	baseState
}

var _ State = (*CommandInvokeState)(nil)

func (s *CommandInvokeState) Name() string { return "CommandInvokeState" }

func (s *CommandInvokeState) Transition() Transition { return TransitionCommandInvocation }

func (s *CommandInvokeState) Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error) {
	prompt, err := s.prompts.Render(PromptCommandInvoke, nil)
	if err != nil {
		return TransitionCommandInvocation, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, prompt)

	var out datatypes.CommandInvokeOutput
	parsed, err := s.completeParsed(ctx, t, s.Name(), true, nil, &out)
	if err != nil || !parsed {
		return TransitionCommandInvocation, false, err
	}

	if out.CorrectedUserMessage != "" {
		t.Session.AddStepResult(KeyCorrectedUserMessage, out.CorrectedUserMessage)
	}

	// The analysis goes out exactly once, whether or not the phase
	// routes elsewhere afterwards.
	if out.Analysis != "" {
		if err := s.report(t, out.Analysis); err != nil {
			return TransitionCommandInvocation, false, err
		}
	}

	next, shouldTransition := s.determineNext(sc, t.Session, out.NextState)
	if shouldTransition {
		s.metrics.RecordTransition(s.Name(), sc.Current().Name())
		return next, true, nil
	}
	return TransitionCommandInvocation, false, nil
}

// parseNextState maps the model's nextState string onto a transition.
// Matching is case-insensitive; unknown values return false.
func parseNextState(nextState string) (Transition, bool) {
	switch strings.ToUpper(strings.TrimSpace(nextState)) {
	case "COMMANDSELECT":
		return TransitionCommandSelect, true
	case "EXECUTIONPLANSELECT":
		return TransitionExecutionPlanSelect, true
	case "EXPECTEDOUTCOME":
		return TransitionExpectedOutcome, true
	case "COMMANDINVOCATION":
		return TransitionCommandInvocation, true
	case "DOMAINSELECT":
		return TransitionDomainSelect, true
	case "RESTDISCOVERY":
		return TransitionRestDiscovery, true
	case "COMMANDINVOCATIONANALYSIS":
		return TransitionCommandInvocationAnalysis, true
	default:
		return TransitionAny, false
	}
}

// determineNext decides whether the model's routing request moves the
// conversation. Only command selection and plan building are valid
// targets; everything else, including the reserved transitions, keeps
// the session in invocation.
func (s *CommandInvokeState) determineNext(sc *StateContext, sess *Session, nextState string) (Transition, bool) {
	if nextState == "" || strings.EqualFold(nextState, "None") {
		return TransitionCommandInvocation, false
	}

	parsed, ok := parseNextState(nextState)
	if !ok {
		s.logger.Warn("unrecognized nextState from model", "nextState", nextState)
		return TransitionCommandInvocation, false
	}

	switch parsed {
	case TransitionCommandSelect:
		sc.SetState(s.factory.CommandSelect())
		sess.SetCurrentStep(sc.Current(), TransitionCommandSelect)
		return TransitionCommandSelect, true

	case TransitionExecutionPlanSelect:
		sc.SetState(s.factory.ExecutionPlan())
		sess.SetCurrentStep(sc.Current(), TransitionExecutionPlanSelect)
		return TransitionExecutionPlanSelect, true

	default:
		s.logger.Warn("nextState is not a valid routing target", "nextState", nextState)
		return TransitionCommandInvocation, false
	}
}
