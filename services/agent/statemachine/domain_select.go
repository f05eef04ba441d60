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

	"github.com/argusai/argus/services/agent/datatypes"
)

// DomainSelectState establishes which service the user wants to test.
// A candidate domain is recorded as soon as the model detects one, even
// before the user confirms, so a later phase can fall back to it.
type DomainSelectState struct {
	baseState
}

var _ State = (*DomainSelectState)(nil)

func (s *DomainSelectState) Name() string { return "DomainSelectState" }

func (s *DomainSelectState) Transition() Transition { return TransitionDomainSelect }

func (s *DomainSelectState) Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error) {
	prompt, err := s.prompts.Render(PromptDomainSelection, nil)
	if err != nil {
		return TransitionDomainSelect, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, prompt)

	var out datatypes.DomainSelectionOutput
	ok, err := s.completeParsed(ctx, t, s.Name(), false, nil, &out)
	if err != nil || !ok {
		return TransitionDomainSelect, false, err
	}

	if out.DetectedDomain != "" {
		t.Session.AddStepResult(KeySelectedDomain, out.DetectedDomain)
	}

	if out.IsConfirmed {
		sc.SetState(s.factory.RestDiscovery())
		t.Session.SetCurrentStep(sc.Current(), TransitionRestDiscovery)
		s.metrics.RecordTransition(s.Name(), sc.Current().Name())
		return TransitionRestDiscovery, true, nil
	}

	if err := s.report(t, out.UserResponse); err != nil {
		return TransitionDomainSelect, false, err
	}
	return TransitionDomainSelect, false, nil
}
