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
	"sort"
	"strings"

	"github.com/argusai/argus/services/agent/datatypes"
)

// RestDiscoveryState drives swagger discovery. The model calls fetch
// and parse tools; the tools write the discovered operations into the
// per-user operation store, which is treated as authoritative when
// rendering the catalog. The reply's own detectedOperations field only
// signals that discovery produced something.
type RestDiscoveryState struct {
	baseState
}

var _ State = (*RestDiscoveryState)(nil)

func (s *RestDiscoveryState) Name() string { return "RestDiscoveryState" }

func (s *RestDiscoveryState) Transition() Transition { return TransitionRestDiscovery }

func (s *RestDiscoveryState) Handle(ctx context.Context, sc *StateContext, t *Turn) (Transition, bool, error) {
	prompt, err := s.prompts.Render(PromptRestDiscovery, nil)
	if err != nil {
		return TransitionRestDiscovery, false, err
	}
	t.Transcript.Append(datatypes.RoleSystem, prompt)

	var out datatypes.RestDiscoveryOutput
	ok, err := s.completeParsed(ctx, t, s.Name(), true, nil, &out)
	if err != nil || !ok {
		return TransitionRestDiscovery, false, err
	}

	if len(out.DetectedOperations) > 0 {
		stripped, withContent := formatOperations(s.ops.Get(t.UserKey))
		t.Session.AddStepResult(KeyDetectedRestOperations, stripped)
		t.Session.AddStepResult(KeyDetectedRestOperationsWithContent, withContent)
	}

	if len(out.DetectedSwaggerRoutes) > 0 {
		t.Session.AddStepResult(KeyDetectedSwaggerRoutes, formatSwaggerRoutes(out.DetectedSwaggerRoutes))
	}

	if _, found := t.Session.StepResult(KeyDetectedRestOperations); out.IsConfirmed && found {
		sc.SetState(s.factory.CommandInvoke())
		t.Session.SetCurrentStep(sc.Current(), TransitionCommandSelect)
		s.metrics.RecordTransition(s.Name(), sc.Current().Name())
		return TransitionCommandInvocation, true, nil
	}

	if err := s.report(t, out.UserResponse); err != nil {
		return TransitionRestDiscovery, false, err
	}
	return TransitionRestDiscovery, false, nil
}

// formatOperations renders the catalog twice: a stripped listing for
// the replayed session context and a full listing with request body
// schemas for the command selection prompt. The operation's api version
// is appended as an api-version query parameter when the path does not
// already carry one.
func formatOperations(ops []datatypes.SwaggerOperation) (string, string) {
	stripped := make([]string, 0, len(ops))
	withContent := make([]string, 0, len(ops))
	for _, op := range ops {
		path := op.URL
		if op.APIVersion != "" && path != "" && !strings.Contains(path, "api-version=") {
			sep := "?"
			if strings.Contains(path, "?") {
				sep = "&"
			}
			path += sep + "api-version=" + op.APIVersion
		}
		stripped = append(stripped, fmt.Sprintf("Operation method: %s, path: %s", op.HTTPMethod, path))
		if op.Content != "" {
			withContent = append(withContent, fmt.Sprintf("Operation method: %s, path: %s, content: %s", op.HTTPMethod, path, datatypes.DecodeOperationContent(op.Content)))
		} else {
			withContent = append(withContent, fmt.Sprintf("Operation method: %s, path: %s", op.HTTPMethod, path))
		}
	}
	return strings.Join(stripped, "\n"), strings.Join(withContent, "\n")
}

// formatSwaggerRoutes renders version-to-route pairs in version order
// so repeated discoveries produce identical session facts.
func formatSwaggerRoutes(routes map[string]string) string {
	versions := make([]string, 0, len(routes))
	for v := range routes {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	lines := make([]string, 0, len(versions))
	for _, v := range versions {
		lines = append(lines, fmt.Sprintf("API Version: %s, Route: %s", v, routes[v]))
	}
	return strings.Join(lines, "\n")
}
