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
	"fmt"
	"sort"
	"strings"

	"github.com/argusai/argus/services/agent/datatypes"
)

// ApplyPlanChanges merges a change set into the cached plan.
//
// Changes are applied removals first, then updates, then additions,
// each group in ascending step number, regardless of the order the
// model listed them in. Removals and updates address steps in the
// cached plan by number; additions take their payload from updatedPlan
// and insert at the addressed position, shifting later steps up, or
// append when the position is past the end. Changes addressing missing
// steps are skipped. Step numbers are renumbered 1..n afterwards so
// the result is always contiguous.
func ApplyPlanChanges(existing, updatedPlan []datatypes.PlanStep, changes []datatypes.PlanChange) []datatypes.PlanStep {
	merged := make([]datatypes.PlanStep, len(existing))
	copy(merged, existing)

	sorted := make([]datatypes.PlanChange, len(changes))
	copy(sorted, changes)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := changeRank(sorted[i].ChangeType), changeRank(sorted[j].ChangeType)
		if ri != rj {
			return ri < rj
		}
		return sorted[i].StepNumber < sorted[j].StepNumber
	})

	for _, change := range sorted {
		switch strings.ToLower(change.ChangeType) {
		case datatypes.PlanChangeRemoved:
			for i, step := range merged {
				if step.StepNumber == change.StepNumber {
					merged = append(merged[:i], merged[i+1:]...)
					break
				}
			}

		case datatypes.PlanChangeUpdated:
			payload, ok := findStep(updatedPlan, change.StepNumber)
			if !ok {
				continue
			}
			for i := range merged {
				if merged[i].StepNumber == change.StepNumber {
					merged[i].Method = payload.Method
					merged[i].URL = payload.URL
					merged[i].Body = payload.Body
					merged[i].Expectation = payload.Expectation
					break
				}
			}

		case datatypes.PlanChangeAdded:
			payload, ok := findStep(updatedPlan, change.StepNumber)
			if !ok {
				continue
			}
			step := datatypes.PlanStep{
				Method:      payload.Method,
				URL:         payload.URL,
				Body:        payload.Body,
				Expectation: payload.Expectation,
			}
			if change.StepNumber <= len(merged) {
				for i := range merged {
					if merged[i].StepNumber >= change.StepNumber {
						merged[i].StepNumber++
					}
				}
				step.StepNumber = change.StepNumber
				idx := change.StepNumber - 1
				merged = append(merged[:idx], append([]datatypes.PlanStep{step}, merged[idx:]...)...)
			} else {
				step.StepNumber = len(merged) + 1
				merged = append(merged, step)
			}
		}
	}

	for i := range merged {
		merged[i].StepNumber = i + 1
	}
	return merged
}

func changeRank(changeType string) int {
	switch strings.ToLower(changeType) {
	case datatypes.PlanChangeRemoved:
		return 0
	case datatypes.PlanChangeUpdated:
		return 1
	default:
		return 2
	}
}

func findStep(steps []datatypes.PlanStep, number int) (datatypes.PlanStep, bool) {
	for _, s := range steps {
		if s.StepNumber == number {
			return s, true
		}
	}
	return datatypes.PlanStep{}, false
}

// FormatPlan renders a plan as the human-readable listing stored in
// the session and echoed to the user.
func FormatPlan(plan []datatypes.PlanStep) string {
	lines := make([]string, 0, len(plan))
	for _, step := range plan {
		line := fmt.Sprintf("Step %d: %s %s", step.StepNumber, step.Method, step.URL)
		if len(step.Body) > 0 {
			line += fmt.Sprintf(", Body: %s", string(step.Body))
		}
		if step.Expectation != nil {
			line += fmt.Sprintf(", Expected: %d", step.Expectation.ExpectedStatusCode)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ExtractJSONFromMarkdown unwraps a reply fenced as ```json ... ```.
// Exactly one leading fence and one trailing fence are stripped; nested
// fences inside the payload survive. Unfenced content passes through
// trimmed.
func ExtractJSONFromMarkdown(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```json") {
		return trimmed
	}

	start := strings.IndexByte(trimmed[7:], '\n')
	if start == -1 {
		start = 7
	} else {
		start += 7 + 1
	}
	end := strings.LastIndex(trimmed, "```")
	if end > start {
		return strings.TrimSpace(trimmed[start:end])
	}
	return trimmed
}
