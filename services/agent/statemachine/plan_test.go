// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statemachine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusai/argus/services/agent/datatypes"
)

func step(n int, method, url string) datatypes.PlanStep {
	return datatypes.PlanStep{StepNumber: n, Method: method, URL: url}
}

func TestApplyPlanChanges_AppendToEmptyPlan(t *testing.T) {
	updated := []datatypes.PlanStep{
		step(1, "GET", "/pets"),
		step(2, "POST", "/pets"),
	}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 1},
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 2},
	}

	merged := ApplyPlanChanges(nil, updated, changes)

	require.Len(t, merged, 2)
	assert.Equal(t, "GET", merged[0].Method)
	assert.Equal(t, "POST", merged[1].Method)
	assert.Equal(t, 1, merged[0].StepNumber)
	assert.Equal(t, 2, merged[1].StepNumber)
}

func TestApplyPlanChanges_InsertShiftsLaterSteps(t *testing.T) {
	existing := []datatypes.PlanStep{
		step(1, "GET", "/pets"),
		step(2, "DELETE", "/pets/1"),
	}
	updated := []datatypes.PlanStep{
		step(2, "POST", "/pets"),
	}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 2},
	}

	merged := ApplyPlanChanges(existing, updated, changes)

	require.Len(t, merged, 3)
	assert.Equal(t, "GET", merged[0].Method)
	assert.Equal(t, "POST", merged[1].Method)
	assert.Equal(t, "DELETE", merged[2].Method)
	for i, s := range merged {
		assert.Equal(t, i+1, s.StepNumber)
	}
}

func TestApplyPlanChanges_AddPastEndAppends(t *testing.T) {
	existing := []datatypes.PlanStep{step(1, "GET", "/pets")}
	updated := []datatypes.PlanStep{step(9, "POST", "/pets")}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 9},
	}

	merged := ApplyPlanChanges(existing, updated, changes)

	require.Len(t, merged, 2)
	assert.Equal(t, "POST", merged[1].Method)
	assert.Equal(t, 2, merged[1].StepNumber)
}

func TestApplyPlanChanges_RemoveRenumbersContiguously(t *testing.T) {
	existing := []datatypes.PlanStep{
		step(1, "GET", "/a"),
		step(2, "GET", "/b"),
		step(3, "GET", "/c"),
	}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeRemoved, StepNumber: 2},
	}

	merged := ApplyPlanChanges(existing, nil, changes)

	require.Len(t, merged, 2)
	assert.Equal(t, "/a", merged[0].URL)
	assert.Equal(t, "/c", merged[1].URL)
	assert.Equal(t, 1, merged[0].StepNumber)
	assert.Equal(t, 2, merged[1].StepNumber)
}

func TestApplyPlanChanges_UpdateReplacesPayload(t *testing.T) {
	existing := []datatypes.PlanStep{
		step(1, "GET", "/pets"),
	}
	updated := []datatypes.PlanStep{
		{StepNumber: 1, Method: "GET", URL: "/pets?limit=5",
			Expectation: &datatypes.PlanExpectation{ExpectedStatusCode: 200}},
	}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeUpdated, StepNumber: 1},
	}

	merged := ApplyPlanChanges(existing, updated, changes)

	require.Len(t, merged, 1)
	assert.Equal(t, "/pets?limit=5", merged[0].URL)
	require.NotNil(t, merged[0].Expectation)
	assert.Equal(t, 200, merged[0].Expectation.ExpectedStatusCode)
}

func TestApplyPlanChanges_RemovalsApplyBeforeAdditions(t *testing.T) {
	existing := []datatypes.PlanStep{
		step(1, "GET", "/a"),
		step(2, "GET", "/b"),
	}
	updated := []datatypes.PlanStep{step(1, "POST", "/new")}
	// Listed out of order on purpose; removal must still win the race.
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 1},
		{ChangeType: datatypes.PlanChangeRemoved, StepNumber: 1},
	}

	merged := ApplyPlanChanges(existing, updated, changes)

	require.Len(t, merged, 2)
	assert.Equal(t, "POST", merged[0].Method)
	assert.Equal(t, "/b", merged[1].URL)
}

func TestApplyPlanChanges_MissingStepsAreSkipped(t *testing.T) {
	existing := []datatypes.PlanStep{step(1, "GET", "/a")}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeRemoved, StepNumber: 7},
		{ChangeType: datatypes.PlanChangeUpdated, StepNumber: 7},
		{ChangeType: datatypes.PlanChangeAdded, StepNumber: 7},
	}

	merged := ApplyPlanChanges(existing, nil, changes)

	require.Len(t, merged, 1)
	assert.Equal(t, "/a", merged[0].URL)
}

func TestApplyPlanChanges_DoesNotMutateInput(t *testing.T) {
	existing := []datatypes.PlanStep{step(1, "GET", "/a")}
	changes := []datatypes.PlanChange{
		{ChangeType: datatypes.PlanChangeRemoved, StepNumber: 1},
	}

	merged := ApplyPlanChanges(existing, nil, changes)

	assert.Empty(t, merged)
	assert.Equal(t, "/a", existing[0].URL)
	assert.Equal(t, 1, existing[0].StepNumber)
}

func TestFormatPlan(t *testing.T) {
	plan := []datatypes.PlanStep{
		{StepNumber: 1, Method: "GET", URL: "/pets"},
		{StepNumber: 2, Method: "POST", URL: "/pets",
			Body:        json.RawMessage(`{"name":"rex"}`),
			Expectation: &datatypes.PlanExpectation{ExpectedStatusCode: 201}},
	}

	got := FormatPlan(plan)

	assert.Equal(t,
		"Step 1: GET /pets\nStep 2: POST /pets, Body: {\"name\":\"rex\"}, Expected: 201",
		got)
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced payload",
			in:   "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "unfenced passes through trimmed",
			in:   "  {\"a\":1}  ",
			want: `{"a":1}`,
		},
		{
			name: "nested fence survives",
			in:   "```json\n{\"text\":\"```code```\"}\n```",
			want: "{\"text\":\"```code```\"}",
		},
		{
			name: "unterminated fence passes through",
			in:   "```json\n{\"a\":1}",
			want: "```json\n{\"a\":1}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSONFromMarkdown(tt.in))
		})
	}
}
