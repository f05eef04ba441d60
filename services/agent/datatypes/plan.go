// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "encoding/json"

// Change types recognized in PlanChange.ChangeType. Matching is
// case-insensitive; anything else is ignored.
const (
	PlanChangeRemoved = "removed"
	PlanChangeUpdated = "updated"
	PlanChangeAdded   = "added"
)

// PlanStep is one HTTP request in an execution plan. StepNumber is
// 1-based and kept contiguous by the plan merge logic.
type PlanStep struct {
	StepNumber  int              `json:"stepNumber"`
	Method      string           `json:"method"`
	URL         string           `json:"url"`
	Body        json.RawMessage  `json:"body,omitempty"`
	Expectation *PlanExpectation `json:"expectation,omitempty"`
}

// PlanExpectation declares the outcome a step is expected to produce.
// ExpectedContent, when present, is matched structurally against the
// response body: every expected field must exist with the same type.
type PlanExpectation struct {
	ExpectedStatusCode int             `json:"expectedStatusCode"`
	ExpectedContent    json.RawMessage `json:"expectedContent,omitempty"`
}

// PlanChange is one delta entry against the cached plan. StepNumber
// refers to the cached plan for removals and updates, and to the
// desired insertion position for additions.
type PlanChange struct {
	ChangeType  string `json:"changeType"`
	StepNumber  int    `json:"stepNumber"`
	Description string `json:"description,omitempty"`
}
