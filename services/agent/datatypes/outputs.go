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

// Structured reply contracts, one per conversation phase. Each phase
// prompt instructs the model to answer with exactly one of these JSON
// shapes; the state machine refuses to advance until a reply parses.

// DomainSelectionOutput is the expected reply while choosing the target
// service domain (base URL).
type DomainSelectionOutput struct {
	DetectedDomain string `json:"detectedDomain,omitempty"`
	UserResponse   string `json:"userResponse,omitempty"`
	IsConfirmed    bool   `json:"isConfirmed"`
}

// RestDiscoveryOutput is the expected reply while discovering REST
// operations from swagger documents. DetectedOperations is only a
// signal that discovery produced something; the authoritative operation
// list lives in the per-user operation store, written by the discovery
// tools. Its elements are untyped because models render operations as
// objects or as plain strings, and either form counts.
type RestDiscoveryOutput struct {
	UserResponse          string            `json:"userResponse,omitempty"`
	DetectedOperations    []any             `json:"detectedOperations,omitempty"`
	DetectedSwaggerRoutes map[string]string `json:"detectedSwaggerRoutes,omitempty"`
	IsConfirmed           bool              `json:"isConfirmed"`
}

// CommandSelectOutput is the expected reply while picking a single REST
// command to run. Content is the request body as a JSON string, or
// empty for bodiless requests.
type CommandSelectOutput struct {
	IsConfirmed     bool   `json:"isConfirmed"`
	CommandIsValid  bool   `json:"commandIsValid"`
	CommandSelected bool   `json:"commandSelected"`
	UserResponse    string `json:"userResponse,omitempty"`
	HTTPMethod      string `json:"httpMethod,omitempty"`
	RequestURI      string `json:"requestUri,omitempty"`
	Content         string `json:"content,omitempty"`
	Reasoning       string `json:"reasoning,omitempty"`
}

// ExecutionPlanSelectOutput is the expected reply while building or
// revising a multi-step execution plan. Changes is a delta against the
// session's cached plan; UpdatedPlan supplies the step payloads that
// added and updated changes refer to by step number.
type ExecutionPlanSelectOutput struct {
	UpdatedPlan  []PlanStep   `json:"updatedPlan,omitempty"`
	Changes      []PlanChange `json:"changes,omitempty"`
	IsConfirmed  bool         `json:"isConfirmed"`
	UserResponse string       `json:"userResponse,omitempty"`
}

// CommandInvokeOutput is the expected reply in the invocation phase,
// after the model has run (or declined to run) commands via tools.
type CommandInvokeOutput struct {
	Analysis             string `json:"analysis,omitempty"`
	OutcomeMatched       bool   `json:"outcomeMatched"`
	CorrectedUserMessage string `json:"correctedUserMessage,omitempty"`
	NextState            string `json:"nextState,omitempty"`
	Reasoning            string `json:"reasoning,omitempty"`
}
