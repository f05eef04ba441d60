// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package statemachine implements the conversation engine that walks a
// user through API testing: choosing a target domain, discovering REST
// operations from swagger, selecting a command or building an execution
// plan, and invoking commands against the live service. Each user has
// one session; a session is always in exactly one phase, and a single
// chat turn may traverse several phases when the model concludes them
// back to back.
package statemachine

// Transition identifies a conversation phase edge. Several values are
// reserved for flows that the current phases do not enter on their own
// but that the invocation phase may still name when routing backwards.
type Transition int

const (
	// TransitionAny matches any phase; used as a wildcard default.
	TransitionAny Transition = iota

	// TransitionDomainSelect targets the domain selection phase.
	TransitionDomainSelect

	// TransitionRawContentGet is reserved for raw content retrieval.
	TransitionRawContentGet

	// TransitionRestDiscovery targets the swagger discovery phase.
	TransitionRestDiscovery

	// TransitionRestCompile is reserved for compiled REST flows.
	TransitionRestCompile

	// TransitionCommandSelect targets the command selection phase.
	TransitionCommandSelect

	// TransitionExpectedOutcome is reserved for outcome declaration.
	TransitionExpectedOutcome

	// TransitionExecutionPlanSelect targets the plan building phase.
	TransitionExecutionPlanSelect

	// TransitionCommandInvocation targets the invocation phase.
	TransitionCommandInvocation

	// TransitionCommandInvocationAnalysis is reserved for standalone
	// result analysis.
	TransitionCommandInvocationAnalysis
)

var transitionNames = map[Transition]string{
	TransitionAny:                       "Any",
	TransitionDomainSelect:              "DomainSelect",
	TransitionRawContentGet:             "RawContentGet",
	TransitionRestDiscovery:             "RestDiscovery",
	TransitionRestCompile:               "RestCompile",
	TransitionCommandSelect:             "CommandSelect",
	TransitionExpectedOutcome:           "ExpectedOutcome",
	TransitionExecutionPlanSelect:       "ExecutionPlanSelect",
	TransitionCommandInvocation:         "CommandInvocation",
	TransitionCommandInvocationAnalysis: "CommandInvocationAnalysis",
}

func (t Transition) String() string {
	if name, ok := transitionNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Session fact keys. The six snapshot keys are folded into the session
// context message on every phase iteration; the plan keys are consumed
// by plan rendering and execution.
const (
	KeySelectedDomain                    = "SelectedDomain"
	KeyDetectedRestOperations            = "DetectedRestOperations"
	KeyDetectedRestOperationsWithContent = "DetectedRestOperationsWithContent"
	KeySelectedCommand                   = "SelectedCommand"
	KeySelectedCommandResult             = "SelectedCommandResult"
	KeyCorrectedUserMessage              = "CorrectedUserMessage"
	KeyDetectedSwaggerRoutes             = "DetectedSwaggerRoutes"
	KeySelectedExecutionPlan             = "SelectedExecutionPlan"
	KeySelectedExecutionPlanJSON         = "SelectedExecutionPlanJson"
)

// snapshotKeys are the facts replayed to the model each iteration.
// Missing entries render as the literal "none".
var snapshotKeys = []string{
	KeySelectedDomain,
	KeyDetectedRestOperations,
	KeySelectedCommand,
	KeySelectedCommandResult,
	KeyCorrectedUserMessage,
	KeyDetectedSwaggerRoutes,
}
