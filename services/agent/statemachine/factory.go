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
	"log/slog"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/observability"
)

// Deps are the shared dependencies injected into every phase.
type Deps struct {
	Agent      agent.CompletionAgent
	Prompts    PromptSource
	Operations *datatypes.OperationStore
	Metrics    *observability.AgentMetrics
	Logger     *slog.Logger
}

// Factory builds and caches the phase singletons. Phases hold no
// per-user state, so one instance of each serves every session.
type Factory struct {
	domainSelect  *DomainSelectState
	restDiscovery *RestDiscoveryState
	commandSelect *CommandSelectState
	executionPlan *ExecutionPlanState
	commandInvoke *CommandInvokeState
}

// NewFactory wires the five phases against deps.
func NewFactory(deps Deps) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	f := &Factory{}
	base := baseState{
		agent:   deps.Agent,
		prompts: deps.Prompts,
		ops:     deps.Operations,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		factory: f,
	}
	f.domainSelect = &DomainSelectState{baseState: base}
	f.restDiscovery = &RestDiscoveryState{baseState: base}
	f.commandSelect = &CommandSelectState{baseState: base}
	f.executionPlan = &ExecutionPlanState{baseState: base}
	f.commandInvoke = &CommandInvokeState{baseState: base}
	return f
}

// DomainSelect returns the domain selection phase.
func (f *Factory) DomainSelect() *DomainSelectState { return f.domainSelect }

// RestDiscovery returns the swagger discovery phase.
func (f *Factory) RestDiscovery() *RestDiscoveryState { return f.restDiscovery }

// CommandSelect returns the command selection phase.
func (f *Factory) CommandSelect() *CommandSelectState { return f.commandSelect }

// ExecutionPlan returns the plan building phase.
func (f *Factory) ExecutionPlan() *ExecutionPlanState { return f.executionPlan }

// CommandInvoke returns the invocation phase.
func (f *Factory) CommandInvoke() *CommandInvokeState { return f.commandInvoke }
