// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the API testing
// agent: turn outcomes, phase transitions, parse failures, LLM traffic,
// tool invocations, and plan execution results. Metrics are exposed via
// the /metrics endpoint.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "argus"

const agentSubsystem = "agent"

// AgentMetrics holds all Prometheus metrics for the agent service.
// Initialize once at startup via NewAgentMetrics(). All record methods
// are nil-safe so tests can pass a nil receiver through the stack.
type AgentMetrics struct {
	// TurnsTotal counts processed chat turns.
	// Labels: status (success, error)
	TurnsTotal *prometheus.CounterVec

	// TransitionsTotal counts state transitions.
	// Labels: from, to
	TransitionsTotal *prometheus.CounterVec

	// ParseFailuresTotal counts structured-output parse failures.
	// Labels: state
	ParseFailuresTotal *prometheus.CounterVec

	// LLMRequestsTotal counts completion requests.
	// Labels: mode (plain, tools), status (ok, error)
	LLMRequestsTotal *prometheus.CounterVec

	// ToolInvocationsTotal counts tool call dispatches.
	// Labels: tool, status (ok, error)
	ToolInvocationsTotal *prometheus.CounterVec

	// PlanStepsTotal counts executed plan steps.
	// Labels: outcome (passed, failed, error)
	PlanStepsTotal *prometheus.CounterVec

	// ActiveStreams tracks currently open SSE responses.
	ActiveStreams prometheus.Gauge
}

// DefaultMetrics is the singleton instance registered against the
// default Prometheus registry. Initialized by InitMetrics().
var DefaultMetrics *AgentMetrics

// InitMetrics initializes DefaultMetrics. Call once at startup; calling
// twice panics on duplicate registration.
func InitMetrics() *AgentMetrics {
	DefaultMetrics = NewAgentMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewAgentMetrics creates and registers the agent metric set against
// reg. Tests pass a fresh prometheus.NewRegistry().
func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	factory := promauto.With(reg)
	return &AgentMetrics{
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "turns_total",
				Help:      "Total chat turns processed by status",
			},
			[]string{"status"},
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "transitions_total",
				Help:      "Total state transitions by source and destination",
			},
			[]string{"from", "to"},
		),

		ParseFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "parse_failures_total",
				Help:      "Structured output parse failures by state",
			},
			[]string{"state"},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "llm_requests_total",
				Help:      "Completion requests by mode and status",
			},
			[]string{"mode", "status"},
		),

		ToolInvocationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "tool_invocations_total",
				Help:      "Tool call dispatches by tool name and status",
			},
			[]string{"tool", "status"},
		),

		PlanStepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "plan_steps_total",
				Help:      "Executed plan steps by outcome",
			},
			[]string{"outcome"},
		),

		ActiveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: agentSubsystem,
				Name:      "active_streams",
				Help:      "Currently open SSE responses",
			},
		),
	}
}

// RecordTurn increments TurnsTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordTurn(status string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
}

// RecordTransition increments TransitionsTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordParseFailure increments ParseFailuresTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordParseFailure(state string) {
	if m == nil {
		return
	}
	m.ParseFailuresTotal.WithLabelValues(state).Inc()
}

// RecordLLMRequest increments LLMRequestsTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordLLMRequest(mode, status string) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(mode, status).Inc()
}

// RecordToolInvocation increments ToolInvocationsTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordToolInvocation(tool, status string) {
	if m == nil {
		return
	}
	m.ToolInvocationsTotal.WithLabelValues(tool, status).Inc()
}

// RecordPlanStep increments PlanStepsTotal. Safe on a nil receiver.
func (m *AgentMetrics) RecordPlanStep(outcome string) {
	if m == nil {
		return
	}
	m.PlanStepsTotal.WithLabelValues(outcome).Inc()
}

// StreamOpened increments ActiveStreams. Safe on a nil receiver.
func (m *AgentMetrics) StreamOpened() {
	if m == nil {
		return
	}
	m.ActiveStreams.Inc()
}

// StreamClosed decrements ActiveStreams. Safe on a nil receiver.
func (m *AgentMetrics) StreamClosed() {
	if m == nil {
		return
	}
	m.ActiveStreams.Dec()
}
