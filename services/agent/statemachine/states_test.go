// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package statemachine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusai/argus/services/agent/datatypes"
)

// ============================================================================
// Test Setup
// ============================================================================

type harness struct {
	factory  *Factory
	agent    *scriptedAgent
	reporter *recordingReporter
	ops      *datatypes.OperationStore
	turn     *Turn
}

func newHarness(replies ...string) *harness {
	ag := &scriptedAgent{replies: replies}
	ops := datatypes.NewOperationStore()
	f := NewFactory(Deps{
		Agent:      ag,
		Prompts:    stubPrompts{},
		Operations: ops,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	rep := &recordingReporter{}
	return &harness{
		factory:  f,
		agent:    ag,
		reporter: rep,
		ops:      ops,
		turn: &Turn{
			UserKey:    "tester",
			Session:    NewSession(),
			Transcript: datatypes.NewTranscript(nil),
			Reporter:   rep,
		},
	}
}

// ============================================================================
// Domain Selection
// ============================================================================

func TestDomainSelect_StoresDetectedDomainBeforeConfirmation(t *testing.T) {
	h := newHarness(`{"detectedDomain":"https://api.example.com","userResponse":"Use this domain?","isConfirmed":false}`)
	sc := NewStateContext(h.factory.DomainSelect())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)
	assert.Equal(t, TransitionDomainSelect, next)

	domain, ok := h.turn.Session.StepResult(KeySelectedDomain)
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", domain)

	require.Len(t, h.reporter.messages, 1)
	assert.Equal(t, "Use this domain?", h.reporter.messages[0].Content)
	assert.Same(t, h.factory.DomainSelect(), sc.Current().(*DomainSelectState))
}

func TestDomainSelect_ConfirmationAdvancesToDiscovery(t *testing.T) {
	h := newHarness(`{"detectedDomain":"https://api.example.com","isConfirmed":true}`)
	sc := NewStateContext(h.factory.DomainSelect())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionRestDiscovery, next)
	assert.Same(t, h.factory.RestDiscovery(), sc.Current().(*RestDiscoveryState))
	assert.Equal(t, TransitionRestDiscovery, h.turn.Session.CurrentTransition())
}

func TestDomainSelect_EmptyUserResponseGetsPlaceholder(t *testing.T) {
	h := newHarness(`{"isConfirmed":false}`)
	sc := NewStateContext(h.factory.DomainSelect())

	_, _, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	require.Len(t, h.reporter.messages, 1)
	assert.NotEmpty(t, h.reporter.messages[0].Content)
}

// ============================================================================
// Parse Retry Budget
// ============================================================================

func TestParseBudget_ExhaustionLeavesSessionUntouched(t *testing.T) {
	h := newHarness("this is not json")
	sc := NewStateContext(h.factory.DomainSelect())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)
	assert.Equal(t, TransitionDomainSelect, next)
	assert.Equal(t, maxParseAttempts, h.agent.calls)

	_, ok := h.turn.Session.StepResult(KeySelectedDomain)
	assert.False(t, ok)

	require.Len(t, h.reporter.messages, 1)
	assert.Equal(t, retryRequestMessage, h.reporter.messages[0].Content)
}

func TestParseBudget_RecoversWithinBudget(t *testing.T) {
	h := newHarness(
		"garbage",
		`{"detectedDomain":"https://api.example.com","isConfirmed":true}`,
	)
	sc := NewStateContext(h.factory.DomainSelect())

	_, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, 2, h.agent.calls)
}

// ============================================================================
// REST Discovery
// ============================================================================

func TestRestDiscovery_FormatsOperationsFromStore(t *testing.T) {
	schema := base64.StdEncoding.EncodeToString([]byte(`{"type":"object"}`))
	reply := `{"detectedOperations":[{"httpMethod":"GET"}],"isConfirmed":false,"userResponse":"Found operations."}`
	h := newHarness(reply)
	h.ops.Put("tester", []datatypes.SwaggerOperation{
		{HTTPMethod: "GET", URL: "/pets", APIVersion: "2024-01-01"},
		{HTTPMethod: "POST", URL: "/pets?api-version=v1", Content: schema},
	})
	sc := NewStateContext(h.factory.RestDiscovery())

	_, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)

	stripped, ok := h.turn.Session.StepResult(KeyDetectedRestOperations)
	require.True(t, ok)
	assert.Equal(t,
		"Operation method: GET, path: /pets?api-version=2024-01-01\n"+
			"Operation method: POST, path: /pets?api-version=v1",
		stripped)

	withContent, ok := h.turn.Session.StepResult(KeyDetectedRestOperationsWithContent)
	require.True(t, ok)
	assert.Contains(t, withContent, `content: {"type":"object"}`)
}

// Models render detectedOperations as objects or as plain strings;
// either form must parse on the first attempt and count as discovery.
func TestRestDiscovery_AcceptsStringOperationElements(t *testing.T) {
	reply := `{"detectedOperations":["GET /v1/accounts"],"isConfirmed":true}`
	h := newHarness(reply)
	h.ops.Put("tester", []datatypes.SwaggerOperation{
		{HTTPMethod: "GET", URL: "/v1/accounts"},
	})
	sc := NewStateContext(h.factory.RestDiscovery())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionCommandInvocation, next)
	assert.Equal(t, 1, h.agent.calls)

	stripped, ok := h.turn.Session.StepResult(KeyDetectedRestOperations)
	require.True(t, ok)
	assert.Equal(t, "Operation method: GET, path: /v1/accounts", stripped)
}

func TestRestDiscovery_SwaggerRoutesRenderSorted(t *testing.T) {
	reply := `{"detectedSwaggerRoutes":{"v2":"/swagger/v2/swagger.json","v1":"/swagger/v1/swagger.json"},"isConfirmed":false}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.RestDiscovery())

	_, _, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	routes, ok := h.turn.Session.StepResult(KeyDetectedSwaggerRoutes)
	require.True(t, ok)
	assert.Equal(t,
		"API Version: v1, Route: /swagger/v1/swagger.json\n"+
			"API Version: v2, Route: /swagger/v2/swagger.json",
		routes)
}

func TestRestDiscovery_ConfirmationRequiresDiscoveredOperations(t *testing.T) {
	h := newHarness(`{"isConfirmed":true,"userResponse":"Nothing discovered yet."}`)
	sc := NewStateContext(h.factory.RestDiscovery())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)
	assert.Equal(t, TransitionRestDiscovery, next)
}

func TestRestDiscovery_ConfirmationAdvancesToInvocation(t *testing.T) {
	h := newHarness(`{"isConfirmed":true}`)
	h.turn.Session.AddStepResult(KeyDetectedRestOperations, "Operation method: GET, path: /pets")
	sc := NewStateContext(h.factory.RestDiscovery())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionCommandInvocation, next)
	assert.Same(t, h.factory.CommandInvoke(), sc.Current().(*CommandInvokeState))
	assert.Equal(t, TransitionCommandSelect, h.turn.Session.CurrentTransition())
}

// ============================================================================
// Command Selection
// ============================================================================

func TestCommandSelect_StoresCanonicalCommand(t *testing.T) {
	reply := `{"commandSelected":true,"commandIsValid":true,"isConfirmed":false,` +
		`"httpMethod":"POST","requestUri":"/pets","content":"{\"name\":\"rex\"}",` +
		`"userResponse":"Run this?"}`
	h := newHarness(reply)
	h.turn.Session.AddStepResult(KeyCorrectedUserMessage, "stale correction")
	sc := NewStateContext(h.factory.CommandSelect())

	_, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)

	command, ok := h.turn.Session.StepResult(KeySelectedCommand)
	require.True(t, ok)
	assert.Equal(t,
		"Http Method: POST\nRequest Uri: /pets\nRequest Content:```json\n{\"name\":\"rex\"}\n```",
		command)

	_, ok = h.turn.Session.StepResult(KeyCorrectedUserMessage)
	assert.False(t, ok, "a fresh selection must drop the remembered correction")
}

func TestCommandSelect_EmptyBodyRendersEmptyObject(t *testing.T) {
	reply := `{"commandSelected":true,"commandIsValid":false,"isConfirmed":false,` +
		`"httpMethod":"GET","requestUri":"/pets"}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.CommandSelect())

	_, _, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	command, ok := h.turn.Session.StepResult(KeySelectedCommand)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(command, "```json\n{}\n```"))
}

func TestCommandSelect_ConfirmationAdvancesToInvocation(t *testing.T) {
	reply := `{"commandSelected":true,"commandIsValid":true,"isConfirmed":true,` +
		`"httpMethod":"GET","requestUri":"/pets"}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.CommandSelect())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionCommandInvocation, next)
	assert.Same(t, h.factory.CommandInvoke(), sc.Current().(*CommandInvokeState))
	assert.Equal(t, TransitionCommandSelect, h.turn.Session.CurrentTransition())
}

func TestCommandSelect_CatalogMessageIsReplacedNotStacked(t *testing.T) {
	reply := `{"commandSelected":false,"commandIsValid":false,"isConfirmed":false,"userResponse":"Which one?"}`
	h := newHarness(reply, reply)
	h.turn.Session.AddStepResult(KeyDetectedRestOperationsWithContent, "Operation method: GET, path: /pets")
	sc := NewStateContext(h.factory.CommandSelect())

	_, _, err := sc.Handle(context.Background(), h.turn)
	require.NoError(t, err)
	_, _, err = sc.Handle(context.Background(), h.turn)
	require.NoError(t, err)

	count := 0
	for _, m := range h.turn.Transcript.Messages {
		if m.Role == datatypes.RoleSystem && strings.Contains(m.Content, swaggerCatalogMarker) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// ============================================================================
// Execution Plan
// ============================================================================

func TestExecutionPlan_FencedReplyBuildsPlan(t *testing.T) {
	reply := "```json\n" + `{"updatedPlan":[{"stepNumber":1,"method":"GET","url":"/pets"}],` +
		`"changes":[{"changeType":"added","stepNumber":1}],"isConfirmed":false,` +
		`"userResponse":"One step so far."}` + "\n```"
	h := newHarness(reply)
	sc := NewStateContext(h.factory.ExecutionPlan())

	_, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.False(t, concluded)

	rendered, ok := h.turn.Session.StepResult(KeySelectedExecutionPlan)
	require.True(t, ok)
	assert.Equal(t, "Step 1: GET /pets", rendered)

	raw, ok := h.turn.Session.StepResult(KeySelectedExecutionPlanJSON)
	require.True(t, ok)
	var plan []datatypes.PlanStep
	require.NoError(t, json.Unmarshal([]byte(raw), &plan))
	require.Len(t, plan, 1)
	assert.Equal(t, "GET", plan[0].Method)
}

func TestExecutionPlan_AllRemovedDoesNotWipeCachedPlan(t *testing.T) {
	reply := `{"changes":[{"changeType":"removed","stepNumber":1}],"isConfirmed":false,"userResponse":"Removed it."}`
	h := newHarness(reply)
	cached := `[{"stepNumber":1,"method":"GET","url":"/pets"}]`
	h.turn.Session.AddStepResult(KeySelectedExecutionPlanJSON, cached)
	h.turn.Session.AddStepResult(KeySelectedExecutionPlan, "Step 1: GET /pets")
	sc := NewStateContext(h.factory.ExecutionPlan())

	_, _, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	raw, ok := h.turn.Session.StepResult(KeySelectedExecutionPlanJSON)
	require.True(t, ok)
	assert.Equal(t, cached, raw)
}

func TestExecutionPlan_ConfirmationAdvancesToInvocation(t *testing.T) {
	h := newHarness(`{"isConfirmed":true}`)
	sc := NewStateContext(h.factory.ExecutionPlan())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionCommandInvocation, next)
	assert.Same(t, h.factory.CommandInvoke(), sc.Current().(*CommandInvokeState))
	assert.Equal(t, TransitionCommandInvocation, h.turn.Session.CurrentTransition())
}

// ============================================================================
// Command Invocation
// ============================================================================

func TestCommandInvoke_AnalysisIsReportedExactlyOnce(t *testing.T) {
	reply := `{"analysis":"The call returned 200 as expected.","outcomeMatched":true,"nextState":"CommandSelect"}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.CommandInvoke())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionCommandSelect, next)

	count := 0
	for _, m := range h.reporter.messages {
		if m.Content == "The call returned 200 as expected." {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCommandInvoke_RoutesToPlanBuilding(t *testing.T) {
	reply := `{"analysis":"Let us build a plan.","outcomeMatched":false,"nextState":"ExecutionPlanSelect"}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.CommandInvoke())

	next, concluded, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	assert.True(t, concluded)
	assert.Equal(t, TransitionExecutionPlanSelect, next)
	assert.Same(t, h.factory.ExecutionPlan(), sc.Current().(*ExecutionPlanState))
}

func TestCommandInvoke_ReservedTargetsStayPut(t *testing.T) {
	for _, nextState := range []string{"ExpectedOutcome", "DomainSelect", "RestDiscovery", "CommandInvocationAnalysis", "CommandInvocation", "bogus", "None", ""} {
		t.Run("nextState="+nextState, func(t *testing.T) {
			reply := `{"analysis":"Done.","outcomeMatched":true,"nextState":"` + nextState + `"}`
			h := newHarness(reply)
			sc := NewStateContext(h.factory.CommandInvoke())

			next, concluded, err := sc.Handle(context.Background(), h.turn)

			require.NoError(t, err)
			assert.False(t, concluded)
			assert.Equal(t, TransitionCommandInvocation, next)
			assert.Same(t, h.factory.CommandInvoke(), sc.Current().(*CommandInvokeState))
		})
	}
}

func TestCommandInvoke_StoresCorrectedUserMessage(t *testing.T) {
	reply := `{"analysis":"Noted.","outcomeMatched":false,"correctedUserMessage":"invoke GET /pets"}`
	h := newHarness(reply)
	sc := NewStateContext(h.factory.CommandInvoke())

	_, _, err := sc.Handle(context.Background(), h.turn)

	require.NoError(t, err)
	corrected, ok := h.turn.Session.StepResult(KeyCorrectedUserMessage)
	require.True(t, ok)
	assert.Equal(t, "invoke GET /pets", corrected)
}

func TestParseNextState(t *testing.T) {
	tests := []struct {
		in   string
		want Transition
		ok   bool
	}{
		{"CommandSelect", TransitionCommandSelect, true},
		{"COMMANDSELECT", TransitionCommandSelect, true},
		{" executionplanselect ", TransitionExecutionPlanSelect, true},
		{"ExpectedOutcome", TransitionExpectedOutcome, true},
		{"CommandInvocation", TransitionCommandInvocation, true},
		{"DomainSelect", TransitionDomainSelect, true},
		{"RestDiscovery", TransitionRestDiscovery, true},
		{"CommandInvocationAnalysis", TransitionCommandInvocationAnalysis, true},
		{"something else", TransitionAny, false},
	}
	for _, tt := range tests {
		got, ok := parseNextState(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
