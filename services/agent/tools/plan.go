// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/statemachine"
)

// KeyExecutionPlanResults is the session fact holding the JSON results
// of the last whole-plan run.
const KeyExecutionPlanResults = "ExecutionPlanResults"

// ExecutionPlanResult summarizes a whole-plan run for the model.
type ExecutionPlanResult struct {
	TotalSteps      int                   `json:"totalSteps"`
	SuccessfulSteps int                   `json:"successfulSteps"`
	FailedSteps     int                   `json:"failedSteps"`
	StepResults     []StepExecutionResult `json:"stepResults"`
}

// StepExecutionResult is the per-step record within a plan run.
type StepExecutionResult struct {
	StepNumber      int    `json:"stepNumber"`
	Method          string `json:"method"`
	URL             string `json:"url"`
	HTTPStatusCode  int    `json:"httpStatusCode"`
	Success         bool   `json:"success"`
	ResponseContent string `json:"responseContent"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

// executePlan runs the session's confirmed plan sequentially, stopping
// at the first step that fails its expectation or errors. Per-step
// progress goes to the client through the reporter as it happens; the
// aggregate result is stored in the session and returned for analysis.
//
// A missing or unparseable plan aborts the turn: the model cannot fix
// that by itself, so there is no point feeding it back as a tool
// failure.
func (i *Invoker) executePlan(ctx context.Context) (*ExecutionPlanResult, error) {
	sess := i.sessions.GetOrCreate(i.user)

	planJSON, ok := sess.StepResult(statemachine.KeySelectedExecutionPlanJSON)
	if !ok || planJSON == "" {
		msg := "No execution plan found in session. Please create and confirm an execution plan first."
		if err := i.reporter.ReportText(msg); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no execution plan in session", agent.ErrAbortTurn)
	}

	var plan []datatypes.PlanStep
	if err := json.Unmarshal([]byte(planJSON), &plan); err != nil {
		msg := fmt.Sprintf("Failed to parse execution plan: %v", err)
		if reportErr := i.reporter.ReportText(msg); reportErr != nil {
			return nil, reportErr
		}
		return nil, fmt.Errorf("%w: execution plan unparseable: %v", agent.ErrAbortTurn, err)
	}
	if len(plan) == 0 {
		if err := i.reporter.ReportText("Execution plan is empty"); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: execution plan is empty", agent.ErrAbortTurn)
	}

	if err := i.reporter.ReportText(fmt.Sprintf("Starting execution of plan with %d steps", len(plan))); err != nil {
		return nil, err
	}

	result := &ExecutionPlanResult{TotalSteps: len(plan)}
	for _, step := range plan {
		stepResult := StepExecutionResult{
			StepNumber: step.StepNumber,
			Method:     step.Method,
			URL:        step.URL,
		}

		if err := i.reporter.ReportText(fmt.Sprintf("Executing Step %d: %s %s", step.StepNumber, step.Method, step.URL)); err != nil {
			return nil, err
		}

		body := ""
		if len(step.Body) > 0 {
			body = string(step.Body)
		}
		resp, err := i.rest.Invoke(ctx, step.Method, step.URL, nil, body)
		if err != nil {
			stepResult.Success = false
			stepResult.ErrorMessage = err.Error()
			result.FailedSteps++
			result.StepResults = append(result.StepResults, stepResult)
			i.metrics.RecordPlanStep("error")
			if reportErr := i.reporter.ReportText(fmt.Sprintf("✗ Step %d failed with error: %v", step.StepNumber, err)); reportErr != nil {
				return nil, reportErr
			}
			if reportErr := i.reporter.ReportText(fmt.Sprintf("Execution stopped at step %d. Returning results for analysis.", step.StepNumber)); reportErr != nil {
				return nil, reportErr
			}
			break
		}

		stepResult.HTTPStatusCode = resp.HTTPStatusCode
		stepResult.ResponseContent = resp.Content

		errs := validateStep(step, resp)
		stepResult.Success = len(errs) == 0
		if stepResult.Success {
			result.SuccessfulSteps++
			result.StepResults = append(result.StepResults, stepResult)
			i.metrics.RecordPlanStep("passed")
			if err := i.reporter.ReportText(fmt.Sprintf("✓ Step %d completed successfully - Status: %d", step.StepNumber, resp.HTTPStatusCode)); err != nil {
				return nil, err
			}
			continue
		}

		stepResult.ErrorMessage = joinErrors(errs)
		result.FailedSteps++
		result.StepResults = append(result.StepResults, stepResult)
		i.metrics.RecordPlanStep("failed")
		if err := i.reporter.ReportText(fmt.Sprintf("✗ Step %d failed - %s", step.StepNumber, stepResult.ErrorMessage)); err != nil {
			return nil, err
		}
		if err := i.reporter.ReportText(fmt.Sprintf("Execution stopped at step %d. Returning results for analysis.", step.StepNumber)); err != nil {
			return nil, err
		}
		break
	}

	resultsJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("tools: marshaling plan results: %w", err)
	}
	sess.AddStepResult(KeyExecutionPlanResults, string(resultsJSON))

	if err := i.reporter.ReportText(fmt.Sprintf("Plan execution finished: %d/%d steps successful", result.SuccessfulSteps, result.TotalSteps)); err != nil {
		return nil, err
	}
	return result, nil
}

// validateStep checks a response against the step's expectation. With
// no expectation declared, any 2xx status passes.
func validateStep(step datatypes.PlanStep, resp *RestResponse) []string {
	if step.Expectation == nil {
		if resp.HTTPStatusCode < 200 || resp.HTTPStatusCode >= 300 {
			return []string{fmt.Sprintf("HTTP status code %d indicates failure", resp.HTTPStatusCode)}
		}
		return nil
	}

	var errs []string
	if expected := step.Expectation.ExpectedStatusCode; expected != 0 && resp.HTTPStatusCode != expected {
		errs = append(errs, fmt.Sprintf("Expected status code %d but got %d", expected, resp.HTTPStatusCode))
	}
	if len(step.Expectation.ExpectedContent) > 0 {
		errs = append(errs, validateContent(resp.Content, step.Expectation.ExpectedContent)...)
	}
	return errs
}

// validateContent structurally matches the response body against the
// expected content: every expected field must exist with a compatible
// type. Expected arrays require a non-empty actual array and match
// against its first element.
func validateContent(responseContent string, expected json.RawMessage) []string {
	var actual any
	if err := json.Unmarshal([]byte(responseContent), &actual); err != nil {
		return []string{fmt.Sprintf("Invalid JSON in response: %v", err)}
	}
	var want any
	if err := json.Unmarshal(expected, &want); err != nil {
		return []string{fmt.Sprintf("Invalid JSON in expectation: %v", err)}
	}
	var errs []string
	matchValue(actual, want, "", &errs)
	return errs
}

func matchValue(actual, expected any, path string, errs *[]string) {
	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("Expected object at path '%s', but got %s", path, jsonKind(actual)))
			return
		}
		for name, wantVal := range want {
			childPath := name
			if path != "" {
				childPath = path + "." + name
			}
			gotVal, ok := got[name]
			if !ok {
				*errs = append(*errs, fmt.Sprintf("Missing expected property '%s' at path '%s'", name, path))
				continue
			}
			matchValue(gotVal, wantVal, childPath, errs)
		}

	case []any:
		got, ok := actual.([]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("Expected array at path '%s', but got %s", path, jsonKind(actual)))
			return
		}
		if len(want) > 0 {
			if len(got) == 0 {
				*errs = append(*errs, fmt.Sprintf("Expected non-empty array at path '%s'", path))
				return
			}
			matchValue(got[0], want[0], path+"[0]", errs)
		}

	default:
		if jsonKind(actual) != jsonKind(expected) {
			*errs = append(*errs, fmt.Sprintf("Expected %s at path '%s', but got %s", jsonKind(expected), path, jsonKind(actual)))
		}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

func joinErrors(errs []string) string {
	out := ""
	for i, e := range errs {
		if i > 0 {
			out += "; "
		}
		out += e
	}
	return out
}
