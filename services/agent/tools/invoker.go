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
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/observability"
	"github.com/argusai/argus/services/agent/statemachine"
)

var tracer = otel.Tracer("services/agent/tools")

// Tool names advertised to the model.
const (
	ToolGithubSwagger      = "get_github_rest_swagger_definition"
	ToolServiceAPIVersions = "get_service_rest_api_versions_swagger_definition"
	ToolServiceSwagger     = "get_service_rest_swagger_definition"
	ToolRestInvoke         = "rest_invoke"
	ToolExecutePlan        = "execute_plan"
	ToolPublishThinking    = "publish_thinking"
)

// Invoker dispatches the model's tool calls for one turn. It is built
// per request because it carries the turn's user identity and stream
// reporter.
type Invoker struct {
	user     string
	sessions *statemachine.Store
	ops      *datatypes.OperationStore
	rest     RestClient
	github   *GithubContentClient
	reporter statemachine.Reporter
	metrics  *observability.AgentMetrics
	logger   *slog.Logger
}

var _ agent.Invoker = (*Invoker)(nil)

// InvokerDeps are the long-lived dependencies shared across turns.
type InvokerDeps struct {
	Sessions   *statemachine.Store
	Operations *datatypes.OperationStore
	Rest       RestClient
	Github     *GithubContentClient
	Metrics    *observability.AgentMetrics
	Logger     *slog.Logger
}

// NewInvoker builds the tool dispatcher for one turn.
func NewInvoker(user string, reporter statemachine.Reporter, deps InvokerDeps) *Invoker {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		user:     user,
		sessions: deps.Sessions,
		ops:      deps.Operations,
		rest:     deps.Rest,
		github:   deps.Github,
		reporter: reporter,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Definitions implements agent.Invoker.
func (i *Invoker) Definitions() []openai.Tool {
	return []openai.Tool{
		functionTool(ToolGithubSwagger,
			"Retrieves and parses a Swagger (OpenAPI) definition from a GitHub repository. "+
				"Returns the discovered REST operations with method and path; request body content is handled internally.",
			map[string]any{
				"owner":  stringProp("The GitHub organization or user name."),
				"repo":   stringProp("The GitHub repository name."),
				"branch": stringProp("The branch name, e.g. 'main'."),
				"path":   stringProp("The path to the Swagger (OpenAPI) JSON file in the repository."),
			},
			[]string{"owner", "repo", "branch", "path"}),

		functionTool(ToolServiceAPIVersions,
			"Retrieves the supported API versions and their Swagger JSON routes from a service's /swagger index. "+
				"Returns a map of API version to Swagger JSON route.",
			map[string]any{
				"domainName": stringProp("The base domain of the service, e.g. https://localhost:5001."),
			},
			[]string{"domainName"}),

		functionTool(ToolServiceSwagger,
			"Retrieves and parses the Swagger (OpenAPI) definition for a specific API version from a service. "+
				"Returns the discovered REST operations with method and path.",
			map[string]any{
				"domainName":   stringProp("The base domain of the service, e.g. https://localhost:5001."),
				"swaggerRoute": stringProp("The route to the Swagger JSON, e.g. /swagger/v1/swagger.json."),
			},
			[]string{"domainName", "swaggerRoute"}),

		functionTool(ToolRestInvoke,
			"Invokes a REST API endpoint with the given HTTP method, URL and optional JSON body. "+
				"Returns an object with httpStatusCode and content.",
			map[string]any{
				"method": stringProp("The HTTP method, e.g. 'GET' or 'POST'."),
				"url":    stringProp("The absolute URL of the endpoint."),
				"body":   stringProp("The JSON request body, if applicable."),
			},
			[]string{"method", "url"}),

		functionTool(ToolExecutePlan,
			"Executes the entire execution plan stored in the session, step by step. "+
				"Execution stops at the first step that fails its expectation. "+
				"Returns totalSteps, successfulSteps, failedSteps and per-step results for analysis. "+
				"Use this when the user wants to run the complete confirmed test plan.",
			map[string]any{},
			nil),

		functionTool(ToolPublishThinking,
			"Publishes your rationale and next steps to the user. Use this every time you are about to run other tools: "+
				"rationale explains why, currentStep names the question being answered now, nextSteps lists planned actions.",
			map[string]any{
				"rationale":   stringProp("Why these tools / this step?"),
				"currentStep": stringProp("The concrete question being answered now."),
				"nextSteps": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Planned next actions.",
				},
			},
			[]string{"rationale", "currentStep"}),
	}
}

// Invoke implements agent.Invoker.
func (i *Invoker) Invoke(ctx context.Context, name, arguments string) (string, error) {
	ctx, span := tracer.Start(ctx, "Invoker.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", name))

	result, err := i.dispatch(ctx, name, arguments)
	if err != nil {
		i.metrics.RecordToolInvocation(name, "error")
		i.logger.Warn("tool invocation failed", "tool", name, "user", i.user, "error", err)
		return "", err
	}
	i.metrics.RecordToolInvocation(name, "ok")
	return result, nil
}

func (i *Invoker) dispatch(ctx context.Context, name, arguments string) (string, error) {
	switch name {
	case ToolGithubSwagger:
		var args struct {
			Owner  string `json:"owner"`
			Repo   string `json:"repo"`
			Branch string `json:"branch"`
			Path   string `json:"path"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
		}
		doc, err := i.github.GetRawContent(ctx, args.Owner, args.Repo, args.Branch, args.Path)
		if err != nil {
			return "", err
		}
		return i.parseAndStash(doc)

	case ToolServiceAPIVersions:
		var args struct {
			DomainName string `json:"domainName"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
		}
		resp, err := i.rest.Invoke(ctx, "GET", strings.TrimRight(args.DomainName, "/")+"/swagger", nil, "")
		if err != nil {
			return "", err
		}
		routes := ParseSwaggerVersionRoutes(resp.Content)
		if len(routes) == 0 {
			return "", fmt.Errorf("tools: no swagger routes found at %s/swagger", args.DomainName)
		}
		return marshalResult(routes)

	case ToolServiceSwagger:
		var args struct {
			DomainName   string `json:"domainName"`
			SwaggerRoute string `json:"swaggerRoute"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
		}
		url := strings.TrimRight(args.DomainName, "/") + "/" + strings.TrimLeft(args.SwaggerRoute, "/")
		resp, err := i.rest.Invoke(ctx, "GET", url, nil, "")
		if err != nil {
			return "", err
		}
		if resp.HTTPStatusCode != 200 {
			return "", fmt.Errorf("tools: swagger fetch returned %d for %s", resp.HTTPStatusCode, url)
		}
		return i.parseAndStash(resp.Content)

	case ToolRestInvoke:
		var args struct {
			Method string `json:"method"`
			URL    string `json:"url"`
			Body   string `json:"body"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
		}
		resp, err := i.rest.Invoke(ctx, args.Method, args.URL, nil, args.Body)
		if err != nil {
			return "", err
		}
		return marshalResult(resp)

	case ToolExecutePlan:
		result, err := i.executePlan(ctx)
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case ToolPublishThinking:
		var args struct {
			Rationale   string   `json:"rationale"`
			CurrentStep string   `json:"currentStep"`
			NextSteps   []string `json:"nextSteps"`
		}
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %s: %w", name, err)
		}
		i.logger.Info("model thinking",
			"user", i.user,
			"rationale", args.Rationale,
			"currentStep", args.CurrentStep,
			"nextSteps", args.NextSteps)
		text := args.CurrentStep
		if text == "" {
			text = args.Rationale
		}
		if text != "" {
			if err := i.reporter.ReportText("Thinking: " + text); err != nil {
				return "", err
			}
		}
		return `{"published":true}`, nil

	default:
		return "", fmt.Errorf("tools: unknown tool %q", name)
	}
}

// parseAndStash parses a swagger document, replaces the user's stored
// operation list, and returns the content-stripped operations for the
// model. Body schemas stay server-side; the model only needs methods
// and paths, and schemas can be large.
func (i *Invoker) parseAndStash(doc string) (string, error) {
	ops, err := ParseSwaggerOperations(doc)
	if err != nil {
		return "", err
	}
	i.ops.Put(i.user, ops)

	stripped := make([]datatypes.SwaggerOperation, len(ops))
	for idx, op := range ops {
		stripped[idx] = op
		stripped[idx].Content = ""
	}
	return marshalResult(stripped)
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: marshaling result: %w", err)
	}
	return string(data), nil
}

func functionTool(name, description string, props map[string]any, required []string) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters: map[string]any{
				"type":       "object",
				"properties": props,
				"required":   required,
			},
		},
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
