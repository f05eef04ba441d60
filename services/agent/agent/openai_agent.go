// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/observability"
)

var tracer = otel.Tracer("services/agent/agent")

// maxToolRounds bounds the tool-call loop. A well-behaved model settles
// a phase in a handful of rounds; this catches the ones that do not.
const maxToolRounds = 16

// Config holds the OpenAI-compatible backend settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// RequestsPerSecond throttles outbound completion calls.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// OpenAIAgent is a CompletionAgent backed by any OpenAI-compatible
// chat completion endpoint (api.openai.com, Azure OpenAI, vLLM,
// llama.cpp server, and friends via BaseURL).
type OpenAIAgent struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics *observability.AgentMetrics
}

var _ CompletionAgent = (*OpenAIAgent)(nil)

// NewOpenAIAgent builds an agent from cfg.
//
// # Description
//
// The underlying client is the go-openai SDK, pointed at cfg.BaseURL
// when set. The rate limiter applies to every completion request,
// including the intermediate rounds of a tool-call loop, so a single
// chat turn cannot starve other users of backend quota.
func NewOpenAIAgent(cfg Config, metrics *observability.AgentMetrics, logger *slog.Logger) (*OpenAIAgent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("agent: API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("agent: model is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &OpenAIAgent{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: limiter,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Model returns the configured model identifier.
func (a *OpenAIAgent) Model() string {
	return a.model
}

// Complete implements CompletionAgent.
func (a *OpenAIAgent) Complete(ctx context.Context, msgs []datatypes.Message) (datatypes.Message, error) {
	ctx, span := tracer.Start(ctx, "OpenAIAgent.Complete")
	defer span.End()

	resp, err := a.createCompletion(ctx, toOpenAIMessages(msgs), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		a.metrics.RecordLLMRequest("plain", "error")
		return datatypes.Message{}, err
	}
	a.metrics.RecordLLMRequest("plain", "ok")

	return assistantMessage(resp)
}

// CompleteWithTools implements CompletionAgent.
//
// The loop feeds tool results back as role=tool messages until the
// model answers without tool calls. Tool errors become failed tool
// results visible to the model, except those wrapping ErrAbortTurn,
// which terminate the turn immediately.
func (a *OpenAIAgent) CompleteWithTools(ctx context.Context, msgs []datatypes.Message, inv Invoker) (datatypes.Message, error) {
	ctx, span := tracer.Start(ctx, "OpenAIAgent.CompleteWithTools")
	defer span.End()

	tools := inv.Definitions()
	conv := toOpenAIMessages(msgs)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.createCompletion(ctx, conv, tools)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "completion failed")
			a.metrics.RecordLLMRequest("tools", "error")
			return datatypes.Message{}, err
		}
		a.metrics.RecordLLMRequest("tools", "ok")

		if len(resp.Choices) == 0 {
			return datatypes.Message{}, errors.New("agent: completion returned no choices")
		}
		reply := resp.Choices[0].Message
		if len(reply.ToolCalls) == 0 {
			return datatypes.Message{Role: datatypes.RoleAssistant, Content: reply.Content}, nil
		}

		conv = append(conv, reply)
		for _, call := range reply.ToolCalls {
			span.SetAttributes(attribute.String("tool.name", call.Function.Name))
			result, invErr := inv.Invoke(ctx, call.Function.Name, call.Function.Arguments)
			if invErr != nil {
				if errors.Is(invErr, ErrAbortTurn) {
					span.RecordError(invErr)
					span.SetStatus(codes.Error, "tool aborted turn")
					return datatypes.Message{}, invErr
				}
				a.logger.Warn("tool call failed",
					"tool", call.Function.Name,
					"error", invErr)
				result = fmt.Sprintf(`{"error":%q}`, invErr.Error())
			}
			conv = append(conv, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return datatypes.Message{}, fmt.Errorf("agent: tool loop exceeded %d rounds", maxToolRounds)
}

func (a *OpenAIAgent) createCompletion(ctx context.Context, conv []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, err
		}
	}
	req := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: conv,
		Tools:    tools,
	}
	return a.client.CreateChatCompletion(ctx, req)
}

func assistantMessage(resp openai.ChatCompletionResponse) (datatypes.Message, error) {
	if len(resp.Choices) == 0 {
		return datatypes.Message{}, errors.New("agent: completion returned no choices")
	}
	return datatypes.Message{
		Role:    datatypes.RoleAssistant,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func toOpenAIMessages(msgs []datatypes.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		})
	}
	return out
}
