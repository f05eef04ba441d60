// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP surface of the agent service:
// the streaming chat endpoint, prompt administration, and the SSE
// writers both speak through.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/config"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/middleware"
	"github.com/argusai/argus/services/agent/observability"
	"github.com/argusai/argus/services/agent/statemachine"
	"github.com/argusai/argus/services/agent/tools"
)

var tracer = otel.Tracer("services/agent/handlers")

// AgentDeps bundles the long-lived dependencies of the chat endpoint.
type AgentDeps struct {
	Engine  *statemachine.Engine
	Agent   agent.CompletionAgent
	Tools   tools.InvokerDeps
	Config  config.Config
	Metrics *observability.AgentMetrics
	Logger  *slog.Logger
}

// HandleNextEvent serves POST /nextEvent.
//
// The request carries the replayed conversation; the response is an SSE
// stream of assistant messages produced while the session's state
// machine processes the turn, terminated by a DONE frame. On mid-stream
// failure the stream simply ends without DONE - by then headers are
// long gone and the client's retry replays the conversation anyway.
func HandleNextEvent(deps AgentDeps) gin.HandlerFunc {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleNextEvent")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.SetStatus(codes.Error, "malformed request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if err := req.Validate(); err != nil {
			span.SetStatus(codes.Error, "invalid request")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user := middleware.UserKey(c)
		if user == "" {
			user = deps.Config.Chat.DefaultUser
		}
		span.SetAttributes(attribute.String("user.key", user))

		SetSSEHeaders(c.Writer)
		writer, err := newStreamWriter(c.Writer, deps)
		if err != nil {
			logger.Error("stream writer unavailable", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
			return
		}
		c.Writer.WriteHeader(http.StatusOK)

		deps.Metrics.StreamOpened()
		defer deps.Metrics.StreamClosed()

		reporter := NewStreamReporter(writer)
		turn := &statemachine.Turn{
			UserKey:    user,
			Transcript: datatypes.NewTranscript(req.Messages),
			Reporter:   reporter,
			Invoker:    tools.NewInvoker(user, reporter, deps.Tools),
		}

		if err := deps.Engine.ProcessTurn(ctx, turn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "turn failed")
			logger.Error("turn processing failed", "user", user, "error", err)
			return
		}
	}
}

func newStreamWriter(w http.ResponseWriter, deps AgentDeps) (StreamWriter, error) {
	if deps.Config.Chat.Mode == config.ChatModeCopilot {
		return NewCopilotSSEWriter(w, deps.Agent.Model())
	}
	return NewLocalSSEWriter(w)
}

// HandleHealth serves GET /health.
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}
