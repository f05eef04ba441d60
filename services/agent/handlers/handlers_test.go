// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/config"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/prompts"
	"github.com/argusai/argus/services/agent/statemachine"
	"github.com/argusai/argus/services/agent/tools"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// cannedAgent answers every completion with the same reply.
type cannedAgent struct {
	reply string
}

func (a *cannedAgent) Complete(_ context.Context, _ []datatypes.Message) (datatypes.Message, error) {
	return datatypes.Message{Role: datatypes.RoleAssistant, Content: a.reply}, nil
}

func (a *cannedAgent) CompleteWithTools(_ context.Context, _ []datatypes.Message, _ agent.Invoker) (datatypes.Message, error) {
	return datatypes.Message{Role: datatypes.RoleAssistant, Content: a.reply}, nil
}

func (a *cannedAgent) Model() string { return "test-model" }

func newAgentDeps(t *testing.T, reply string, cfg config.Config) AgentDeps {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry, err := prompts.NewRegistry("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	llm := &cannedAgent{reply: reply}
	operations := datatypes.NewOperationStore()
	sessions := statemachine.NewStore()
	factory := statemachine.NewFactory(statemachine.Deps{
		Agent:      llm,
		Prompts:    registry,
		Operations: operations,
		Logger:     logger,
	})

	return AgentDeps{
		Engine: statemachine.NewEngine(sessions, factory, registry, nil, logger),
		Agent:  llm,
		Tools: tools.InvokerDeps{
			Sessions:   sessions,
			Operations: operations,
			Rest:       tools.NewHTTPRestClient(0),
			Github:     tools.NewGithubContentClient("", 0),
			Logger:     logger,
		},
		Config: cfg,
		Logger: logger,
	}
}

func newChatRouter(deps AgentDeps) *gin.Engine {
	router := gin.New()
	router.POST("/nextEvent", HandleNextEvent(deps))
	return router
}

func TestHandleNextEvent_StreamsLocalFrames(t *testing.T) {
	deps := newAgentDeps(t,
		`{"detectedDomain":"https://api.example.com","userResponse":"Shall I use this domain?","isConfirmed":false}`,
		config.Default())
	router := newChatRouter(deps)

	body := `{"messages":[{"role":"user","content":"test https://api.example.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/nextEvent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	stream := rec.Body.String()
	assert.Contains(t, stream, `"message":"Shall I use this domain?"`)
	assert.True(t, strings.HasSuffix(stream, "data: [DONE]\n\n"))
}

func TestHandleNextEvent_CopilotModeFramesChunks(t *testing.T) {
	cfg := config.Default()
	cfg.Chat.Mode = config.ChatModeCopilot
	deps := newAgentDeps(t,
		`{"userResponse":"Which service should we test?","isConfirmed":false}`, cfg)
	router := newChatRouter(deps)

	body := `{"messages":[{"role":"user","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/nextEvent", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	stream := rec.Body.String()
	assert.Contains(t, stream, "event: message")
	assert.Contains(t, stream, `"object":"chat.completion.chunk"`)
	assert.Contains(t, stream, `"model":"test-model"`)
}

func TestHandleNextEvent_RejectsMalformedJSON(t *testing.T) {
	deps := newAgentDeps(t, `{}`, config.Default())
	router := newChatRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/nextEvent", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNextEvent_RejectsOversizedHistory(t *testing.T) {
	deps := newAgentDeps(t, `{}`, config.Default())
	router := newChatRouter(deps)

	var sb strings.Builder
	sb.WriteString(`{"messages":[`)
	for i := 0; i < datatypes.MaxChatMessages+1; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"role":"user","content":"x"}`)
	}
	sb.WriteString(`]}`)

	req := httptest.NewRequest(http.MethodPost, "/nextEvent", strings.NewReader(sb.String()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", HandleHealth())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

// ============================================================================
// Prompt Administration
// ============================================================================

func newPromptRouter(t *testing.T, allowOverride bool) (*gin.Engine, *prompts.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := prompts.NewRegistry("", logger)
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })

	deps := PromptDeps{Registry: registry, AllowOverride: allowOverride}
	router := gin.New()
	router.GET("/v1/prompts", HandleListPrompts(deps))
	router.GET("/v1/prompts/:key", HandleGetPrompt(deps))
	router.PUT("/v1/prompts/:key", HandleOverridePrompt(deps))
	return router, registry
}

func TestHandleListPrompts(t *testing.T) {
	router, _ := newPromptRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/prompts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "domainselection")
}

func TestHandleGetPrompt(t *testing.T) {
	router, _ := newPromptRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/prompts/DomainSelection", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key":"domainselection"`)
}

// The flag gates the whole admin surface; with it off, prompt texts are
// not readable either.
func TestPromptAdmin_DisabledBlocksReads(t *testing.T) {
	router, _ := newPromptRouter(t, false)

	for _, target := range []string{"/v1/prompts", "/v1/prompts/DomainSelection"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code, target)
	}
}

func TestHandleGetPrompt_UnknownKeyIs404(t *testing.T) {
	router, _ := newPromptRouter(t, true)

	req := httptest.NewRequest(http.MethodGet, "/v1/prompts/nonsense", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOverridePrompt_DisabledIs403(t *testing.T) {
	router, _ := newPromptRouter(t, false)

	req := httptest.NewRequest(http.MethodPut, "/v1/prompts/DomainSelection",
		strings.NewReader(`{"text":"new text"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleOverridePrompt_AppliesWhenEnabled(t *testing.T) {
	router, registry := newPromptRouter(t, true)

	req := httptest.NewRequest(http.MethodPut, "/v1/prompts/DomainSelection",
		strings.NewReader(`{"text":"replacement prompt text"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	text, err := registry.Get("DomainSelection")
	require.NoError(t, err)
	assert.Equal(t, "replacement prompt text", text)
}

func TestHandleOverridePrompt_EmptyBodyIs400(t *testing.T) {
	router, _ := newPromptRouter(t, true)

	req := httptest.NewRequest(http.MethodPut, "/v1/prompts/DomainSelection",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
