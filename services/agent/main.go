// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/argusai/argus/pkg/logging"
	"github.com/argusai/argus/services/agent/agent"
	"github.com/argusai/argus/services/agent/config"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/handlers"
	"github.com/argusai/argus/services/agent/middleware"
	"github.com/argusai/argus/services/agent/observability"
	"github.com/argusai/argus/services/agent/prompts"
	"github.com/argusai/argus/services/agent/routes"
	"github.com/argusai/argus/services/agent/statemachine"
	"github.com/argusai/argus/services/agent/tools"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		// Tracing is opt-in; without a collector the service runs untraced.
		return func(context.Context) {}, nil
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("agent-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	_ = godotenv.Load()

	logger, closeLogs, err := logging.New(logging.Config{
		Service: "agent",
		LogDir:  os.Getenv("ARGUS_LOG_DIR"),
	})
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer closeLogs()
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("ARGUS_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	metrics := observability.InitMetrics()

	registry, err := prompts.NewRegistry(cfg.Prompts.Dir, logger)
	if err != nil {
		log.Fatalf("failed to initialize the prompt registry: %v", err)
	}
	defer registry.Close()

	llmAgent, err := agent.NewOpenAIAgent(agent.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
	}, metrics, logger)
	if err != nil {
		log.Fatalf("failed to initialize the LLM agent: %v", err)
	}

	sessions := statemachine.NewStore()
	operations := datatypes.NewOperationStore()
	factory := statemachine.NewFactory(statemachine.Deps{
		Agent:      llmAgent,
		Prompts:    registry,
		Operations: operations,
		Metrics:    metrics,
		Logger:     logger,
	})
	engine := statemachine.NewEngine(sessions, factory, registry, metrics, logger)

	toolTimeout := time.Duration(cfg.Tools.RequestTimeoutSeconds) * time.Second
	agentDeps := handlers.AgentDeps{
		Engine: engine,
		Agent:  llmAgent,
		Tools: tools.InvokerDeps{
			Sessions:   sessions,
			Operations: operations,
			Rest:       tools.NewHTTPRestClient(toolTimeout),
			Github:     tools.NewGithubContentClient(cfg.Tools.GithubRawBaseURL, toolTimeout),
			Metrics:    metrics,
			Logger:     logger,
		},
		Config:  cfg,
		Metrics: metrics,
		Logger:  logger,
	}
	promptDeps := handlers.PromptDeps{
		Registry:      registry,
		AllowOverride: cfg.Features.AllowPromptOverride,
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("agent-service"))
	if cfg.Chat.AllowedOrigin != "" {
		router.Use(corsMiddleware(cfg.Chat.AllowedOrigin))
	}

	routes.SetupRoutes(router, agentDeps, promptDeps)

	slog.Info("starting the agent server", "port", cfg.Server.Port, "mode", cfg.Chat.Mode)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+middleware.UserHeader)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
