// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/argusai/argus/services/agent/handlers"
	"github.com/argusai/argus/services/agent/middleware"
)

// SetupRoutes wires the agent service's HTTP surface onto the router.
func SetupRoutes(router *gin.Engine, agentDeps handlers.AgentDeps, promptDeps handlers.PromptDeps) {
	router.GET("/health", handlers.HandleHealth())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	identified := router.Group("/", middleware.Identity(agentDeps.Config.Chat.DefaultUser))
	{
		identified.POST("/nextEvent", handlers.HandleNextEvent(agentDeps))
	}

	// Prompt administration routes
	promptAdmin := router.Group("/v1/prompts")
	{
		promptAdmin.GET("", handlers.HandleListPrompts(promptDeps))
		promptAdmin.GET("/:key", handlers.HandleGetPrompt(promptDeps))
		promptAdmin.PUT("/:key", handlers.HandleOverridePrompt(promptDeps))
	}
}
