// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/argusai/argus/services/agent/prompts"
)

// PromptDeps carries what the prompt admin endpoints need.
// AllowOverride gates the whole surface, reads included: with the flag
// off, prompt texts are not exposed at all.
type PromptDeps struct {
	Registry      *prompts.Registry
	AllowOverride bool
}

func denyWhenDisabled(deps PromptDeps, c *gin.Context) bool {
	if deps.AllowOverride {
		return false
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "prompt administration is disabled"})
	return true
}

// HandleListPrompts serves GET /prompts.
func HandleListPrompts(deps PromptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if denyWhenDisabled(deps, c) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"prompts": deps.Registry.Keys()})
	}
}

// HandleGetPrompt serves GET /prompts/:key.
func HandleGetPrompt(deps PromptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if denyWhenDisabled(deps, c) {
			return
		}
		key := c.Param("key")
		text, err := deps.Registry.Get(key)
		if err != nil {
			var unknown *prompts.ErrUnknownPrompt
			if errors.As(err, &unknown) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown prompt: " + prompts.NormalizeKey(key)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"key":  prompts.NormalizeKey(key),
			"text": text,
		})
	}
}

type promptOverrideRequest struct {
	Text string `json:"text" binding:"required"`
}

// HandleOverridePrompt serves PUT /prompts/:key. Overrides are held in
// memory only and apply to subsequent turns; the endpoint is disabled
// unless the operator opted in.
func HandleOverridePrompt(deps PromptDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if denyWhenDisabled(deps, c) {
			return
		}

		var req promptOverrideRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body must carry a non-empty text field"})
			return
		}

		key := c.Param("key")
		if err := deps.Registry.Override(key, req.Text); err != nil {
			var unknown *prompts.ErrUnknownPrompt
			if errors.As(err, &unknown) {
				c.JSON(http.StatusNotFound, gin.H{"error": "unknown prompt: " + prompts.NormalizeKey(key)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"key": prompts.NormalizeKey(key), "updated": true})
	}
}
