// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides gin middleware for the agent service.
package middleware

import (
	"github.com/gin-gonic/gin"
)

// UserHeader is the identity header trusted from upstream proxies.
const UserHeader = "X-Argus-User"

// userContextKey is the gin context key the identity is stored under.
const userContextKey = "argus.user"

// Identity resolves the caller's user key. Deployed behind an
// authenticating proxy the key arrives in UserHeader; local development
// runs without one and falls back to defaultUser. Session state,
// discovered operations and plan results are all partitioned by this
// key.
func Identity(defaultUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.GetHeader(UserHeader)
		if user == "" {
			user = defaultUser
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserKey returns the identity resolved by Identity, or the empty
// string when the middleware did not run.
func UserKey(c *gin.Context) string {
	if v, ok := c.Get(userContextKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
