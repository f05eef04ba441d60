// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/base64"
	"sync"
)

// SwaggerOperation is one REST operation extracted from a swagger
// document. Content holds the request body schema, base64-encoded, when
// the operation defines one.
type SwaggerOperation struct {
	HTTPMethod string `json:"httpMethod"`
	URL        string `json:"url"`
	APIVersion string `json:"apiVersion,omitempty"`
	Content    string `json:"content,omitempty"`
}

// OperationStore holds discovered REST operations per user. Discovery
// tools overwrite a user's entry wholesale on each successful parse;
// later phases read it back when rendering command catalogs. Entries
// for different users never interact.
type OperationStore struct {
	mu  sync.RWMutex
	ops map[string][]SwaggerOperation
}

// NewOperationStore returns an empty store.
func NewOperationStore() *OperationStore {
	return &OperationStore{ops: make(map[string][]SwaggerOperation)}
}

// Put replaces the stored operations for user.
func (s *OperationStore) Put(user string, ops []SwaggerOperation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[user] = ops
}

// Get returns the stored operations for user, or nil when discovery has
// not run yet. The returned slice must not be mutated.
func (s *OperationStore) Get(user string) []SwaggerOperation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops[user]
}

// DecodeOperationContent reverses the base64 encoding on an operation's
// body schema, returning the schema JSON. Content that does not decode
// is returned as-is so display paths never fail on it.
func DecodeOperationContent(content string) string {
	if content == "" {
		return ""
	}
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return content
	}
	return string(decoded)
}
