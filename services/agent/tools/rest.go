// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools implements the tool surface the model can call during
// tool-enabled phases: swagger discovery, ad-hoc REST invocation, whole
// plan execution, and a thinking channel. Tools are dispatched through
// the Invoker, which carries the per-turn identity and reporting hooks.
package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RestResponse is the wire result of an HTTP invocation, shaped for the
// model: status code plus raw body.
type RestResponse struct {
	HTTPStatusCode int    `json:"httpStatusCode"`
	Content        string `json:"content"`
}

// RestClient performs HTTP requests on behalf of tools. Implementations
// must be safe for concurrent use.
type RestClient interface {
	Invoke(ctx context.Context, method, url string, headers map[string]string, body string) (*RestResponse, error)
}

// HTTPRestClient is the production RestClient over net/http.
type HTTPRestClient struct {
	client *http.Client
}

var _ RestClient = (*HTTPRestClient)(nil)

// NewHTTPRestClient returns a client with the given timeout; zero means
// 30 seconds.
func NewHTTPRestClient(timeout time.Duration) *HTTPRestClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRestClient{client: &http.Client{Timeout: timeout}}
}

// Invoke implements RestClient. Non-2xx responses are not errors; the
// caller inspects the status code. Bodies are sent as JSON when
// non-empty.
func (c *HTTPRestClient) Invoke(ctx context.Context, method, url string, headers map[string]string, body string) (*RestResponse, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return nil, fmt.Errorf("tools: building request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tools: invoking %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tools: reading response body: %w", err)
	}
	return &RestResponse{
		HTTPStatusCode: resp.StatusCode,
		Content:        string(content),
	}, nil
}
