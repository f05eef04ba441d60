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
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGithubRawBaseURL is the raw content CDN for public GitHub
// repositories.
const DefaultGithubRawBaseURL = "https://raw.githubusercontent.com"

// GithubContentClient fetches raw file content from GitHub, used to
// pull checked-in swagger documents.
type GithubContentClient struct {
	baseURL string
	client  *http.Client
}

// NewGithubContentClient returns a client against baseURL, defaulting
// to the public raw CDN when empty.
func NewGithubContentClient(baseURL string, timeout time.Duration) *GithubContentClient {
	if baseURL == "" {
		baseURL = DefaultGithubRawBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &GithubContentClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetRawContent fetches owner/repo/branch/path and returns the file
// body. Non-200 responses are errors; the status is included so the
// model can relay it.
func (c *GithubContentClient) GetRawContent(ctx context.Context, owner, repo, branch, path string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.baseURL, owner, repo, branch, strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("tools: building github request: %w", err)
	}
	req.Header.Set("User-Agent", "argus-agent")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tools: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tools: github returned %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tools: reading github response: %w", err)
	}
	return string(body), nil
}
