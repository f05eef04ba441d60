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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func promptHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func runPromptList(cmd *cobra.Command, args []string) {
	body, err := promptAPI(http.MethodGet, "/v1/prompts", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var resp struct {
		Prompts []string `json:"prompts"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: malformed response: %v\n", err)
		os.Exit(1)
	}
	for _, key := range resp.Prompts {
		fmt.Println(key)
	}
}

func runPromptGet(cmd *cobra.Command, args []string) {
	body, err := promptAPI(http.MethodGet, "/v1/prompts/"+args[0], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var resp struct {
		Key  string `json:"key"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Fprintf(os.Stderr, "error: malformed response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(resp.Text)
}

func runPromptSet(cmd *cobra.Command, args []string) {
	text, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read %s: %v\n", args[1], err)
		os.Exit(1)
	}
	payload, _ := json.Marshal(map[string]string{"text": string(text)})
	if _, err := promptAPI(http.MethodPut, "/v1/prompts/"+args[0], payload); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("prompt %s updated\n", args[0])
}

func promptAPI(method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := promptHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
