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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/argusai/argus/pkg/ux"
	"github.com/argusai/argus/services/agent/datatypes"
	"github.com/argusai/argus/services/agent/middleware"
)

const sseDataPrefix = "data: "

// chatClient replays the running conversation to the agent service and
// folds the streamed replies back into the history, so the next turn
// carries everything both sides have said.
type chatClient struct {
	baseURL string
	user    string
	client  *http.Client
	history []datatypes.Message
}

func runChatCommand(cmd *cobra.Command, args []string) {
	chat := &chatClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		user:    userKey,
		// Streaming turns can run long when the agent walks swagger
		// definitions or executes a plan.
		client: &http.Client{Timeout: 10 * time.Minute},
	}

	fmt.Println(ux.Styles.Highlight.Render("Argus agent chat.") +
		ux.Styles.Muted.Render(" Type your message, or 'exit' to quit."))
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(ux.Styles.Prompt.Render("> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		if err := chat.sendTurn(cmd.Context(), line); err != nil {
			ux.PrintError("%v", err)
		}
	}
}

func (c *chatClient) sendTurn(ctx context.Context, userMessage string) error {
	c.history = append(c.history, datatypes.Message{
		Role:    datatypes.RoleUser,
		Content: userMessage,
	})

	payload, err := json.Marshal(datatypes.ChatRequest{Messages: c.history})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/nextEvent", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.user != "" {
		req.Header.Set(middleware.UserHeader, c.user)
	}

	spinner := ux.NewSpinner("thinking")
	spinner.Start()
	defer spinner.Stop()

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.consumeStream(resp.Body, spinner)
}

// consumeStream prints each streamed assistant message and records it in
// the history. Both stream shapes are handled: the chat.completion.chunk
// frames of copilot mode and the bare message frames of local mode.
func (c *chatClient) consumeStream(body io.Reader, spinner *ux.Spinner) error {
	reader := bufio.NewReader(body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := strings.TrimPrefix(line, sseDataPrefix)
		if data == "[DONE]" {
			return nil
		}

		content, ok := decodeStreamFrame(data)
		if !ok || content == "" {
			continue
		}
		spinner.Stop()
		fmt.Println(ux.Styles.Assistant.Render(content))
		c.history = append(c.history, datatypes.Message{
			Role:    datatypes.RoleAssistant,
			Content: content,
		})
	}
}

func decodeStreamFrame(data string) (string, bool) {
	var chunk datatypes.ChatChunk
	if err := json.Unmarshal([]byte(data), &chunk); err == nil && len(chunk.Choices) > 0 {
		return chunk.Choices[0].Delta.Content, true
	}
	var local datatypes.LocalChunk
	if err := json.Unmarshal([]byte(data), &local); err == nil && local.Message != "" {
		return local.Message, true
	}
	return "", false
}
