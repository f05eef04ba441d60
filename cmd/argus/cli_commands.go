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
	"github.com/spf13/cobra"
)

var (
	serverURL string
	userKey   string

	rootCmd = &cobra.Command{
		Use:   "argus",
		Short: "A CLI for the Argus API testing agent",
		Long: `Argus is a conversational agent that walks you through discovering,
selecting and invoking REST APIs. This CLI talks to a running agent service.`,
	}

	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session with the agent",
		Long: `Opens an interactive loop. Each message you type is sent to the agent
along with the full conversation so far, and the streamed replies are printed
as they arrive. Type 'exit' or press Ctrl-D to quit.`,
		Run: runChatCommand,
	}

	promptCmd = &cobra.Command{
		Use:   "prompt",
		Short: "Inspect and override the agent's prompts",
	}
	promptListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the registered prompt keys",
		Run:   runPromptList,
	}
	promptGetCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Print the active text of a prompt",
		Args:  cobra.ExactArgs(1),
		Run:   runPromptGet,
	}
	promptSetCmd = &cobra.Command{
		Use:   "set [key] [file]",
		Short: "Override a prompt with the contents of a file",
		Long: `Replaces the prompt's text for subsequent turns. The override lives in
the server's memory only; restarting the service restores the default.`,
		Args: cobra.ExactArgs(2),
		Run:  runPromptSet,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:5049", "Base URL of the agent service")
	rootCmd.PersistentFlags().StringVar(&userKey, "user",
		"", "User key sent as the identity header (server default when empty)")

	promptCmd.AddCommand(promptListCmd, promptGetCmd, promptSetCmd)
	rootCmd.AddCommand(chatCmd, promptCmd)
}
