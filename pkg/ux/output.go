// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the Argus CLI.
package ux

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Argus color palette - amber signal tones on slate
var (
	ColorAmber    = lipgloss.Color("#F5A623") // Primary brand color
	ColorAmberDim = lipgloss.Color("#C4861C") // Secondary elements
	ColorSlate    = lipgloss.Color("#5C6B73") // Muted text
	ColorSuccess  = lipgloss.Color("#3FB68B") // Green for success
	ColorError    = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Prompt    lipgloss.Style
	Assistant lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
}{
	Prompt:    lipgloss.NewStyle().Bold(true).Foreground(ColorAmber),
	Assistant: lipgloss.NewStyle().Foreground(ColorAmberDim),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Bold(true).Foreground(ColorAmber),
}

// PrintError writes a styled error line.
func PrintError(format string, args ...any) {
	fmt.Println(Styles.Error.Render("✗ " + fmt.Sprintf(format, args...)))
}

// PrintMuted writes a dimmed informational line.
func PrintMuted(format string, args ...any) {
	fmt.Println(Styles.Muted.Render(fmt.Sprintf(format, args...)))
}
