// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings (e.g. notation issues)
	CLIExitError    = 2 // Operation failed
)

// Chalkboard palette used for styled terminal output.
var (
	colorChalk   = lipgloss.Color("#F5F1E8") // Chalk white for titles
	colorSlate   = lipgloss.Color("#4A6670") // Slate for muted text
	colorSuccess = lipgloss.Color("#3FB27F") // Green for confirmations
	colorWarning = lipgloss.Color("#F4D03F") // Amber for notation warnings
	colorError   = lipgloss.Color("#E74C3C") // Red for errors
)

// styles holds the pre-configured lipgloss styles the commands use.
var styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Math    lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorChalk),
	Muted:   lipgloss.NewStyle().Foreground(colorSlate),
	Success: lipgloss.NewStyle().Foreground(colorSuccess),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Math:    lipgloss.NewStyle().Bold(true),
}

// stdoutIsTerminal reports whether stdout is attached to a terminal.
// Styled output and interactive prompts are disabled when it is not.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// styled renders text through a style only when stdout is a terminal,
// so piped output stays plain.
func styled(s lipgloss.Style, text string) string {
	if !stdoutIsTerminal() {
		return text
	}
	return s.Render(text)
}

// CommandResult wraps JSON command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OutputJSON writes structured data as indented JSON to stdout.
func OutputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// OutputError writes an error in the active output format and returns
// the exit code the caller should use.
func OutputError(jsonMode bool, command, msg string, err error) int {
	if jsonMode {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    command,
			Timestamp:  time.Now(),
			Success:    false,
			Error:      fmt.Sprintf("%s: %v", msg, err),
		}
		OutputJSON(result)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", styled(styles.Error, "error:"), msg, err)
	}
	return CLIExitError
}
