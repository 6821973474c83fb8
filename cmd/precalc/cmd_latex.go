// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/latex"
)

// readLatexInput resolves the text to clean: an explicit argument wins,
// then --file, then stdin.
func readLatexInput(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if latexInputFile != "" {
		data, err := os.ReadFile(latexInputFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", latexInputFile, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func runLatexClean(cmd *cobra.Command, args []string) {
	input, err := readLatexInput(args)
	if err != nil {
		os.Exit(OutputError(jsonOutput, "latex clean", "no input", err))
	}

	result := latex.Clean(input)

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "latex clean",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       result,
		})
	} else {
		fmt.Println(result.Text)
		for _, issue := range result.Issues {
			style := styles.Warning
			if issue.Severity == latex.SeverityError {
				style = styles.Error
			}
			line := fmt.Sprintf("%s: %s", issue.Code, issue.Message)
			if issue.Snippet != "" {
				line += fmt.Sprintf(" (near %q)", issue.Snippet)
			}
			fmt.Fprintln(os.Stderr, styled(style, line))
		}
	}

	if latexHasErrors(result) {
		os.Exit(CLIExitFindings)
	}
}

func latexHasErrors(result latex.Result) bool {
	for _, issue := range result.Issues {
		if issue.Severity == latex.SeverityError {
			return true
		}
	}
	return false
}
