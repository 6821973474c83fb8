// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/pkg/reference"
)

// loadLibrary loads the bundled reference data the CLI searches offline.
// The server can carry override files; the CLI always uses what shipped
// with the binary.
func loadLibrary() *reference.Library {
	lib, err := reference.Load()
	if err != nil {
		log.Fatalf("Failed to load the bundled reference data: %v", err)
	}
	return lib
}

func queryArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func runReferenceNotation(cmd *cobra.Command, args []string) {
	lib := loadLibrary()
	entries := lib.SearchNotation(queryArg(args), refCategory)

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "reference notation",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       entries,
		})
		return
	}

	if len(entries) == 0 {
		fmt.Println("No notation entries found.")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", styled(styles.Math, e.Symbol), styled(styles.Title, e.Spoken))
		fmt.Printf("  %s\n", e.Meaning)
		if e.Example != "" {
			fmt.Printf("  %s %s\n", styled(styles.Muted, "example:"), e.Example)
		}
		fmt.Printf("  %s %s  %s %s\n\n",
			styled(styles.Muted, "id:"), e.ID,
			styled(styles.Muted, "category:"), e.Category)
	}
}

func runReferenceVocabulary(cmd *cobra.Command, args []string) {
	lib := loadLibrary()
	terms := lib.SearchVocabulary(queryArg(args), refCategory)

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "reference vocabulary",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       terms,
		})
		return
	}

	if len(terms) == 0 {
		fmt.Println("No vocabulary terms found.")
		return
	}
	for _, t := range terms {
		fmt.Printf("%s\n", styled(styles.Title, t.Term))
		fmt.Printf("  %s\n", t.Definition)
		if t.Example != "" {
			fmt.Printf("  %s %s\n", styled(styles.Muted, "example:"), t.Example)
		}
		fmt.Println()
	}
}

func runReferenceCategories(cmd *cobra.Command, args []string) {
	lib := loadLibrary()
	categories := lib.Categories()

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "reference categories",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       categories,
		})
		return
	}

	for _, c := range categories {
		fmt.Fprintln(os.Stdout, c)
	}
}
