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

	"github.com/spf13/cobra"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/cmd/precalc/config"
)

const cliVersion = "0.3.0"

// --- Global Command Variables ---
var (
	jsonOutput bool // Output as JSON for scripting

	serverURLFlag string // CLI override for server.url

	servePort         int
	serveDataDir      string
	serveEphemeral    bool
	serveReferenceDir string

	latexInputFile string

	refCategory string

	sessionsYes      bool   // Skip the delete confirmation prompt
	backupOutputDir  string // Where backup files are written
	backupAll        bool   // Back up every session instead of one
	backupUpload     bool   // Upload the backup to GCS after writing it
	backupBucketName string // CLI override for backup.bucket_name

	rootCmd = &cobra.Command{
		Use:   "precalc",
		Short: "A cli to run and manage the precalc tutoring server",
		Long: `precalc runs the AP Precalculus tutoring server and provides
local tooling for its LaTeX cleaner, notation reference, and
session store.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := config.Load(); err != nil {
				log.Fatalf("Error loading configuration: %v", err)
			}
			if serverURLFlag != "" {
				config.Global.Server.URL = serverURLFlag
			}
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the precalc CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(cliVersion)
		},
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the tutoring server in the foreground",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- LaTeX ---
	latexCmd = &cobra.Command{
		Use:   "latex",
		Short: "Work with tutor LaTeX markup",
	}
	latexCleanCmd = &cobra.Command{
		Use:   "clean [text]",
		Short: "Normalize LaTeX markup from an argument, a file, or stdin",
		Run:   runLatexClean, // Defined in cmd_latex.go
	}

	// --- Reference ---
	referenceCmd = &cobra.Command{
		Use:   "reference",
		Short: "Search the bundled notation and vocabulary reference",
	}
	refNotationCmd = &cobra.Command{
		Use:   "notation [query]",
		Short: "Search notation entries (symbol, spoken form, meaning)",
		Run:   runReferenceNotation, // Defined in cmd_reference.go
	}
	refVocabularyCmd = &cobra.Command{
		Use:   "vocabulary [query]",
		Short: "Search vocabulary terms",
		Run:   runReferenceVocabulary, // Defined in cmd_reference.go
	}
	refCategoriesCmd = &cobra.Command{
		Use:   "categories",
		Short: "List reference categories",
		Run:   runReferenceCategories, // Defined in cmd_reference.go
	}

	// --- Sessions ---
	sessionCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Manage tutoring sessions on a running server",
	}
	listSessionsCmd = &cobra.Command{
		Use:   "list",
		Short: "List all tutoring sessions",
		Run:   runListSessions, // Defined in cmd_sessions.go
	}
	showSessionCmd = &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show a session's metadata and message history",
		Args:  cobra.ExactArgs(1),
		Run:   runShowSession, // Defined in cmd_sessions.go
	}
	deleteSessionCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a session and its message history",
		Args:  cobra.ExactArgs(1),
		Run:   runDeleteSession, // Defined in cmd_sessions.go
	}
	backupSessionsCmd = &cobra.Command{
		Use:   "backup [session_id]",
		Short: "Write session backups to disk, optionally uploading to GCS",
		Run:   runBackupSessions, // Defined in cmd_sessions.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")
	rootCmd.PersistentFlags().StringVar(&serverURLFlag, "server", "",
		"Base URL of the tutoring server (overrides config)")

	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Port to listen on (default from TUTOR_PORT or 8080)")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "",
		"Directory for the session database")
	serveCmd.Flags().BoolVar(&serveEphemeral, "ephemeral", false,
		"Keep sessions in memory only; nothing touches disk")
	serveCmd.Flags().StringVar(&serveReferenceDir, "reference-dir", "",
		"Directory of reference overrides to load and watch")

	rootCmd.AddCommand(latexCmd)
	latexCmd.AddCommand(latexCleanCmd)
	latexCleanCmd.Flags().StringVarP(&latexInputFile, "file", "f", "",
		"Read the text to clean from a file instead of an argument")

	rootCmd.AddCommand(referenceCmd)
	referenceCmd.AddCommand(refNotationCmd)
	referenceCmd.AddCommand(refVocabularyCmd)
	referenceCmd.AddCommand(refCategoriesCmd)
	referenceCmd.PersistentFlags().StringVarP(&refCategory, "category", "c", "",
		"Restrict results to one category")

	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(listSessionsCmd)
	sessionCmd.AddCommand(showSessionCmd)
	sessionCmd.AddCommand(deleteSessionCmd)
	sessionCmd.AddCommand(backupSessionsCmd)
	deleteSessionCmd.Flags().BoolVarP(&sessionsYes, "yes", "y", false,
		"Delete without asking for confirmation")
	backupSessionsCmd.Flags().StringVarP(&backupOutputDir, "out", "o", "",
		"Directory to write backup files to (default from config)")
	backupSessionsCmd.Flags().BoolVar(&backupAll, "all", false,
		"Back up every session on the server")
	backupSessionsCmd.Flags().BoolVar(&backupUpload, "upload", false,
		"Upload the written backups to Google Cloud Storage")
	backupSessionsCmd.Flags().StringVar(&backupBucketName, "bucket", "",
		"GCS bucket to upload to (overrides config)")
}
