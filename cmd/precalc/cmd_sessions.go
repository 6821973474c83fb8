// Copyright (C) 2026 D. Bryan Jones
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dbryanjones-ut/precalc-tutor-sub002/cmd/precalc/config"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/cmd/precalc/gcs"
	"github.com/dbryanjones-ut/precalc-tutor-sub002/services/tutor/datatypes"
)

type sessionListResponse struct {
	Sessions []datatypes.SessionMetadata `json:"sessions"`
	Count    int                         `json:"count"`
}

type sessionHistoryResponse struct {
	SessionID string                   `json:"session_id"`
	Messages  []datatypes.StoredMessage `json:"messages"`
	Count     int                      `json:"count"`
}

// sessionBackup is the on-disk backup format, one file per session.
type sessionBackup struct {
	Metadata   datatypes.SessionMetadata `json:"metadata"`
	Messages   []datatypes.StoredMessage `json:"messages"`
	BackedUpAt time.Time                 `json:"backed_up_at"`
}

func fetchSessions(baseURL string) (sessionListResponse, error) {
	var list sessionListResponse
	resp, err := apiClient().Get(fmt.Sprintf("%s/api/sessions", baseURL))
	if err != nil {
		return list, fmt.Errorf("failed to connect to the tutoring server: %w", err)
	}
	if err := decodeAPIResponse(resp, &list); err != nil {
		return list, err
	}
	return list, nil
}

func fetchSessionBackup(baseURL, sessionID string) (sessionBackup, error) {
	var backup sessionBackup

	resp, err := apiClient().Get(fmt.Sprintf("%s/api/sessions/%s", baseURL, sessionID))
	if err != nil {
		return backup, fmt.Errorf("failed to connect to the tutoring server: %w", err)
	}
	if err := decodeAPIResponse(resp, &backup.Metadata); err != nil {
		return backup, err
	}

	var history sessionHistoryResponse
	resp, err = apiClient().Get(fmt.Sprintf("%s/api/sessions/%s/history", baseURL, sessionID))
	if err != nil {
		return backup, fmt.Errorf("failed to connect to the tutoring server: %w", err)
	}
	if err := decodeAPIResponse(resp, &history); err != nil {
		return backup, err
	}

	backup.Messages = history.Messages
	backup.BackedUpAt = time.Now().UTC()
	return backup, nil
}

func deleteSession(baseURL, sessionID string) error {
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/api/sessions/%s", baseURL, sessionID), nil)
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	resp, err := apiClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to the tutoring server: %w", err)
	}
	return decodeAPIResponse(resp, nil)
}

// writeBackupFile writes one session backup under dir and returns the
// file path.
func writeBackupFile(dir string, backup sessionBackup) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, backup.Metadata.SessionID+".json")
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file %s: %w", path, err)
	}
	return path, nil
}

func runListSessions(cmd *cobra.Command, args []string) {
	list, err := fetchSessions(getServerBaseURL())
	if err != nil {
		os.Exit(OutputError(jsonOutput, "sessions list", "failed to list sessions", err))
	}

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "sessions list",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       list,
		})
		return
	}

	if list.Count == 0 {
		fmt.Println("No sessions found.")
		return
	}
	for _, s := range list.Sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		updated := time.UnixMilli(s.UpdatedAt).Format(time.RFC3339)
		fmt.Printf("%s  %s\n", styled(styles.Title, s.SessionID), title)
		fmt.Printf("  %s %d  %s %s\n",
			styled(styles.Muted, "messages:"), s.MessageCount,
			styled(styles.Muted, "updated:"), updated)
	}
}

func runShowSession(cmd *cobra.Command, args []string) {
	backup, err := fetchSessionBackup(getServerBaseURL(), args[0])
	if err != nil {
		os.Exit(OutputError(jsonOutput, "sessions show", "failed to load session", err))
	}

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "sessions show",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       backup,
		})
		return
	}

	meta := backup.Metadata
	fmt.Printf("%s %s\n", styled(styles.Muted, "session:"), meta.SessionID)
	if meta.Title != "" {
		fmt.Printf("%s %s\n", styled(styles.Muted, "title:"), meta.Title)
	}
	if meta.Topic != "" {
		fmt.Printf("%s %s\n", styled(styles.Muted, "topic:"), meta.Topic)
	}
	fmt.Printf("%s %d\n\n", styled(styles.Muted, "messages:"), meta.MessageCount)

	for _, m := range backup.Messages {
		fmt.Printf("%s %s\n", styled(styles.Title, m.Role+":"), m.Content)
	}
}

func runDeleteSession(cmd *cobra.Command, args []string) {
	sessionID := args[0]

	if !sessionsYes && stdoutIsTerminal() {
		confirmed := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete session %s?", sessionID)).
				Description("The message history is removed permanently.").
				Value(&confirmed),
		))
		if err := form.Run(); err != nil {
			log.Fatalf("Confirmation prompt failed: %v", err)
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return
		}
	}

	if err := deleteSession(getServerBaseURL(), sessionID); err != nil {
		os.Exit(OutputError(jsonOutput, "sessions delete", "failed to delete session", err))
	}
	fmt.Printf("%s deleted session %s\n", styled(styles.Success, "ok:"), sessionID)
}

func runBackupSessions(cmd *cobra.Command, args []string) {
	baseURL := getServerBaseURL()

	outDir := backupOutputDir
	if outDir == "" {
		outDir = config.Global.Backup.Dir
	}
	if outDir == "" {
		outDir = config.DefaultConfig().Backup.Dir
	}

	var ids []string
	switch {
	case backupAll:
		list, err := fetchSessions(baseURL)
		if err != nil {
			os.Exit(OutputError(jsonOutput, "sessions backup", "failed to list sessions", err))
		}
		for _, s := range list.Sessions {
			ids = append(ids, s.SessionID)
		}
	case len(args) == 1:
		ids = []string{args[0]}
	default:
		log.Fatalf("Provide a session id or use --all")
	}

	var written []string
	for _, id := range ids {
		backup, err := fetchSessionBackup(baseURL, id)
		if err != nil {
			os.Exit(OutputError(jsonOutput, "sessions backup", "failed to back up "+id, err))
		}
		path, err := writeBackupFile(outDir, backup)
		if err != nil {
			os.Exit(OutputError(jsonOutput, "sessions backup", "failed to back up "+id, err))
		}
		written = append(written, path)
		if !jsonOutput {
			fmt.Printf("%s wrote %s\n", styled(styles.Success, "ok:"), path)
		}
	}

	if backupUpload {
		if err := uploadBackups(outDir, written); err != nil {
			os.Exit(OutputError(jsonOutput, "sessions backup", "upload failed", err))
		}
	}

	if jsonOutput {
		OutputJSON(CommandResult{
			APIVersion: "1.0",
			Command:    "sessions backup",
			Timestamp:  time.Now(),
			Success:    true,
			Data:       written,
		})
	}
}

// uploadBackups pushes written backup files to the configured GCS
// bucket under a date-stamped prefix.
func uploadBackups(outDir string, written []string) error {
	bucket := backupBucketName
	if bucket == "" {
		bucket = config.Global.Backup.BucketName
	}
	if bucket == "" {
		return fmt.Errorf("no GCS bucket configured; set backup.bucket_name or pass --bucket")
	}

	ctx := context.Background()
	client, err := gcs.NewClient(ctx,
		config.Global.Backup.GCPProjectID,
		bucket,
		config.Global.Backup.ServiceAccountKeyPath,
	)
	if err != nil {
		return err
	}

	prefix := filepath.Join("sessions", time.Now().UTC().Format("2006-01-02"))
	if len(written) == 1 {
		gcsPath := filepath.Join(prefix, filepath.Base(written[0]))
		if err := client.UploadFile(ctx, written[0], gcsPath); err != nil {
			return err
		}
	} else if err := client.UploadDir(ctx, outDir, prefix); err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Printf("%s uploaded %d backup(s) to gs://%s/%s\n",
			styled(styles.Success, "ok:"), len(written), bucket, prefix)
	}
	return nil
}
