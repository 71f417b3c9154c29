package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/monica-chat/monica/internal/export"
	"github.com/monica-chat/monica/internal/provider"
	"github.com/monica-chat/monica/internal/remote"
)

var (
	exportFormat string
	exportOut    string
	backupOut    string
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "text", "Export format: text or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	backupCmd.Flags().StringVarP(&backupOut, "out", "o", "", "Output file (default monica-backup-<ts>.json)")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(context.Background())
		if err != nil {
			return err
		}
		for _, sess := range app.engine.Sessions() {
			title := runewidth.Truncate(sess.Title, sessionTitleWidth, "...")
			fmt.Printf("%s  %s  (%d messages)\n", sess.ID, title, len(sess.History))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a session as text or JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := loadApp(ctx)
		if err != nil {
			return err
		}

		sess := app.sessions.Current()
		if len(args) == 1 {
			if err := app.sessions.SwitchTo(ctx, args[0]); err != nil {
				return err
			}
			sess = app.sessions.Current()
		}
		if sess == nil {
			return fmt.Errorf("no session to export")
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		switch exportFormat {
		case "text":
			return export.WriteText(out, sess.History)
		case "json":
			return export.WriteJSON(out, sess, time.Now())
		default:
			return fmt.Errorf("unknown format %q (want text or json)", exportFormat)
		}
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a full backup: all sessions, settings, and the API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		app, err := loadApp(ctx)
		if err != nil {
			return err
		}

		stored, err := provider.FormatStoredKey(app.profile)
		if err != nil || app.profile.APIKey == "" {
			stored = ""
		}
		snap := export.NewSnapshot(app.engine.Sessions(), app.settings, stored, time.Now())

		path := backupOut
		if path == "" {
			path = fmt.Sprintf("monica-backup-%d.json", time.Now().UnixMilli())
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if err := export.WriteSnapshot(f, snap); err != nil {
			return err
		}
		fmt.Println("Backup written to " + path)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore sessions, settings, and the API key from a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		snap, err := export.ReadSnapshot(f)
		if err != nil {
			return err
		}

		store, err := remote.NewFileStore()
		if err != nil {
			return err
		}
		userID := os.Getenv("MONICA_USER")
		if userID == "" {
			userID = "local"
		}

		for id, rec := range snap.AllSessions {
			err := store.Set(ctx, userID, id, remote.Record{
				Title:     rec.Title,
				History:   rec.History,
				UpdatedAt: snap.ExportDate,
			})
			if err != nil {
				return fmt.Errorf("restore session %s: %w", id, err)
			}
		}
		if snap.APIKey != "" {
			if err := store.StoreAPIKey(ctx, userID, snap.APIKey); err != nil {
				return err
			}
		}
		if snap.UserSettings != nil {
			raw, err := json.Marshal(snap.UserSettings)
			if err == nil {
				if err := store.SaveSettings(ctx, userID, raw); err != nil {
					return err
				}
			}
		}

		fmt.Printf("Restored %d sessions.\n", len(snap.AllSessions))
		return nil
	},
}
