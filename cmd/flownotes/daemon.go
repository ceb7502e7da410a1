package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/flownotes/internal/config"
	"github.com/vonshlovens/flownotes/internal/export"
	"github.com/vonshlovens/flownotes/internal/server"
	"github.com/vonshlovens/flownotes/internal/session"
	"github.com/vonshlovens/flownotes/internal/store"
	"github.com/vonshlovens/flownotes/internal/store/filestore"
	"github.com/vonshlovens/flownotes/internal/store/postgres"
	"github.com/vonshlovens/flownotes/internal/watcher"
)

func exportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write notes out as markdown files",
		Long:  `Writes one note as plain markdown, or every note with frontmatter when no id is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if len(args) == 1 {
				n, err := e.store.LoadNote(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to load note: %w", err)
				}
				path, err := export.WriteFile(dir, n)
				if err != nil {
					return err
				}
				fmt.Println(path)
				return nil
			}

			count, err := export.ExportAll(ctx, e.store, dir, os.Stderr)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Printf("Exported %d notes to %s\n", count, dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Create notes from markdown files",
		Long:  `Creates a note for every file under dir matching the configured import patterns.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			imported, err := export.ImportDir(ctx, e.store, args[0], e.cfg.Import.Patterns, os.Stderr)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			for _, m := range imported {
				fmt.Printf("%s\t%s\n", m.ID, m.Title)
			}
			fmt.Printf("Imported %d notes.\n", len(imported))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the note store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			e, err := openEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.New(e.store, e.cfg.Server.RequestTimeout()),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("server listening", "addr", addr, "driver", e.cfg.Store.Driver)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Runs all pending migrations against the postgres store, or prints their status.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Store.Driver != config.DriverPostgres {
				return fmt.Errorf("migrations apply to the postgres driver, store.driver is %q", cfg.Store.Driver)
			}

			database, err := postgres.New(ctx, cfg.Database.ConnectionString(), cfg.Database.Schema)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			if status {
				return database.MigrationStatus(ctx)
			}
			if err := database.RunMigrations(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println("Migrations completed successfully.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [id]",
		Short: "Follow changes other programs make to the file store",
		Long:  `Watches the file store and reloads an open note when it changes on disk, unless it has unsaved edits.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Store.Driver != config.DriverFile {
				return fmt.Errorf("watch needs the file driver, store.driver is %q", cfg.Store.Driver)
			}

			fs, err := filestore.New(cfg.Store.Path)
			if err != nil {
				return err
			}
			e := &env{cfg: cfg, store: fs}
			defer e.Close()

			w, err := watcher.New(fs.NotesDir(), cfg.Watch.DebounceMs, cfg.Watch.IgnorePatterns)
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			w.Attach(fs)
			if err := w.Start(ctx); err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer w.Stop()

			sess := e.newSession()
			defer sess.Close(context.Background())

			if err := sess.Refresh(ctx); err != nil {
				return err
			}
			if len(args) == 1 {
				if err := sess.Select(ctx, args[0]); err != nil {
					return err
				}
			}

			fmt.Println("Watching notes for changes. Press Ctrl+C to stop.")

			for {
				select {
				case <-ctx.Done():
					slog.Info("shutting down...")
					return nil

				case ev, ok := <-w.Events():
					if !ok {
						return nil
					}
					slog.Debug("note event", "note_id", ev.NoteID, "kind", ev.Kind)
					handleNoteEvent(ctx, fs, sess, ev)
				}
			}
		},
	}
}

// handleNoteEvent reloads the open note when it changed and refreshes the list
func handleNoteEvent(ctx context.Context, s store.Store, sess *session.Session, ev watcher.Event) {
	switch ev.Kind {
	case watcher.Changed:
		fmt.Printf("changed  %s\n", ev.NoteID)
		if ev.NoteID == sess.SelectedID() {
			n, err := s.LoadNote(ctx, ev.NoteID)
			if err != nil {
				slog.Error("failed to reload note", "note_id", ev.NoteID, "error", err)
				break
			}
			if sess.ApplyRemote(n) {
				fmt.Printf("reloaded %s\n", n.Title)
			} else {
				fmt.Println("kept local edits")
			}
		}
	case watcher.Removed:
		fmt.Printf("removed  %s\n", ev.NoteID)
	}

	if err := sess.Refresh(ctx); err != nil {
		slog.Error("failed to refresh notes", "error", err)
	}
}
