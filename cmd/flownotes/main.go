package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vonshlovens/flownotes/internal/config"
	"github.com/vonshlovens/flownotes/internal/foldertree"
	"github.com/vonshlovens/flownotes/internal/session"
	"github.com/vonshlovens/flownotes/internal/store"
	"github.com/vonshlovens/flownotes/internal/store/backend"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "flownotes",
		Short:   "Block-based notes with PDF annotations",
		Long:    `Creates, edits and organises block-based notes and annotated PDF documents in a local or remote note store.`,
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		initCmd(),
		listCmd(),
		newCmd(),
		showCmd(),
		editCmd(),
		rmCmd(),
		exportCmd(),
		importCmd(),
		treeCmd(),
		paletteCmd(),
		serveCmd(),
		migrateCmd(),
		watchCmd(),
		pdfCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env bundles what most commands need: the config and an open store
type env struct {
	cfg   *config.Config
	store store.Store
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &env{cfg: cfg, store: st}, nil
}

// newSession builds an editing session with the configured autosave and folders
func (e *env) newSession() *session.Session {
	folders := make([]foldertree.Folder, len(e.cfg.Folders))
	for i, f := range e.cfg.Folders {
		folders[i] = foldertree.Folder{ID: f.ID, Name: f.Name, ParentID: f.ParentID}
	}
	return session.New(e.store, session.Options{
		AutosaveDelay:    e.cfg.Editor.AutosaveDelay(),
		PreserveBlockIDs: e.cfg.Editor.PreserveBlockIDs,
		Folders:          folders,
	})
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
