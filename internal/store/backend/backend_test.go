package backend

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/vonshlovens/flownotes/internal/config"
	"github.com/vonshlovens/flownotes/internal/server"
	"github.com/vonshlovens/flownotes/internal/store/filestore"
	"github.com/vonshlovens/flownotes/internal/store/remote"
	"github.com/vonshlovens/flownotes/internal/store/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Store.Path = t.TempDir()

		s, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if _, ok := s.(*filestore.Store); !ok {
			t.Errorf("expected *filestore.Store, got %T", s)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = filepath.Join(t.TempDir(), "notes.db")

		s, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if _, ok := s.(*sqlite.DB); !ok {
			t.Errorf("expected *sqlite.DB, got %T", s)
		}
	})

	t.Run("remote", func(t *testing.T) {
		fs, err := filestore.New(t.TempDir())
		if err != nil {
			t.Fatalf("filestore.New failed: %v", err)
		}
		ts := httptest.NewServer(server.New(fs, time.Second))
		defer ts.Close()

		cfg := config.DefaultConfig()
		cfg.Store.Driver = config.DriverRemote
		cfg.Store.URL = ts.URL

		s, err := Open(ctx, cfg)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		defer s.Close()
		if _, ok := s.(*remote.Client); !ok {
			t.Errorf("expected *remote.Client, got %T", s)
		}
	})

	t.Run("unreachable remote", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Store.Driver = config.DriverRemote
		cfg.Store.URL = "http://127.0.0.1:1"
		if _, err := Open(ctx, cfg); err == nil {
			t.Error("expected an error for an unreachable server")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Store.Driver = "mongo"
		if _, err := Open(ctx, cfg); err == nil {
			t.Error("expected an error for an unknown driver")
		}
	})
}
