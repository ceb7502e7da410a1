package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vonshlovens/flownotes/internal/config"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Interactive setup to create config file",
		Long:  `Interactively creates a configuration file for one of the store drivers.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(os.Stdin)
			ask := func(prompt, def string) string {
				if def != "" {
					fmt.Printf("%s [%s]: ", prompt, def)
				} else {
					fmt.Printf("%s: ", prompt)
				}
				line, _ := reader.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "" {
					return def
				}
				return line
			}

			fmt.Println("=== Flownotes Setup ===")
			fmt.Println()

			defaults := config.DefaultConfig()
			driver := ask("Store driver (file, sqlite, postgres, remote)", config.DriverFile)

			store := map[string]any{"driver": driver}
			out := map[string]any{"store": store}

			switch driver {
			case config.DriverFile:
				store["path"] = ask("Notes directory", defaults.Store.Path)
			case config.DriverSQLite:
				store["path"] = ask("Database file", filepath.Join(defaults.Store.Path, "notes.db"))
			case config.DriverRemote:
				store["url"] = ask("Server URL", "http://localhost"+defaults.Server.Addr)
			case config.DriverPostgres:
				fmt.Println("\nDatabase Configuration:")
				port, err := strconv.Atoi(ask("  Port", "5432"))
				if err != nil {
					return fmt.Errorf("invalid port: %w", err)
				}
				db := map[string]any{
					"host":     ask("  Host", "localhost"),
					"port":     port,
					"user":     ask("  User", ""),
					"password": "${DB_PASSWORD}",
					"database": ask("  Database name", ""),
					"schema":   config.SanitizeIdentifier(ask("  Schema name", defaults.Database.Schema)),
					"sslmode":  ask("  SSL mode", defaults.Database.SSLMode),
				}
				if db["database"] == "" {
					return fmt.Errorf("database name is required")
				}
				out["database"] = db
			default:
				return fmt.Errorf("unknown store driver %q", driver)
			}

			out["editor"] = map[string]any{
				"autosave_ms":        defaults.Editor.AutosaveMs,
				"preserve_block_ids": defaults.Editor.PreserveBlockIDs,
			}

			content, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}

			configDir := config.ConfigDir()
			if err := os.MkdirAll(configDir, 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			configPath := filepath.Join(configDir, "config.yaml")

			if err := os.WriteFile(configPath, content, 0600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Printf("\nConfig file written to: %s\n", configPath)
			if driver == config.DriverPostgres {
				fmt.Printf("\nIMPORTANT: Set the DB_PASSWORD environment variable before running commands.\n")
				fmt.Println("To run migrations, run: flownotes migrate")
			}
			fmt.Println("To create a note, run: flownotes new <title>")
			return nil
		},
	}
}
