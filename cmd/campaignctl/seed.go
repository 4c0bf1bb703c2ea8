package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/unclebandit/dialer-backend/internal/config"
	"github.com/unclebandit/dialer-backend/internal/db"
)

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Apply the schema and demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		conn, err := db.Open(cmd.Context(), cfg.DSN())
		if err != nil {
			return err
		}
		defer conn.Close()

		for _, file := range seedFiles(seedDir) {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			if _, err := conn.ExecContext(cmd.Context(), string(content)); err != nil {
				return fmt.Errorf("failed to execute %s: %w", file, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded: %s\n", file)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Database seeding completed successfully!")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "seed", "directory holding schema.sql and demo.sql")
}

// seedFiles lists the files to apply, schema first.
func seedFiles(dir string) []string {
	return []string{
		filepath.Join(dir, "schema.sql"),
		filepath.Join(dir, "demo.sql"),
	}
}
