package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codespice/internal/project"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default codespice.toml",
		Long: `Write codespice.toml with every rule set to its default value.
If [dir] is omitted, the current directory is used; a missing directory is created.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

// runInit refuses to overwrite an existing codespice.toml.
func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) == 1 {
		target = args[0]
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", target, err)
	}

	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	cfgPath := filepath.Join(target, project.ConfigNames[0])
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("already initialized: %s exists", cfgPath)
	}
	// #nosec G306 -- config is meant to be shared with the team
	if err := os.WriteFile(cfgPath, []byte(project.DefaultTOML()), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfgPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", cfgPath)
	return nil
}
