package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codespice/internal/project"
)

// resolveConfig loads the --config file or the config nearest to the first
// target. A broken config is reported and the defaults are used.
func resolveConfig(cmd *cobra.Command, targets []string) (*project.Loaded, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}

	startDir := "."
	if len(targets) > 0 && targets[0] != "-" {
		startDir = targets[0]
		if st, statErr := os.Stat(startDir); statErr == nil && !st.IsDir() {
			startDir = filepath.Dir(startDir)
		}
	}

	loaded, err := project.Resolve(explicit, startDir)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v; using default settings\n", err)
	}
	for _, w := range loaded.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", loaded.Path, w)
	}
	return loaded, nil
}
