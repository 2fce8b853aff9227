package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"codespice/internal/driver"
	"codespice/internal/fix"
)

func newFixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fix [flags] [file|directory]...",
		Short: "Apply available fixes to C/C++ files",
		Long: `Run the checks, collect the fixes they suggest and apply them.
By default only the first fix is applied; --all applies every always-safe fix.
Fix identifiers are printed by "codespice diag --suggest".`,
		RunE: runFix,
	}
	cmd.Flags().Bool("all", false, "apply all safe fixes")
	cmd.Flags().Bool("once", false, "apply the first available fix (default)")
	cmd.Flags().String("id", "", "apply fix with a specific identifier")
	cmd.Flags().Bool("heuristic", false, "with --all, also apply safe-with-heuristics fixes")
	cmd.Flags().Bool("dry-run", false, "print the resulting files instead of writing them")
	cmd.Flags().StringSlice("exclude", nil, "glob of paths to skip (repeatable, doublestar syntax)")
	return cmd
}

func runFix(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	applyAll, err := cmd.Flags().GetBool("all")
	if err != nil {
		return fmt.Errorf("failed to get all flag: %w", err)
	}
	applyOnce, err := cmd.Flags().GetBool("once")
	if err != nil {
		return fmt.Errorf("failed to get once flag: %w", err)
	}
	targetID, err := cmd.Flags().GetString("id")
	if err != nil {
		return fmt.Errorf("failed to get id flag: %w", err)
	}
	heuristic, err := cmd.Flags().GetBool("heuristic")
	if err != nil {
		return fmt.Errorf("failed to get heuristic flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	exclude, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return fmt.Errorf("failed to get exclude flag: %w", err)
	}

	if targetID != "" && (applyAll || applyOnce) {
		return fmt.Errorf("--id cannot be combined with --all or --once")
	}
	if applyAll && applyOnce {
		return fmt.Errorf("--all and --once are mutually exclusive")
	}
	if heuristic && !applyAll {
		return fmt.Errorf("--heuristic requires --all")
	}

	mode := fix.ApplyModeOnce
	if targetID != "" {
		mode = fix.ApplyModeID
	} else if applyAll {
		mode = fix.ApplyModeAll
	}

	loaded, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	// для исправлений нужен полный список, без лимита
	res, err := driver.Diagnose(cmd.Context(), args, driver.Options{
		Config:  loaded.Config,
		Exclude: exclude,
	})
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}
	if loadErr := res.Errs(); loadErr != nil {
		return loadErr
	}

	items := res.Bag.Items()
	fix.AssignIDs(res.FileSet, items)
	applied, applyErr := fix.Apply(res.FileSet, items, fix.ApplyOptions{
		Mode:      mode,
		TargetID:  targetID,
		Heuristic: heuristic,
		DryRun:    dryRun,
	})
	return handleApplyResult(cmd.OutOrStdout(), applied, applyErr, dryRun)
}

func handleApplyResult(out io.Writer, res *fix.ApplyResult, applyErr error, dryRun bool) error {
	if res == nil {
		return applyErr
	}

	if len(res.Applied) > 0 {
		verb := "Applied"
		if dryRun {
			verb = "Would apply"
		}
		fmt.Fprintf(out, "%s %d fix(es):\n", verb, len(res.Applied))
		for _, item := range res.Applied {
			location := item.PrimaryPath
			if location == "" {
				location = "(unknown location)"
			}
			fmt.Fprintf(out, "  %s [%s] at %s (%d edits, %s)\n",
				item.Title, item.ID, location, item.EditCount, item.Applicability.String())
		}
	}

	if len(res.FileChanges) > 0 {
		if dryRun {
			for _, change := range res.FileChanges {
				fmt.Fprintf(out, "--- %s (%d edits)\n", change.Path, change.EditCount)
				if _, err := out.Write(change.Content); err != nil {
					return err
				}
				if n := len(change.Content); n > 0 && change.Content[n-1] != '\n' {
					fmt.Fprintln(out)
				}
			}
		} else {
			fmt.Fprintln(out, "Updated files:")
			for _, change := range res.FileChanges {
				fmt.Fprintf(out, "  %s (%d edits)\n", change.Path, change.EditCount)
			}
		}
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(out, "Skipped fixes:")
		for _, skip := range res.Skipped {
			id := skip.ID
			if id == "" {
				id = "(unnamed)"
			}
			if skip.Title != "" {
				fmt.Fprintf(out, "  %s [%s]: %s\n", skip.Title, id, skip.Reason)
			} else {
				fmt.Fprintf(out, "  [%s]: %s\n", id, skip.Reason)
			}
		}
	}

	if applyErr != nil {
		if errors.Is(applyErr, fix.ErrNoFixes) {
			fmt.Fprintln(out, "No applicable fixes found.")
			return nil
		}
		return applyErr
	}
	return nil
}
