package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codespice/internal/diagfmt"
	"codespice/internal/driver"
	"codespice/internal/fix"
	"codespice/internal/version"
)

func newDiagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag [flags] [file|directory|-]...",
		Short: "Run code-quality checks on C/C++ files or directories",
		Long: `Run every enabled rule on the given files and on all .c/.cpp/.h/.hpp files
under the given directories. With "-" the source is read from stdin.
The command exits with status 1 when any diagnostic is reported.`,
		RunE: runDiagnose,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	cmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	cmd.Flags().Bool("disk-cache", false, "reuse results of unchanged files across runs")
	cmd.Flags().StringSlice("exclude", nil, "glob of paths to skip (repeatable, doublestar syntax)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	cmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	cmd.Flags().Bool("preview", false, "show the text each fix would insert")
	cmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	cmd.Flags().String("stdin-filename", "stdin.c", "file name used for diagnostics read from stdin")
	return cmd
}

type diagOptions struct {
	format    diagfmt.Format
	ui        uiMode
	withNotes bool
	suggest   bool
	preview   bool
	pathMode  diagfmt.PathMode
	timings   bool
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}

	formatStr, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := diagfmt.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	uiStr, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiStr)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	enableDiskCache, err := cmd.Flags().GetBool("disk-cache")
	if err != nil {
		return fmt.Errorf("failed to get disk-cache flag: %w", err)
	}
	exclude, err := cmd.Flags().GetStringSlice("exclude")
	if err != nil {
		return fmt.Errorf("failed to get exclude flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	preview, err := cmd.Flags().GetBool("preview")
	if err != nil {
		return fmt.Errorf("failed to get preview flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	stdinName, err := cmd.Flags().GetString("stdin-filename")
	if err != nil {
		return fmt.Errorf("failed to get stdin-filename flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}

	dopts := diagOptions{
		format:    format,
		ui:        mode,
		withNotes: withNotes,
		suggest:   suggest || preview,
		preview:   preview,
		pathMode:  diagfmt.PathModeAuto,
		timings:   showTimings,
	}
	if fullPath {
		dopts.pathMode = diagfmt.PathModeAbsolute
	}

	loaded, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	opts := driver.Options{
		Config:         loaded.Config,
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
		Exclude:        exclude,
		Timings:        showTimings,
	}

	var res *driver.Result
	if len(args) == 1 && args[0] == "-" {
		content, readErr := io.ReadAll(cmd.InOrStdin())
		if readErr != nil {
			return fmt.Errorf("failed to read stdin: %w", readErr)
		}
		res, err = driver.DiagnoseSource(cmd.Context(), stdinName, content, opts)
	} else {
		if enableDiskCache {
			cache, cacheErr := driver.OpenDiskCache("codespice")
			if cacheErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: disk cache disabled: %v\n", cacheErr)
			} else {
				opts.Cache = cache
			}
		}
		machineOutput := format == diagfmt.FormatJSON || format == diagfmt.FormatSARIF
		if shouldUseTUI(dopts.ui, machineOutput) {
			res, err = runDiagnoseWithUI(cmd.Context(), "codespice diag", args, opts)
		} else {
			res, err = driver.Diagnose(cmd.Context(), args, opts)
		}
	}
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}

	for _, f := range res.Files {
		if f.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", f.Err)
		}
	}

	color, err := useColor(cmd, os.Stdout)
	if err != nil {
		return err
	}
	if err := renderDiagnostics(cmd, res, dopts, color); err != nil {
		return err
	}

	if dopts.timings {
		if err := driver.WriteTimings(cmd.ErrOrStderr(), res, format == diagfmt.FormatJSON); err != nil {
			return fmt.Errorf("failed to write timings: %w", err)
		}
	}

	if res.Bag.Len() > 0 || res.Errs() != nil {
		return errFindings
	}
	return nil
}

func renderDiagnostics(cmd *cobra.Command, res *driver.Result, opts diagOptions, color bool) error {
	out := cmd.OutOrStdout()
	// идентификаторы нужны, чтобы пользователь мог передать их в `fix --id`
	fix.AssignIDs(res.FileSet, res.Bag.Items())

	switch opts.format {
	case diagfmt.FormatPretty:
		diagfmt.Pretty(out, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:       color,
			Context:     1,
			PathMode:    opts.pathMode,
			ShowNotes:   opts.withNotes,
			ShowFixes:   opts.suggest,
			ShowPreview: opts.preview,
		})
		if res.Bag.Len() > 0 {
			fmt.Fprintf(out, "\n%d diagnostic(s) in %d file(s)\n", res.Bag.Len(), countFiles(res))
		}
		return nil
	case diagfmt.FormatShort:
		return diagfmt.Short(out, res.Bag, res.FileSet, opts.withNotes)
	case diagfmt.FormatJSON:
		return diagfmt.JSON(out, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         opts.pathMode,
			IncludeNotes:     opts.withNotes,
			IncludeFixes:     opts.suggest,
			IncludePreviews:  opts.preview,
		})
	case diagfmt.FormatSARIF:
		return diagfmt.Sarif(out, res.Bag, res.FileSet, diagfmt.SarifRunMeta{
			ToolName:       "codespice",
			ToolVersion:    version.Version,
			InvocationArgs: os.Args,
		})
	default:
		return fmt.Errorf("unknown format: %s", opts.format)
	}
}

func countFiles(res *driver.Result) int {
	seen := make(map[string]struct{})
	for _, d := range res.Bag.Items() {
		if int(d.Primary.File) < res.FileSet.Len() {
			seen[filepath.Clean(res.FileSet.Get(d.Primary.File).Path)] = struct{}{}
		}
	}
	return len(seen)
}
