package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"codespice/internal/version"
)

// errFindings makes the process exit with status 1 without printing anything:
// the findings were already rendered.
var errFindings = errors.New("diagnostics reported")

// cleanups are run once after the command, in reverse order.
var cleanups []func()

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codespice",
		Short:         "Heuristic code-quality checks for C and C++",
		Long:          `codespice lints C/C++ sources for line budgets, naming, function complexity, macro guards and uninitialized variables`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			traceCleanup, err := setupTracing(cmd)
			if err != nil {
				return err
			}
			cleanups = append(cleanups, traceCleanup)
			profCleanup, err := setupProfiling(cmd)
			if err != nil {
				return err
			}
			cleanups = append(cleanups, profCleanup)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			runCleanups()
		},
	}

	// Глобальные флаги
	root.PersistentFlags().String("config", "", "path to a codespice.toml/.codespice.json/.codespice.yaml file")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("no-color", false, "disable colored output (same as --color=off)")
	root.PersistentFlags().Bool("timings", false, "show per-rule timing information")
	root.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show (0 = unlimited)")

	root.PersistentFlags().String("trace", "", "write trace events to a file (\"-\" for stderr)")
	root.PersistentFlags().String("trace-level", "off", "trace level (off|phase|detail)")
	root.PersistentFlags().String("trace-format", "auto", "trace output format (auto|text|ndjson)")

	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	root.AddCommand(newDiagCmd())
	root.AddCommand(newFixCmd())
	root.AddCommand(newLSPCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newRulesCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// main runs the root command. Findings exit with status 1; any other error
// is printed to stderr first.
func main() {
	err := rootCmd.Execute()
	// PostRun не вызывается при ошибке RunE
	runCleanups()
	if err == nil {
		return
	}
	if !errors.Is(err, errFindings) {
		fmt.Fprintf(os.Stderr, "codespice: %v\n", err)
	}
	os.Exit(1)
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves --color and --no-color for output written to f.
func useColor(cmd *cobra.Command, f *os.File) (bool, error) {
	noColor, err := cmd.Root().PersistentFlags().GetBool("no-color")
	if err != nil {
		return false, fmt.Errorf("failed to get no-color flag: %w", err)
	}
	if noColor {
		return false, nil
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch colorFlag {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		return isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
}
