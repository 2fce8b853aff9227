package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/engine"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List rule tags, their merge policy and diagnostic codes",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	return cmd
}

type ruleCode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ruleEntry struct {
	Tag    string     `json:"tag"`
	Policy string     `json:"policy"`
	Codes  []ruleCode `json:"codes"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	loaded, err := resolveConfig(cmd, nil)
	if err != nil {
		return err
	}
	entries := collectRules(loaded.Config)

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "pretty":
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		renderRulesPretty(cmd.OutOrStdout(), entries, colored)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

// collectRules groups the codes by tag; the policy reflects cfg, so
// engine.unifiedReplace shows up as "replace" everywhere.
func collectRules(cfg config.Config) []ruleEntry {
	byTag := make(map[diag.Tag][]ruleCode)
	for _, c := range diag.Codes() {
		byTag[c.Tag()] = append(byTag[c.Tag()], ruleCode{ID: c.ID(), Title: c.Title()})
	}
	tags := diag.Tags()
	out := make([]ruleEntry, 0, len(tags))
	for _, tag := range tags {
		out = append(out, ruleEntry{
			Tag:    tag.String(),
			Policy: engine.PolicyFor(tag, cfg).String(),
			Codes:  byTag[tag],
		})
	}
	return out
}

func renderRulesPretty(w io.Writer, entries []ruleEntry, colored bool) {
	tagColor := color.New(color.FgCyan, color.Bold)
	codeColor := color.New(color.FgYellow)
	if !colored {
		tagColor.DisableColor()
		codeColor.DisableColor()
	}
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s)\n", tagColor.Sprint(e.Tag), e.Policy)
		for _, c := range e.Codes {
			fmt.Fprintf(w, "  %s  %s\n", codeColor.Sprint(c.ID), c.Title)
		}
	}
}
