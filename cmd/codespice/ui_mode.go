package main

import (
	"fmt"
	"os"
	"strings"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

var uiModes = map[string]uiMode{"": uiModeAuto, "auto": uiModeAuto, "on": uiModeOn, "off": uiModeOff}

func readUIMode(value string) (uiMode, error) {
	if mode, ok := uiModes[strings.ToLower(strings.TrimSpace(value))]; ok {
		return mode, nil
	}
	return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// shouldUseTUI decides whether the progress view runs. The view draws on
// stderr so that stdout stays parseable; auto also requires a
// human-oriented format.
func shouldUseTUI(mode uiMode, machineOutput bool) bool {
	if mode == uiModeAuto {
		return !machineOutput && isTerminal(os.Stderr)
	}
	return mode == uiModeOn
}
