package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"codespice/internal/driver"
	"codespice/internal/ui"
)

type diagnoseOutcome struct {
	result *driver.Result
	err    error
}

// runDiagnoseWithUI runs driver.Diagnose in the background and renders its
// progress events until the run finishes.
func runDiagnoseWithUI(ctx context.Context, title string, paths []string, opts driver.Options) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan diagnoseOutcome, 1)

	go func() {
		runOpts := opts
		runOpts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Diagnose(ctx, paths, runOpts)
		outcomeCh <- diagnoseOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	_, uiErr := program.Run()
	if uiErr != nil {
		// модель больше не читает канал, дочитываем сами
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
