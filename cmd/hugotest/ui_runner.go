package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hugotest/internal/config"
	"hugotest/internal/suite"
	"hugotest/internal/ui"
)

type pipelineOutcome struct {
	result *pipelineResult
	err    error
}

func runPipelineWithUI(ctx context.Context, cfg *config.Config, fixtures []string) (*pipelineResult, error) {
	events := make(chan suite.Event, 256)
	outcomeCh := make(chan pipelineOutcome, 1)

	go func() {
		res, err := runPipeline(ctx, cfg, fixtures, suite.ChannelSink{Ch: events})
		outcomeCh <- pipelineOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("hugotest", cfg.ContentDir(), fixtures, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit first; keep the producer from blocking
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
