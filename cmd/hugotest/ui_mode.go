package main

import (
	"fmt"
	"os"
	"strings"

	"hugotest/snapshot"
)

// progressView selects the fixture progress view of --ui.
type progressView uint8

const (
	viewAuto progressView = iota
	viewOn
	viewOff
)

// minViewFixtures is the smallest run auto mode draws a progress view for;
// smaller runs finish before the view would render.
const minViewFixtures = 4

func (v progressView) String() string {
	switch v {
	case viewOn:
		return "on"
	case viewOff:
		return "off"
	default:
		return "auto"
	}
}

func parseProgressView(value string) (progressView, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return viewAuto, nil
	case "on":
		return viewOn, nil
	case "off":
		return viewOff, nil
	default:
		return viewAuto, fmt.Errorf("invalid --ui value %q: the fixture progress view is auto, on or off", value)
	}
}

// enabled decides whether a run over fixtures draws the view. Auto mode
// stays off for quiet and CI runs and when stdout is not a terminal.
func (v progressView) enabled(fixtures int, quiet bool) bool {
	switch v {
	case viewOn:
		return true
	case viewOff:
		return false
	}
	if quiet || fixtures < minViewFixtures {
		return false
	}
	if _, ci := os.LookupEnv(snapshot.EnvCI); ci {
		return false
	}
	return isTerminal(os.Stdout)
}
