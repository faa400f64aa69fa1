// Package cli implements the clustermap command-line interface.
//
// Commands load a dataset (a JSON or YAML export, or the MongoDB source
// from the config file), lay it out and either print, render, serve or
// browse the resulting map. Built on cobra, with charmbracelet/log for
// logging and lipgloss/bubbletea for terminal output.
//
// # Commands
//
//   - layout: compute the box layout and write it as JSON
//   - search: list the labels matching a query with their canvas anchors
//   - view: interactive terminal map viewer
//   - serve: HTTP API for a browser renderer
//   - dot: Graphviz DOT of the visible tree
//   - render: SVG, PNG or PDF of the map
//   - state: show or reset persisted viewport and expand state
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Loaded 4 clusters (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
