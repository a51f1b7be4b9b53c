// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the configured slog logger of the server.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures the logger.
type Options struct {
	// Verbose toggles debug level logging when true.
	Verbose bool
	// JSON switches from logfmt-style text to JSON lines.
	JSON bool
	// Writer directs log output; defaults to os.Stderr when nil.
	Writer io.Writer
	// Level, if non-nil, gets set according to Verbose and then controls the
	// logger's level, so that it can be changed later on.
	Level *slog.LevelVar
}

// New constructs a slog.Logger according to the specified options.
func New(opts Options) *slog.Logger {
	var level slog.Leveler = LevelFor(opts.Verbose)
	if opts.Level != nil {
		opts.Level.Set(LevelFor(opts.Verbose))
		level = opts.Level
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(writer, hopts))
	}
	return slog.New(slog.NewTextHandler(writer, hopts))
}

// LevelFor returns the debug level when verbose, otherwise the info level.
func LevelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Discard returns a logger throwing away everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
