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

package ssr

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultIndex is the (unrooted) path of the shell HTML file inside the client
// build output.
const DefaultIndex = "client/index.html"

// TemplateSource loads the HTML shell that server-rendered pages get injected
// into.
type TemplateSource interface {
	Load(ctx context.Context) (string, error)
}

// FSSource loads the shell from a file inside an fs.FS.
type FSSource struct {
	FS   fs.FS
	Name string // unrooted, slash-separated path; sanitized anyway.
}

// Load reads the shell file.
func (s FSSource) Load(context.Context) (string, error) {
	b, err := fs.ReadFile(s.FS, path.Clean("/" + s.Name)[1:])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OriginSource loads the shell from the root of a client development server.
type OriginSource struct {
	Origin string
	Client *http.Client // optional, defaults to http.DefaultClient.
}

// Load fetches the shell from the origin.
func (s OriginSource) Load(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(s.Origin, "/")+"/", nil)
	if err != nil {
		return "", err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("shell from %s: %s", s.Origin, resp.Status)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Template is the lazily loaded HTML shell. Once loaded, it is served from
// memory until invalidated. Concurrent first uses might load the shell more
// than once, but all get the same contents.
type Template struct {
	source TemplateSource

	mu         sync.RWMutex
	html       string
	loaded     bool
	generation uint64 // bumped by Invalidate, discarding loads in flight.
}

// NewTemplate returns a Template loading its contents from the specified
// source on first use.
func NewTemplate(source TemplateSource) *Template {
	return &Template{source: source}
}

// Get returns the shell HTML, loading it first if necessary.
func (t *Template) Get(ctx context.Context) (string, error) {
	t.mu.RLock()
	if t.loaded {
		html := t.html
		t.mu.RUnlock()
		return html, nil
	}
	generation := t.generation
	t.mu.RUnlock()

	html, err := t.source.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("cannot load shell template: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	// Only cache what was loaded before any invalidation; this caller still
	// gets its (possibly outdated) contents.
	if t.generation == generation {
		t.html = html
		t.loaded = true
	}
	return html, nil
}

// Invalidate drops the cached shell, so that the next Get loads it again.
func (t *Template) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.html = ""
	t.loaded = false
	t.generation++
}

// Watch invalidates the template whenever the specified shell file gets
// written, created, renamed, or removed, until the context is done. As editors
// and build tools tend to replace files instead of writing them in place, Watch
// watches the directory the file is in.
func (t *Template) Watch(ctx context.Context, filename string, log *slog.Logger) error {
	filename = filepath.Clean(filename)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filename || ev.Op == fsnotify.Chmod {
					continue
				}
				t.Invalidate()
				if log != nil {
					log.Info("shell template changed", slog.String("file", filename), slog.String("op", ev.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if log != nil {
					log.Warn("watching shell template failed", slog.String("file", filename), slog.String("error", err.Error()))
				}
			}
		}
	}()
	return nil
}
