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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/query"
	"github.com/thediveo/ssrserve/router"
)

// SnapshotGlobal is the name of the global (window) variable the bootstrap
// script assigns the dehydrated query cache snapshot to.
const SnapshotGlobal = "__QUERY_STATE__"

// RootSelector selects the shell element that receives the rendered page
// markup.
const RootSelector = "#root"

// DefaultPrefetchTimeout bounds the prefetching of a page's data, unless
// specified otherwise using WithPrefetchTimeout.
const DefaultPrefetchTimeout = 15 * time.Second

// Renderer renders pages on the server, injecting their markup as well as the
// snapshot of the prefetched data into the HTML shell.
type Renderer struct {
	router          *router.Router
	tmpl            *Template
	log             *slog.Logger
	prefetchTimeout time.Duration
}

// RendererOption sets optional properties at the time of creating a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the logger for reporting render failures.
func WithLogger(log *slog.Logger) RendererOption {
	return func(r *Renderer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithPrefetchTimeout bounds how long a render waits for the page's data to
// be prefetched; zero or negative durations wait indefinitely.
func WithPrefetchTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) {
		r.prefetchTimeout = d
	}
}

// NewRenderer returns a new Renderer selecting pages using the specified router
// and injecting them into the specified shell template.
func NewRenderer(rt *router.Router, tmpl *Template, opts ...RendererOption) *Renderer {
	r := &Renderer{
		router:          rt,
		tmpl:            tmpl,
		log:             logging.Discard(),
		prefetchTimeout: DefaultPrefetchTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Template returns the shell template used.
func (r *Renderer) Template() *Template { return r.tmpl }

// Render returns the HTML document for the request's path. If base is
// non-empty and the shell contains a base element, its href gets set to base.
//
// Failing to prefetch or render the page isn't an error: the failure gets
// logged and the shell is returned without the page markup and data snapshot,
// so the client renders the page on its own. Only failing to load the shell is
// an error.
func (r *Renderer) Render(req *http.Request, base string) (string, error) {
	ctx := req.Context()
	shell, err := r.tmpl.Get(ctx)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(shell))
	if err != nil {
		return "", fmt.Errorf("malformed shell template: %w", err)
	}
	if base != "" {
		doc.Find("head base").SetAttr("href", base)
	}

	route := r.router.Match(req.URL.Path)
	log := r.log.With(
		slog.String("render", uuid.NewString()),
		slog.String("path", req.URL.Path),
		slog.String("page", route.Page.Name()))
	start := time.Now()
	if err := r.populate(ctx, doc, route, req); err != nil {
		log.Error("rendering failed, serving unpopulated shell", slog.String("error", err.Error()))
	} else {
		log.Debug("rendered", slog.Duration("duration", time.Since(start)))
	}
	return doc.Html()
}

// populate prefetches the page's data, renders the page and injects its markup
// together with the bootstrap script into the document. Either both get
// injected or the document stays as it is.
func (r *Renderer) populate(ctx context.Context, doc *goquery.Document, route router.Route, req *http.Request) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %s panicked: %v", route.Page.Name(), p)
		}
	}()
	root := doc.Find(RootSelector)
	if root.Length() == 0 {
		return errors.New("shell template lacks " + RootSelector + " element")
	}

	cache := query.NewCache()
	if route.Prefetch != nil {
		pctx := ctx
		if r.prefetchTimeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, r.prefetchTimeout)
			defer cancel()
		}
		if err := route.Prefetch(pctx, cache, req); err != nil {
			return err
		}
	}
	var markup strings.Builder
	if err := route.Page.Render(&markup, cache); err != nil {
		return fmt.Errorf("page %s: %w", route.Page.Name(), err)
	}
	snap, err := cache.Dehydrate()
	if err != nil {
		return err
	}
	script, err := BootstrapScript(snap)
	if err != nil {
		return err
	}

	doc.Find("head").AppendHtml(script)
	root.First().SetHtml(markup.String())
	return nil
}

// BootstrapScript returns the script element assigning the snapshot to the
// SnapshotGlobal window variable. The JSON encoding escapes "<", ">", and "&",
// so the snapshot cannot terminate the script element early.
func BootstrapScript(snap query.Snapshot) (string, error) {
	j, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("cannot serialize query snapshot: %w", err)
	}
	return "<script>window." + SnapshotGlobal + "=" + string(j) + ";</script>", nil
}
