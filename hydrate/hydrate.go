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

/*
Package hydrate bootstraps the client side from a server-rendered page.

Bootstrap reads the query cache snapshot the server injected into the page,
seeds a fresh client query cache from it, and then renders the page for the
current path over the existing server-rendered markup. Queries found in the
snapshot are served from the cache; all other queries get loaded in the
background through the server's function endpoints.
*/
package hydrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/thediveo/ssrserve/query"
	"github.com/thediveo/ssrserve/router"
	"github.com/thediveo/ssrserve/ssr"
)

// ErrMismatch is returned when the page rendered on the client doesn't
// structurally match the markup rendered on the server.
var ErrMismatch = errors.New("client markup does not match server markup")

// Session is the client side of a hydrated page.
type Session struct {
	Cache  *query.Cache
	Route  router.Route
	Markup string // markup of the first client render.
}

// Render renders the session's page again, such as after background loads
// have settled.
func (s *Session) Render(w io.Writer) error {
	return s.Route.Page.Render(w, s.Cache)
}

// ExtractSnapshot returns the query cache snapshot assigned by the bootstrap
// script in the specified document. If there is no bootstrap script, it
// returns an empty snapshot.
func ExtractSnapshot(doc *goquery.Document) (query.Snapshot, error) {
	prefix := "window." + ssr.SnapshotGlobal + "="
	snap := query.Snapshot{Queries: []query.DehydratedQuery{}}
	var err error
	doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := strings.TrimSpace(script.Text())
		if !strings.HasPrefix(text, prefix) {
			return true
		}
		j := strings.TrimSuffix(strings.TrimPrefix(text, prefix), ";")
		if uerr := json.Unmarshal([]byte(j), &snap); uerr != nil {
			err = fmt.Errorf("malformed query snapshot: %w", uerr)
		}
		return false
	})
	if err != nil {
		return query.Snapshot{}, err
	}
	return snap, nil
}

// Bootstrap hydrates the server-rendered page read from r, which was rendered
// for path. The client query cache loads missing queries in the background
// using ctx. If the client render doesn't match the server markup, Bootstrap
// returns the session together with ErrMismatch.
func Bootstrap(ctx context.Context, r io.Reader, rt *router.Router, path string, opts ...query.Option) (*Session, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("malformed page: %w", err)
	}
	snap, err := ExtractSnapshot(doc)
	if err != nil {
		return nil, err
	}
	cache := query.NewCache(append([]query.Option{query.WithBackgroundFetch(ctx)}, opts...)...)
	if err := cache.Hydrate(snap); err != nil {
		return nil, err
	}
	route := rt.Match(path)
	var markup strings.Builder
	if err := route.Page.Render(&markup, cache); err != nil {
		return nil, fmt.Errorf("page %s: %w", route.Page.Name(), err)
	}
	session := &Session{Cache: cache, Route: route, Markup: markup.String()}

	root := doc.Find(ssr.RootSelector)
	if root.Length() == 0 {
		return session, fmt.Errorf("%w: page lacks %s element", ErrMismatch, ssr.RootSelector)
	}
	server, err := root.First().Html()
	if err != nil {
		return session, err
	}
	diff, err := markupDiff(server, session.Markup)
	if err != nil {
		return session, err
	}
	if diff != "" {
		return session, fmt.Errorf("%w (-server +client):\n%s", ErrMismatch, diff)
	}
	return session, nil
}

// markupDiff returns an empty string if both HTML fragments have the same
// structure after normalizing them through the HTML parser, and a
// human-readable diff otherwise.
func markupDiff(server, client string) (string, error) {
	ns, err := normalize(server)
	if err != nil {
		return "", err
	}
	nc, err := normalize(client)
	if err != nil {
		return "", err
	}
	return cmp.Diff(ns, nc), nil
}

func normalize(fragment string) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment),
		&html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, n := range nodes {
		if err := html.Render(&sb, n); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
