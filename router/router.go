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
Package router maps request paths to pages, using a static route table that
always ends in a wildcard route. Routes optionally carry the page's server-side
prefetch function, so the server knows what data to put into the query cache
before rendering a page.
*/
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/thediveo/ssrserve/query"
)

// Wildcard is the pattern of the mandatory final route, matching any path.
const Wildcard = "*"

// ErrInvalidTable is returned for malformed route tables.
var ErrInvalidTable = errors.New("invalid route table")

// Page renders its markup, reading any data it needs from the query cache.
type Page interface {
	Name() string
	Render(w io.Writer, c *query.Cache) error
}

// PrefetchFunc populates the query cache with the data a page needs, based on
// the request to render.
type PrefetchFunc func(ctx context.Context, c *query.Cache, r *http.Request) error

// Route maps a path pattern to a page. Patterns are either an exact path or the
// Wildcard.
type Route struct {
	Pattern  string
	Page     Page
	Prefetch PrefetchFunc // optional.
}

// Router selects the page for a request path. A Router is immutable.
type Router struct {
	routes []Route
}

// New returns a Router for the specified routes. Routes are matched in the
// order given, with the first match winning, so the last route must be the
// Wildcard route and no other route is allowed to be a wildcard.
func New(routes ...Route) (*Router, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrInvalidTable)
	}
	seen := map[string]struct{}{}
	table := make([]Route, 0, len(routes))
	for idx, route := range routes {
		if route.Page == nil {
			return nil, fmt.Errorf("%w: route %q without page", ErrInvalidTable, route.Pattern)
		}
		last := idx == len(routes)-1
		switch {
		case route.Pattern == Wildcard && !last:
			return nil, fmt.Errorf("%w: wildcard route must be last", ErrInvalidTable)
		case route.Pattern != Wildcard && last:
			return nil, fmt.Errorf("%w: missing final wildcard route", ErrInvalidTable)
		}
		if route.Pattern != Wildcard {
			route.Pattern = path.Clean("/" + route.Pattern)
		}
		if _, ok := seen[route.Pattern]; ok {
			return nil, fmt.Errorf("%w: duplicate route %q", ErrInvalidTable, route.Pattern)
		}
		seen[route.Pattern] = struct{}{}
		table = append(table, route)
	}
	return &Router{routes: table}, nil
}

// Match returns the route for the specified request path. As the route table
// always ends in a wildcard route, Match always finds a route.
func (r *Router) Match(reqpath string) Route {
	reqpath = path.Clean("/" + reqpath)
	for _, route := range r.routes[:len(r.routes)-1] {
		if route.Pattern == reqpath {
			return route
		}
	}
	return r.routes[len(r.routes)-1]
}

// Routes returns a copy of the route table.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}
