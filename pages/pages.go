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
Package pages contains the pages of the application: the home page showing the
star count of a repository, and the not-found page for everything else.

The very same pages render on the server as well as on the client. On the
server, the home page's star count has been prefetched into the query cache
before rendering. On the client, the star count comes from the hydrated query
cache or, if missing, gets loaded through the star count function endpoint.
*/
package pages

import (
	"context"
	"embed"
	"html/template"

	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/query"
	"github.com/thediveo/ssrserve/router"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// StarCountQueryName is the logical name of the star count query.
const StarCountQueryName = "ghRepoStarCountQuery"

// HomeRepo identifies the repository whose star count the home page shows.
var HomeRepo = github.Params{UserName: "facebook", RepoName: "react"}

// StarCountSource delivers repository star counts; on the server this is a
// github.Fetcher, on the client the star count function endpoint.
type StarCountSource interface {
	StarCount(ctx context.Context, params github.Params) (github.StarCount, error)
}

// StarCountKey returns the query key for the star count of the specified
// repository.
func StarCountKey(params github.Params) query.Key {
	return query.ComputeKey(StarCountQueryName, params.Map())
}

// StarCountLoader returns a query loader for the star count of the specified
// repository.
func StarCountLoader(source StarCountSource, params github.Params) query.Loader {
	return func(ctx context.Context) (any, error) {
		return source.StarCount(ctx, params)
	}
}

// NewRouter returns the application's router, with the home page at "/" and
// the not-found page everywhere else. The source is used for loading star
// counts.
func NewRouter(source StarCountSource) (*router.Router, error) {
	home := NewHome(source)
	return router.New(
		router.Route{Pattern: "/", Page: home, Prefetch: home.Prefetch},
		router.Route{Pattern: router.Wildcard, Page: NotFound{}},
	)
}
