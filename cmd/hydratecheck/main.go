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

// hydratecheck fetches a server-rendered page and hydrates it the way the
// client does, reporting whether the client markup matches the server markup
// and which queries the client still needed to load.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/thediveo/ssrserve/hydrate"
	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/pages"
	"github.com/thediveo/ssrserve/query"
)

func main() {
	origin := flag.String("origin", "http://localhost:8888", "server origin")
	path := flag.String("path", "/", "page path to hydrate")
	wait := flag.Duration("wait", 15*time.Second, "maximum time to wait for background loads")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	log := logging.New(logging.Options{Verbose: *verbose})
	if err := check(log, *origin, *path, *wait); err != nil {
		log.Error("hydration check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func check(log *slog.Logger, origin, path string, wait time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	client := &http.Client{Timeout: wait}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(origin, "/")+path, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("page %s: %s", path, resp.Status)
	}

	rt, err := pages.NewRouter(pages.NewStarCountClient(origin, client))
	if err != nil {
		return err
	}
	session, err := hydrate.Bootstrap(ctx, resp.Body, rt, path)
	switch {
	case errors.Is(err, hydrate.ErrMismatch):
		log.Warn("client markup differs from server markup, client renders on its own")
	case err != nil:
		return err
	}
	log.Info("hydrated",
		slog.String("page", session.Route.Page.Name()),
		slog.Int("queries", session.Cache.Len()))

	if session.Route.Page.Name() != "Home" {
		return nil
	}
	key := pages.StarCountKey(pages.HomeRepo)
	r := session.Cache.Read(key, nil)
	if r.Status == query.StatusPending {
		log.Info("star count missing from snapshot, loading through function endpoint")
		if r, err = session.Cache.Await(ctx, key); err != nil {
			return err
		}
	}
	if r.Status == query.StatusError {
		return r.Err
	}
	var markup strings.Builder
	if err := session.Render(&markup); err != nil {
		return err
	}
	fmt.Println(markup.String())
	return nil
}
