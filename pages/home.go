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

package pages

import (
	"context"
	"io"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/query"
)

// Home shows the star count of the HomeRepo repository.
type Home struct {
	params  github.Params
	key     query.Key
	loader  query.Loader
	printer *message.Printer
}

type homeData struct {
	Loading bool
	Success bool
	Stars   string
}

// NewHome returns a home page loading the star count from source, if not
// already cached.
func NewHome(source StarCountSource) *Home {
	return &Home{
		params:  HomeRepo,
		key:     StarCountKey(HomeRepo),
		loader:  StarCountLoader(source, HomeRepo),
		printer: message.NewPrinter(language.English),
	}
}

// Name of the page.
func (h *Home) Name() string { return "Home" }

// Key returns the query key of the star count shown.
func (h *Home) Key() query.Key { return h.key }

// Prefetch loads the star count into the query cache, so that Render finds it
// already there.
func (h *Home) Prefetch(ctx context.Context, c *query.Cache, _ *http.Request) error {
	return c.Prefetch(ctx, h.key, h.loader)
}

// Render writes the home page markup, showing the star count if available or
// a loading indication while the star count is pending.
func (h *Home) Render(w io.Writer, c *query.Cache) error {
	r := c.Read(h.key, h.loader)
	data := homeData{Loading: r.Status == query.StatusPending}
	if r.Status == query.StatusSuccess {
		sc, err := query.As[github.StarCount](r.Value)
		if err != nil {
			return err
		}
		data.Success = true
		data.Stars = h.printer.Sprintf("%d", sc.Result)
	}
	return templates.ExecuteTemplate(w, "home.html", data)
}
