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

package ssrserve

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/pages"
)

// StarCountSourceHeader tells clients whether the star count delivered by the
// star count function endpoint is "live" or the "fallback" value.
const StarCountSourceHeader = "X-Star-Count-Source"

// NewStarCountHandler returns an http.Handler serving the star counts from
// source as JSON. It expects the repository to be identified by the "userName"
// and "repoName" query parameters, answering with "400 Bad Request" if any of
// them is missing.
func NewStarCountHandler(source pages.StarCountSource, log *slog.Logger) http.Handler {
	if log == nil {
		log = logging.Discard()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		params := github.ParamsFromValues(r.URL.Query())
		if !params.Valid() {
			NormalizedHttpError(w, github.ErrInvalidParameters)
			return
		}
		sc, err := source.StarCount(r.Context(), params)
		if err != nil {
			log.Error("star count unavailable",
				slog.String("user", params.UserName),
				slog.String("repo", params.RepoName),
				slog.String("error", err.Error()))
			NormalizedHttpError(w, err)
			return
		}
		body, err := json.Marshal(sc)
		if err != nil {
			NormalizedHttpError(w, err)
			return
		}
		origin := "live"
		if sc.Fallback {
			origin = "fallback"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(StarCountSourceHeader, origin)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	})
}
