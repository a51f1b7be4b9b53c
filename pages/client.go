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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/thediveo/ssrserve/github"
)

// StarCountFunctionPath is the path of the star count function endpoint.
const StarCountFunctionPath = "/.netlify/functions/gh_repo_star_count"

// StarCountClient queries star counts from the star count function endpoint
// of a server. It is the StarCountSource of client-side pages.
type StarCountClient struct {
	origin string
	client *http.Client
}

// NewStarCountClient returns a client for the star count function endpoint of
// the server at origin, such as "http://localhost:8888". If hc is nil,
// http.DefaultClient is used.
func NewStarCountClient(origin string, hc *http.Client) *StarCountClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &StarCountClient{
		origin: strings.TrimSuffix(origin, "/"),
		client: hc,
	}
}

// StarCount queries the star count of the repository identified by params.
func (c *StarCountClient) StarCount(ctx context.Context, params github.Params) (github.StarCount, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.origin+StarCountFunctionPath+"?"+params.Values().Encode(), nil)
	if err != nil {
		return github.StarCount{}, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return github.StarCount{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return github.StarCount{}, fmt.Errorf("star count function: %s", resp.Status)
	}
	var sc github.StarCount
	if err := json.NewDecoder(resp.Body).Decode(&sc); err != nil {
		return github.StarCount{}, fmt.Errorf("star count function: malformed response: %w", err)
	}
	return sc, nil
}
