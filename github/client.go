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

package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultAPIURL is the base URL of the public GitHub REST API.
const DefaultAPIURL = "https://api.github.com"

// RemoteSource queries repository metadata, returning the number of stars of a
// repository.
type RemoteSource interface {
	RepoStarCount(ctx context.Context, user, repo string) (int, error)
}

// repoInfo is the part of GitHub's repository resource we're interested in.
type repoInfo struct {
	FullName        string `json:"full_name"`
	StargazersCount *int   `json:"stargazers_count"`
}

// Client queries the GitHub REST API.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
}

// ClientOption sets optional properties at the time of creating a Client.
type ClientOption func(*Client)

// WithAPIURL sets the base URL of the GitHub API to query, such as for GitHub
// Enterprise installations or tests.
func WithAPIURL(apiURL string) ClientOption {
	return func(c *Client) {
		if apiURL != "" {
			c.apiURL = strings.TrimSuffix(apiURL, "/")
		}
	}
}

// WithAccessToken sets the access token to authenticate API calls with;
// unauthenticated API calls are subject to much stricter rate limits.
func WithAccessToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient returns a new GitHub API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		apiURL:     DefaultAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RepoStarCount returns the number of stargazers of the specified repository.
// Any transport failure, non-2xx status code, or malformed response body is
// reported as an error.
func (c *Client) RepoStarCount(ctx context.Context, user, repo string) (int, error) {
	repoURL := fmt.Sprintf("%s/repos/%s/%s",
		c.apiURL, url.PathEscape(user), url.PathEscape(repo))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, repoURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("repository %s/%s: %s", user, repo, resp.Status)
	}
	var info repoInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("repository %s/%s: malformed response: %w", user, repo, err)
	}
	if info.StargazersCount == nil {
		return 0, errors.New("repository " + user + "/" + repo + ": missing stargazers_count")
	}
	return *info.StargazersCount, nil
}
