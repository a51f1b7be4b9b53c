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
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/thediveo/ssrserve/logging"
)

// FallbackStarCount is the star count reported whenever the remote source
// cannot deliver the real one.
const FallbackStarCount = 12345

// DefaultTimeout bounds each remote star count query unless set otherwise.
const DefaultTimeout = 10 * time.Second

// ErrInvalidParameters is returned when the user or repository name is
// missing.
var ErrInvalidParameters = errors.New("bad params: userName and repoName required")

// Params identifies a repository.
type Params struct {
	UserName string `json:"userName"`
	RepoName string `json:"repoName"`
}

// ParamsFromValues returns the repository parameters from URL query values.
func ParamsFromValues(v url.Values) Params {
	return Params{
		UserName: v.Get("userName"),
		RepoName: v.Get("repoName"),
	}
}

// Values returns the parameters as URL query values.
func (p Params) Values() url.Values {
	return url.Values{
		"userName": []string{p.UserName},
		"repoName": []string{p.RepoName},
	}
}

// Map returns the parameters as a name-value map.
func (p Params) Map() map[string]string {
	return map[string]string{
		"userName": p.UserName,
		"repoName": p.RepoName,
	}
}

// Valid returns true if both the user and repository names are present.
func (p Params) Valid() bool {
	return p.UserName != "" && p.RepoName != ""
}

// StarCount is the result of querying the star count of a repository. Only the
// count itself gets serialized, so clients cannot tell a live count from the
// fallback count.
type StarCount struct {
	Result   int  `json:"result"`
	Fallback bool `json:"-"`
}

// Fetcher queries star counts from a remote source, substituting
// FallbackStarCount whenever the remote source fails.
type Fetcher struct {
	remote  RemoteSource
	timeout time.Duration
	log     *slog.Logger
}

// FetcherOption sets optional properties at the time of creating a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the upper bound for each remote query; zero or negative
// values remove the bound.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithLogger sets the logger for reporting remote failures.
func WithLogger(log *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

// NewFetcher returns a new Fetcher querying the specified remote source.
func NewFetcher(remote RemoteSource, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		remote:  remote,
		timeout: DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StarCount returns the star count of the repository identified by params. It
// fails with ErrInvalidParameters when params are incomplete, without querying
// the remote source. Otherwise, it never fails: if the remote source doesn't
// deliver, StarCount returns FallbackStarCount instead.
func (f *Fetcher) StarCount(ctx context.Context, params Params) (StarCount, error) {
	if !params.Valid() {
		return StarCount{}, ErrInvalidParameters
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	count, err := f.remote.RepoStarCount(ctx, params.UserName, params.RepoName)
	if err != nil {
		f.log.Warn("star count unavailable, using fallback",
			slog.String("user", params.UserName),
			slog.String("repo", params.RepoName),
			slog.Int("fallback", FallbackStarCount),
			slog.String("error", err.Error()))
		return StarCount{Result: FallbackStarCount, Fallback: true}, nil
	}
	return StarCount{Result: count}, nil
}
