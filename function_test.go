// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package ssrserve

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/pages"
	rechttptest "github.com/thediveo/ssrserve/test/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type paramsRecorder func(github.Params)

func (r paramsRecorder) StarCount(_ context.Context, p github.Params) (github.StarCount, error) {
	r(p)
	return github.StarCount{Result: 1}, nil
}

type failingRemote struct{}

func (failingRemote) RepoStarCount(context.Context, string, string) (int, error) {
	return 0, errors.New("rate limited")
}

var _ = Describe("star count function endpoint", func() {

	fnpath := func(query string) string {
		return pages.StarCountFunctionPath + query
	}

	DescribeTable("serves star counts",
		func(sc github.StarCount, expectedSource string) {
			h := NewStarCountHandler(fixedSource{sc: sc}, nil)
			w := rechttptest.NewRecorder()
			h.ServeHTTP(w, request("GET", fnpath("?userName=facebook&repoName=react"), nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(w.Header().Get(StarCountSourceHeader)).To(Equal(expectedSource))
			Expect(w.Body.String()).To(MatchJSON(`{"result":` + strconv.Itoa(sc.Result) + `}`))
		},
		Entry("live", github.StarCount{Result: 42}, "live"),
		Entry("fallback", github.StarCount{Result: github.FallbackStarCount, Fallback: true}, "fallback"),
	)

	It("passes the repository identification on", func() {
		var got github.Params
		h := NewStarCountHandler(paramsRecorder(func(p github.Params) { got = p }), nil)
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("GET", fnpath("?userName=thediveo&repoName=spaserve"), nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(got).To(Equal(github.Params{UserName: "thediveo", RepoName: "spaserve"}))
	})

	DescribeTable("rejects incomplete repository identifications",
		func(query string) {
			h := NewStarCountHandler(fixedSource{sc: github.StarCount{Result: 1}}, nil)
			w := rechttptest.NewRecorder()
			h.ServeHTTP(w, request("GET", fnpath(query), nil))
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		},
		Entry("no parameters", ""),
		Entry("user only", "?userName=facebook"),
		Entry("repo only", "?repoName=react"),
		Entry("empty user", "?userName=&repoName=react"),
	)

	It("rejects other methods", func() {
		h := NewStarCountHandler(fixedSource{sc: github.StarCount{Result: 1}}, nil)
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("POST", fnpath("?userName=facebook&repoName=react"), nil))
		Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
		Expect(w.Header().Get("Allow")).To(ContainSubstring("GET"))
	})

	It("logs and normalizes source failures", func() {
		var buff bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buff, nil))
		h := NewStarCountHandler(fixedSource{err: errors.New("secret mistake")}, log)
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("GET", fnpath("?userName=facebook&repoName=react"), nil))
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).NotTo(ContainSubstring("secret"))
		Expect(buff.String()).To(ContainSubstring("secret mistake"))
	})

	It("serves fallback star counts when GitHub fails", func() {
		fetcher := github.NewFetcher(failingRemote{})
		h := NewStarCountHandler(fetcher, nil)
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("GET", fnpath("?userName=facebook&repoName=react"), nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get(StarCountSourceHeader)).To(Equal("fallback"))
		var sc github.StarCount
		w.DecodeJSON(&sc)
		Expect(sc.Result).To(Equal(github.FallbackStarCount))
	})

})
