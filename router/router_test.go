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

package router

import (
	"io"

	"github.com/thediveo/ssrserve/query"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

type fakePage string

func (p fakePage) Name() string { return string(p) }

func (p fakePage) Render(w io.Writer, _ *query.Cache) error {
	_, err := io.WriteString(w, string(p))
	return err
}

var _ = Describe("page router", func() {

	home := fakePage("Home Page")
	notfound := fakePage("Not Found Page")

	DescribeTable("selects the page for a path",
		func(path string, expected fakePage) {
			r := Successful(New(
				Route{Pattern: "/", Page: home},
				Route{Pattern: Wildcard, Page: notfound},
			))
			Expect(r.Match(path).Page).To(Equal(expected))
		},
		Entry("/", "/", home),
		Entry("empty path", "", home),
		Entry("redundant slashes", "//", home),
		Entry("/somewhere-else", "/somewhere-else", notfound),
		Entry("/anything-unmatched", "/anything-unmatched", notfound),
		Entry("nested path", "/foo/bar", notfound),
		Entry("parent traversal back to root", "/foo/..", home),
		Entry("file-like path", "/index.html", notfound),
	)

	It("lets the first match win", func() {
		first := fakePage("first")
		r := Successful(New(
			Route{Pattern: "/a", Page: first},
			Route{Pattern: "/b", Page: home},
			Route{Pattern: Wildcard, Page: notfound},
		))
		Expect(r.Match("/a").Page).To(Equal(first))
		Expect(r.Match("/b/").Page).To(Equal(home))
		Expect(r.Routes()).To(HaveLen(3))
	})

	DescribeTable("rejects invalid route tables",
		func(routes ...Route) {
			Expect(New(routes...)).Error().To(MatchError(ErrInvalidTable))
		},
		Entry("empty table"),
		Entry("no final wildcard",
			Route{Pattern: "/", Page: home}),
		Entry("wildcard not last",
			Route{Pattern: Wildcard, Page: notfound},
			Route{Pattern: "/", Page: home}),
		Entry("two wildcards",
			Route{Pattern: Wildcard, Page: notfound},
			Route{Pattern: Wildcard, Page: notfound}),
		Entry("duplicate paths",
			Route{Pattern: "/", Page: home},
			Route{Pattern: "//", Page: home},
			Route{Pattern: Wildcard, Page: notfound}),
		Entry("missing page",
			Route{Pattern: "/"},
			Route{Pattern: Wildcard, Page: notfound}),
	)

})
