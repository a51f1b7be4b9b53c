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
	"context"
	"embed"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"

	"github.com/thediveo/ssrserve/github"
	"github.com/thediveo/ssrserve/pages"
	"github.com/thediveo/ssrserve/ssr"
	rechttptest "github.com/thediveo/ssrserve/test/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

//go:embed test/*
var embeddedFiles embed.FS
var embStaticFs, _ = fs.Sub(embeddedFiles, "test")

type fixedSource struct {
	sc  github.StarCount
	err error
}

func (s fixedSource) StarCount(context.Context, github.Params) (github.StarCount, error) {
	return s.sc, s.err
}

// newRenderer returns a renderer using the named shell from the test assets
// and a star count source always returning the fallback star count.
func newRenderer(shell string) *ssr.Renderer {
	GinkgoHelper()
	rt := Successful(pages.NewRouter(fixedSource{
		sc: github.StarCount{Result: github.FallbackStarCount, Fallback: true},
	}))
	return ssr.NewRenderer(rt, ssr.NewTemplate(ssr.FSSource{FS: embStaticFs, Name: shell}))
}

func request(method, path string, header http.Header) *http.Request {
	GinkgoHelper()
	url := Successful(url.Parse("http://foo.bar:12345" + path))
	return &http.Request{
		Method: method,
		URL:    url,
		Header: header,
	}
}

var _ = Describe("server-side rendering handler", func() {

	DescribeTable("test has embedded files correctly set up",
		func(name string) {
			f := Successful(embStaticFs.Open(name))
			f.Close()
		},
		Entry("index.html", "index.html"),
		Entry("static/js/some.js", "static/js/some.js"),
		Entry("icon.png", "icon.png"),
	)

	DescribeTable("determines original request path",
		func(path string, header http.Header, expected string) {
			h := NewHandler(newRenderer("index.html"))
			Expect(h.originalReqPath(request("GET", path, header))).To(Equal(expected))
		},
		Entry("/ without proxy headers", "/", nil, "/"),

		Entry("a request path without proxy headers", "/some/path", nil, "/some/path"),
		Entry("/ with X-Forwarded-Prefix header", "/", http.Header{
			ForwardedPrefixHeader: []string{"/"},
		}, "/"),
		Entry("/ with X-Forwarded-Prefix header", "/", http.Header{
			ForwardedPrefixHeader: []string{"/prefix"},
		}, "/prefix"),
		Entry("/foo with X-Forwarded-Prefix header", "/foo", http.Header{
			ForwardedPrefixHeader: []string{"/prefix"},
		}, "/prefix/foo"),

		Entry("/ with X-Forwarded-Uri path-only header", "/", http.Header{
			ForwardedUriHeader: []string{"/"},
		}, "/"),
		Entry("/ with X-Forwarded-Uri path-only empty header", "/", http.Header{
			ForwardedUriHeader: []string{""},
		}, "/"),
		Entry("/ with X-Forwarded-Uri path-only /prefix header", "/", http.Header{
			ForwardedUriHeader: []string{"/prefix"},
		}, "/prefix"),
		Entry("/ with X-Forwarded-Uri schemed header", "/", http.Header{
			ForwardedUriHeader: []string{"http://foo.bar:12345/prefix"},
		}, "/prefix"),
		Entry("/ with X-Forwarded-Uri schemed header and trailing slash", "/", http.Header{
			ForwardedUriHeader: []string{"http://foo.bar:12345/prefix/"},
		}, "/prefix"),
	)

	DescribeTable("determines basename path",
		func(path string, header http.Header, expected string) {
			h := NewHandler(newRenderer("index.html"))
			Expect(h.basename(request("GET", path, header))).To(Equal(expected))
		},
		Entry("/ without proxy headers", "/", nil, "/"),
		Entry("/foo/bar without proxy headers", "/foo/bar", nil, "/"),

		Entry("/ rewritten with prefix /foo", "/", http.Header{
			ForwardedPrefixHeader: []string{"/foo"},
		}, "/foo/"),
		Entry("/foo/bar rewritten with prefix /", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{"/"},
		}, "/"),
		Entry("/foo/bar rewritten with empty prefix", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{""},
		}, "/"),
		Entry("/foo/bar rewritten with prefix /foo", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{"/foo"},
		}, "/foo/"),
		Entry("/foo/bar rewritten with prefix /foo/", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{"/foo/"},
		}, "/foo/"),
		Entry("/foo/bar rewritten with prefix /bar", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{"/bar"},
		}, "/bar/"), // sic!
		Entry("/foo/bar rewritten with prefix /foo/bar/", "/foo/bar", http.Header{
			ForwardedPrefixHeader: []string{"/foo/bar/"},
		}, "/foo/bar/"), // request outside, so clamp to prefix
	)

	DescribeTable("serves static assets with correct status code",
		func(path, prefix string, expectedServed bool, expectedCanary string, expectedStatus int) {
			r := request("GET", path, http.Header{
				ForwardedPrefixHeader: []string{prefix},
			})
			h := NewHandler(newRenderer("index.html"), WithStaticAssets(embStaticFs))
			w := rechttptest.NewRecorder()
			Expect(h.serveStaticAsset(w, r)).To(Equal(expectedServed))
			switch expectedStatus {
			case 0:
			case http.StatusOK:
				Expect(w.Body.String()).To(ContainSubstring(expectedCanary))
			default:
				Expect(w.Result().StatusCode).To(Equal(expectedStatus))
			}
		},
		Entry("/static/js/some.js",
			"/static/js/some.js", "/", true, "CANARY JS", http.StatusOK),
		Entry("[/foo]/static/js/some.js",
			"/static/js/some.js", "/foo", true, "CANARY JS", http.StatusOK),
		Entry("/static/foo/bar",
			"/static/foo/bar", "/", false, "", 0),
		Entry("/static",
			"/static", "/", false, "", 0),
		Entry("/",
			"/", "/", false, "", 0),
		Entry("/..",
			"/..", "/..", true, "", 0),
	)

	It("doesn't serve static assets without an assets fs", func() {
		h := NewHandler(newRenderer("index.html"))
		Expect(h.serveStaticAsset(rechttptest.NewRecorder(),
			request("GET", "/static/js/some.js", nil))).To(BeFalse())
	})

	emptySnapshot := `window.` + ssr.SnapshotGlobal + `={"queries":[]};`

	DescribeTable("renders pages",
		func(path string, expectedText string, expectedSnapshot string) {
			h := NewHandler(newRenderer("index.html"), WithStaticAssets(embStaticFs))
			w := rechttptest.NewRecorder()
			h.ServeHTTP(w, request("GET", path, nil))
			Expect(w.Result().StatusCode).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("text/html; charset=utf-8"))
			doc := w.Document()
			Expect(doc.Find("title").Text()).To(Equal("CANARY SHELL"))
			Expect(doc.Find(ssr.RootSelector).Text()).To(ContainSubstring(expectedText))
			Expect(w.Body.String()).To(ContainSubstring(expectedSnapshot))
		},
		Entry("home", "/", "Learn React (⭐️ = 12,345)", pages.StarCountQueryName),
		Entry("not found", "/anything-unmatched", "Not Found", emptySnapshot),
		Entry("not found, deeper", "/static/foo/bar", "Not Found", emptySnapshot),
		Entry("unsanitized", "/../..", "Learn React", pages.StarCountQueryName),
	)

	DescribeTable("rewrites the base of rendered pages",
		func(path, prefix string, expected string) {
			r := request("GET", path, http.Header{
				ForwardedPrefixHeader: []string{prefix},
			})
			h := NewHandler(newRenderer("index.html"), WithStaticAssets(embStaticFs))
			w := rechttptest.NewRecorder()
			h.ServeHTTP(w, r)
			Expect(w.Result().StatusCode).To(Equal(http.StatusOK))
			base := w.Document().Find("base")
			Expect(base.Length()).To(Equal(1), "<base> element lost")
			href, _ := base.First().Attr("href")
			Expect(href).To(Equal(expected))
		},
		Entry("prefix /foo", "/bar/baz", "/foo", "/foo/"),
		Entry("/", "/", "/", "/"),
	)

	It("supports application-specific rewriting/post-processing", func() {
		const canary = "<!-- SOMETHING DIFFERENT -->"
		h := NewHandler(newRenderer("index.html"),
			WithIndexRewriter(func(r *http.Request, index string) string {
				return index + canary
			}))
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("GET", "", nil))
		Expect(w.Result().StatusCode).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(HaveSuffix(canary))
	})

	It("returns a 404 when the shell is missing", func() {
		h := NewHandler(newRenderer("bonkers.html"))
		w := rechttptest.NewRecorder()
		h.ServeHTTP(w, request("GET", "/", nil))
		Expect(w.Result().StatusCode).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).NotTo(ContainSubstring("bonkers"))
	})

	DescribeTable("serves a static asset using varying fs.FS implementations",
		func(fs fs.FS) {
			h := NewHandler(newRenderer("index.html"), WithStaticAssets(fs))
			w := rechttptest.NewRecorder()
			h.ServeHTTP(w, request("GET", "/icon.png", nil))
			Expect(w.Result().StatusCode).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("image/png"))
		},
		Entry("from embedded fs", embStaticFs),
		Entry("from test dir fs", os.DirFS("./test")),
	)

	When("passing through to the client development server", func() {

		var devsrv *httptest.Server

		BeforeEach(func() {
			devsrv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/javascript")
				_, _ = w.Write([]byte("// DEV " + r.URL.Path))
			}))
			DeferCleanup(devsrv.Close)
		})

		DescribeTable("passes only GETs of files",
			func(method, path string, expectedDev bool) {
				h := NewHandler(newRenderer("index.html"),
					WithStaticAssets(embStaticFs),
					WithDevOrigin(Successful(url.Parse(devsrv.URL))))
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
				Expect(w.Code).To(Equal(http.StatusOK))
				if expectedDev {
					Expect(w.Body.String()).To(Equal("// DEV " + path))
					return
				}
				Expect(w.Body.String()).NotTo(ContainSubstring("// DEV"))
			},
			Entry("GET of a file", http.MethodGet, "/static/js/main.js", true),
			Entry("GET of a file also present locally", http.MethodGet, "/static/js/some.js", true),
			Entry("GET of a page", http.MethodGet, "/", false),
			Entry("GET of a deep page", http.MethodGet, "/foo/bar", false),
			Entry("POST of a file", http.MethodPost, "/static/js/main.js", false),
		)

		It("reports an unavailable client development server", func() {
			origin := Successful(url.Parse(devsrv.URL))
			devsrv.Close()
			h := NewHandler(newRenderer("index.html"), WithDevOrigin(origin))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/js/main.js", nil))
			Expect(w.Code).To(Equal(http.StatusBadGateway))
		})

		It("ignores a missing origin", func() {
			h := NewHandler(newRenderer("index.html"), WithDevOrigin(nil))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/js/main.js", nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("Not Found"))
		})

	})

})
