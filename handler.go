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
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/ssr"
)

// ForwardedPrefixHeader, if present, specifies the prefix that need to be
// preprended to the request's URI path in order to learn the original path
// when hitting the path rewriting proxy.
const ForwardedPrefixHeader = "X-Forwarded-Prefix"

// ForwardedUriHeader, if present, specifies the original URI (or sometimes only
// the original URI path) of a request when hitting the first path rewriting
// proxy.
const ForwardedUriHeader = "X-Forwarded-Uri"

// Handler implements an http.Handler that renders pages on the server for
// (almost) all request paths. Only static assets get served as they are: from
// the static assets fs.FS, if any, and in development mode from the client
// development server for all GET requests to paths with a file extension.
type Handler struct {
	renderer      *ssr.Renderer
	assets        fs.FS         // optional FS to serve static assets from.
	assetsHandler http.Handler  // assets adapted to http's file serving needs.
	devProxy      http.Handler  // optional pass-through to the client dev server.
	indexRewriter IndexRewriter // optional user function to post-process rendered pages.
	log           *slog.Logger
}

// NewHandler returns a new HTTP handler rendering pages using the specified
// renderer.
func NewHandler(renderer *ssr.Renderer, opts ...HandlerOption) *Handler {
	h := &Handler{
		renderer: renderer,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandlerOption sets optional properties at the time of creating a Handler.
type HandlerOption func(*Handler)

// IndexRewriter rewrites (parts) of a rendered page to be delivered to a
// requesting client. It can be optionally activated using the
// WithIndexRewriter option when creating a new Handler.
type IndexRewriter func(r *http.Request, index string) string

// WithIndexRewriter sets the specified IndexRewriter that gets called before
// delivering rendered pages to requesting clients, allowing for
// application-specific changes.
func WithIndexRewriter(rewriter IndexRewriter) HandlerOption {
	return func(h *Handler) {
		h.indexRewriter = rewriter
	}
}

// WithStaticAssets serves static assets from the specified fs, such as the
// client build output. In order to serve from a directory on the OS file
// system, use os.DirFS:
//
//	h := NewHandler(renderer, WithStaticAssets(os.DirFS("/opt/data/client")))
func WithStaticAssets(assets fs.FS) HandlerOption {
	return func(h *Handler) {
		h.assets = assets
		h.assetsHandler = http.FileServer(http.FS(assets))
	}
}

// WithDevOrigin passes GET requests for paths with file extensions verbatim to
// the specified client development server, instead of rendering them.
func WithDevOrigin(origin *url.URL) HandlerOption {
	return func(h *Handler) {
		if origin == nil {
			return
		}
		h.devProxy = &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(origin)
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				h.log.Error("client dev server unavailable",
					slog.String("origin", origin.String()),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				http.Error(w, "502 Bad Gateway", http.StatusBadGateway)
			},
		}
	}
}

// WithLogger sets the logger for reporting failures.
func WithLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// ServeHTTP either passes static asset requests on to the client development
// server, serves a static asset when available, or otherwise renders the page
// for the request path. Rendering pages for all remaining paths is required
// for client-side DOM routers, as otherwise bookmarking (router) links or
// reloading a page with the current route other than "/" would fail.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get the absolute and also cleaned path to the requested resource in order
	// to prevent parent directory traversal outside the static assets
	// directory. Slapping "/" ensures that path.Clean does NOT to use the
	// current working dir for resolving the request path ... whichever current
	// working directory it might be at the moment is.
	r.URL.Path = path.Clean("/" + r.URL.Path)
	if h.serveFromDevOrigin(w, r) {
		return
	}
	if h.serveStaticAsset(w, r) {
		return
	}
	h.serveRenderedPage(w, r)
}

// serveRenderedPage serves the page rendered for the request path, with the
// HTML base element referring to the correct base path of the application.
func (h *Handler) serveRenderedPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.renderer.Render(r, h.basename(r))
	if err != nil {
		h.log.Error("cannot serve page",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		NormalizedHttpError(w, err)
		return
	}
	if h.indexRewriter != nil {
		page = h.indexRewriter(r, page)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

// serveFromDevOrigin passes GET requests for paths with a file extension on to
// the client development server, if configured, returning true. Otherwise, it
// does nothing and returns false.
func (h *Handler) serveFromDevOrigin(w http.ResponseWriter, r *http.Request) bool {
	if h.devProxy == nil || r.Method != http.MethodGet || path.Ext(r.URL.Path) == "" {
		return false
	}
	h.devProxy.ServeHTTP(w, r)
	return true
}

// serveStaticAsset tries to serve a static asset specified in uripath from the
// Handler's static assets fs and returning true if successful. If no such
// static asset exists, nothing is served and false is returned instead.
//
// IMPORTANT: the passed r.URL.Path must have already been sanitized.
func (h *Handler) serveStaticAsset(w http.ResponseWriter, r *http.Request) bool {
	if h.assets == nil {
		return false
	}
	// Try to check that the requested resource in fact is a plain file.
	// Thankfully, fs.State deals with fs.FS implementations that don't support
	// fs.StatFS and works around this situation. Thus, we can rely on fs.Stat
	// to give us stat information, if the file exists, whatever measures that
	// takes.
	path := r.URL.Path[1:] // ...fs.FS uses unrooted paths.
	if path == "" {
		return false // hitting root is always a case for rendering.
	}
	info, err := fs.Stat(h.assets, path)
	// If we have a "regular" file then serve it using a regular
	// http.FileServer. Fun fact: http.FileServer also sanitizes our already
	// sanitized path.
	if err == nil && info.Mode()&os.ModeType == 0 {
		h.assetsHandler.ServeHTTP(w, r)
		return true
	}
	// If we got an error and it isn't a missing static asset, then normalize
	// (or rather, sanitize) the error and send that back to the client.
	if err != nil && !os.IsNotExist(err) {
		NormalizedHttpError(w, err)
		return true
	}
	return false
}

// originalReqPath returns the (hopefully) original path when hitting the first
// proxy in a chain, based on what has been passed down to us. If no suitable
// forwarding information is present, the original -- and already sanitized --
// request URL path.
func (h *Handler) originalReqPath(r *http.Request) string {
	// Was the request path rewritten? Then the original request path was the
	// forwarded prefix, followed by the remaining part we now see in the
	// request.
	if fwprefix := r.Header.Get(ForwardedPrefixHeader); fwprefix != "" {
		fwprefix = path.Clean("/" + fwprefix)
		return path.Join(fwprefix, r.URL.Path)
	}
	// Was the original HTTP request URL passed upon us? There seem to be
	// different interpretations with some proxy implementations only passing
	// the request path, but not the full original URI to us...
	if fwurl := r.Header.Get(ForwardedUriHeader); fwurl != "" {
		if strings.HasPrefix(fwurl, "/") {
			return path.Clean(fwurl)
		}
		if u, err := url.Parse(fwurl); err == nil {
			return path.Clean("/" + u.Path)
		}
	}
	return r.URL.Path
}

// basename returns the URI request path base based on the given request, by
// consulting proxy headers when available. Rewriting forwarding proxies need to
// preserve the original client-side request URI path for this to work; if
// deriving the base name is impossible, the base is taken to be "/" from the
// clients' perspective.
func (h *Handler) basename(r *http.Request) string {
	reqPath := r.URL.Path
	originalReqPath := h.originalReqPath(r)
	var base string
	if strings.HasSuffix(reqPath, "/") && !strings.HasSuffix(originalReqPath, "/") {
		// take care of the situation where the reverse proxy redirects from
		// /foo to /foo/ and then rewrites the path to /.
		originalReqPath += "/"
	}
	// If the request path we see is a proper suffix of the original request
	// path, take only the common base part (~prefix).
	if strings.HasSuffix(originalReqPath, reqPath) {
		base = originalReqPath[:len(originalReqPath)-len(reqPath)]
	}
	// Ensure that the base path always ends with a "/", as otherwise browsers
	// clip off the final element in a dirname() operation.
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
