/*
Package ssr renders pages on the server.

For each request, a Renderer creates a fresh query cache, selects the page by
the request path, awaits the page's prefetch function if it has one, and then
renders the page over the populated cache. The resulting markup replaces the
contents of the shell's "#root" element, and a script assigning the dehydrated
cache snapshot to the window.__QUERY_STATE__ variable gets appended to the
shell's head element. The client then hydrates its own query cache from this
snapshot instead of fetching the same data again.

The shell is the static index.html of the client build. A Template loads it
lazily and keeps it until explicitly invalidated, such as by Template.Watch.
*/
package ssr
