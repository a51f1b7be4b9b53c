/*
Package ssrserve serves a server-side rendered "Single Page Application" (SPA):
every page request gets rendered on the server, with the page's data prefetched
into a query cache whose snapshot then travels with the page, so that the
client can hydrate without fetching the same data once more.

The Handler type implements http.Handler to serve static assets as well as the
rendered pages, supporting client-side DOM routing and varying base paths
behind path rewriting reverse proxies. During development, the Handler
additionally passes static asset requests through to the client development
server.

The star count function endpoint gets served by the handler returned from
NewStarCountHandler, and NewMux wires both handlers together; Server then runs
them, including graceful shutdown.
*/
package ssrserve
