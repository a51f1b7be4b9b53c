/*
Package github queries the star count of GitHub repositories.

The Client talks to the GitHub REST API. The Fetcher wraps any RemoteSource,
such as a Client, and always delivers a star count: when the remote source
fails for whatever reason, the Fetcher reports FallbackStarCount instead.
Rendering a page with some number is deemed better than failing to render.
*/
package github
