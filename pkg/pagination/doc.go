// Package pagination follows Link-header continuation across the pages of a
// GitHub collection.
//
// GitHub announces further pages through the Link response header rather
// than a total page count, so pages are fetched strictly one after another:
// each response decides whether (and where) the next request goes.
//
// Example usage:
//
//	ctrl := pagination.NewController(transport, cacheHook)
//	req := pagination.NewRequest(http.MethodGet, []string{"repos", "owner", "repo", "issues"}, params)
//	records, err := ctrl.Collect(ctx, req)
//
// The controller:
//   - Builds each request from an immutable Request descriptor
//   - Runs the optional Hook around every fetch (conditional requests, cache replay)
//   - Stops when no "next" link remains, or on the page announced as "last"
//   - Truncates to the first page with WithNoFollow
//   - Discards everything accumulated when any fetch fails
//
// Iterate exposes the same sequence lazily; Collect drives it to the end.
package pagination
