// Package pagination follows server-driven cursor pagination for the
// LAVA data export API.
//
// LAVA responds to collection queries with a fixed envelope
// {count, next, previous, results}; the "next" member is a URL naming
// the following page of the same logical query. This package exposes
// such a collection as a pull-based sequence: items are popped from the
// buffered page in server order, and the next link is fetched only when
// the buffer runs out.
//
// Example usage:
//
//	u, _ := url.Parse("https://lava.example.com/api/v0.2/workers/")
//	p := pagination.New[Worker](httpClient, u, logger)
//	for w, err := range p.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(w.Hostname)
//	}
//
// The paginator:
//   - Follows the next link verbatim, never reconstructing it from count/limit
//   - Follows HTTP redirects itself, up to 9 hops, refusing https→http downgrades
//   - Surfaces fetch errors per pull and re-schedules the same URL for the
//     next pull (no backoff and no retry bound; see Paginator.Next)
//   - Treats a malformed next link as terminal for the sequence
//
// The supplied http.Client must not follow redirects on its own
// (CheckRedirect returning http.ErrUseLastResponse), otherwise
// credential headers could leak across scheme downgrades.
package pagination
