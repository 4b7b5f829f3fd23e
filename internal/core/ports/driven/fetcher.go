package driven

import "context"

// FetchOptions tunes a single fetch.
type FetchOptions struct {
	// NoCache bypasses the on-disk cache (listings and change feeds
	// must always be fresh; game pages rarely need to be).
	NoCache bool

	// Encoding names the page charset when it is not UTF-8
	// (e.g. "cp1251" for the older Russian sites).
	Encoding string
}

// Fetcher retrieves one URL as decoded text. It is the only component
// that touches the network; scrapers treat any returned error as a
// per-URL failure and never let it propagate further.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (string, error)
}
