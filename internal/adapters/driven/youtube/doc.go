// Package youtube fetches timed transcripts from YouTube.
//
// The fetcher asks the Innertube /player endpoint (ANDROID client) for the
// video's caption tracks and metadata, picks a track by language preference,
// then downloads that track's timedtext XML. Requests share one token-bucket
// limiter so concurrent ingestion workers do not burst the provider.
//
// Errors map onto the domain taxonomy: HTTP 429 and bot checks become
// domain.ErrFetchRateLimited, a video without a usable track in any
// requested language becomes domain.ErrFetchUnavailable. Anything else is
// returned as-is and treated as transient by the caller's retry loop.
package youtube
