package ics

import "errors"

// Sentinel errors surfaced to collaborators as status strings. Per-event
// problems are not errors; they travel as diagnostics in the result.
var (
	// ErrInvalidFeed means the text lacks the calendar/event markers;
	// nothing was parsed and the caller's prior state stands.
	ErrInvalidFeed = errors.New("ics: invalid feed, missing calendar or event markers")

	// ErrFetchFailed wraps a non-200 response or a transport error.
	ErrFetchFailed = errors.New("ics: feed fetch failed")

	// ErrEmptyFeed means the fetch succeeded but the body was empty.
	ErrEmptyFeed = errors.New("ics: empty feed body")
)
