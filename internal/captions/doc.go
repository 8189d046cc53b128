// Package captions retrieves platform-hosted caption text for remote videos.
//
// Client speaks the timedtext HTTP API and parses its XML with goquery.
// Fetcher layers track selection on top: tracks are matched against an
// ordered language preference list and any failure is reported as
// services.ErrCaptionUnavailable so callers can fall back to speech
// recognition.
package captions
