// Package transcript resolves the text of a video.
//
// Resolver walks a small state machine: remote sources try platform
// captions first and fall back to audio acquisition plus speech
// recognition; local files go straight to recognition. Every transition is
// logged with decision_type=transcript_source. An optional Cache short-cuts
// repeat requests for the same remote video and never fails a request.
package transcript
