// Package source models the two kinds of pipeline input, a local video file
// or a remote video URL, and derives platform video identifiers from URLs.
//
// Identifier derivation is pure: it never touches the network, so an
// unparseable URL is rejected before any download or caption request starts.
package source
