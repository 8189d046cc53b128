// Package transcriptcache remembers resolved transcripts by video
// identifier so repeat requests for the same remote video skip captions and
// recognition.
//
// FileCache keeps a JSON index on disk with atomic rewrites. RedisCache
// stores one key per video with a TTL. Open selects the backend named in
// configuration.
package transcriptcache
