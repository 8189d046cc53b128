// Package main hosts the signscribe CLI.
//
// The Cobra command tree runs the HTTP API (serve), transcribes single videos
// from the terminal (transcribe), and exposes maintenance views over run
// history, the transcript cache, staging directories, and external
// dependencies. Output is a table on an interactive terminal and JSON
// otherwise, or whenever --json is passed.
//
// Commands resolve configuration lazily through commandContext so that
// helpers such as "config init" and "segment" work without a config file.
package main
