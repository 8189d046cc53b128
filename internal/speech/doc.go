// Package speech recognizes text in normalized audio artifacts.
//
// A Model is loaded once per process from static configuration and shared
// by reference. Two engines are available: WhisperX run through uvx, and
// an OpenAI-compatible /audio/transcriptions endpoint. Model.Infer bounds
// each call with the configured timeout and limits concurrent inference to
// the configured number of slots.
package speech
