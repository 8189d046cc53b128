// Package media acquires normalized speech-recognition audio from uploaded
// files and remote videos.
//
// Local files are probed with ffprobe and transcoded with ffmpeg to mono
// 16-bit PCM WAV. Remote URLs are resolved to a platform identifier and
// fetched with yt-dlp, which post-processes to the same format. Each call
// writes into its own uuid-named directory; the returned Audio owns it.
package media
