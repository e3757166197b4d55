// Package cli is the clipsync command-line client.
//
// Every mutation command goes through the offline-first content service:
// it is applied directly when the backend is reachable and queued
// otherwise. Queued work is pushed by `clipsync sync` or by a running
// `clipsync daemon`.
//
//	clipsync login [token]
//	clipsync like <target> --kind voice_clip
//	clipsync voice clip.m4a --phrase hola --language es --duration 1.5
//	clipsync pending
//	clipsync sync
package cli
