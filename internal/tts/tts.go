// Package tts renders listening-question scripts into audio files. Failures
// are non-fatal: the caller degrades to text-only delivery.
package tts

import "context"

// Renderer converts a script into an audio file and returns its path
type Renderer interface {
	Render(ctx context.Context, text, locale string) (string, error)
}
