package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const translateTTSURL = "https://translate.google.com/translate_tts"

// The endpoint rejects queries beyond roughly this length; longer scripts
// are fetched in chunks and concatenated (MP3 frames concatenate cleanly).
const maxChunkLen = 200

// Google renders speech through the public translate TTS endpoint, the same
// service the gTTS tooling uses
type Google struct {
	client *http.Client
	dir    string
}

// NewGoogle creates a renderer that writes MP3 files into dir
func NewGoogle(dir string) *Google {
	return &Google{
		client: &http.Client{},
		dir:    dir,
	}
}

// Render fetches speech audio for text and saves it as an MP3 file.
func (g *Google) Render(ctx context.Context, text, locale string) (string, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %v", err)
	}

	path := filepath.Join(g.dir, uuid.NewString()+".mp3")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %v", err)
	}
	defer out.Close()

	for _, chunk := range splitChunks(text, maxChunkLen) {
		if err := g.fetchChunk(ctx, chunk, locale, out); err != nil {
			os.Remove(path)
			return "", err
		}
	}

	return path, nil
}

func (g *Google) fetchChunk(ctx context.Context, text, locale string, out io.Writer) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", locale)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, translateTTSURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create TTS request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch TTS audio: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TTS endpoint returned status %d", resp.StatusCode)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write audio file: %v", err)
	}
	return nil
}

// splitChunks breaks text into pieces of at most max bytes, preferring to
// split on spaces so words stay intact.
func splitChunks(text string, max int) []string {
	var chunks []string
	for len(text) > max {
		cut := max
		for cut > 0 && text[cut] != ' ' {
			cut--
		}
		if cut == 0 {
			cut = max
		}
		chunks = append(chunks, text[:cut])
		for cut < len(text) && text[cut] == ' ' {
			cut++
		}
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
