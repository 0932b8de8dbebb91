// Package extract turns raw file bytes into plain text, per file type.
package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/filetype"
)

// Registry dispatches extraction by file type. Audio and video delegate
// to the transcription provider; video demuxes its audio track first.
type Registry struct {
	transcriber core.TranscriptionProvider
	demuxer     Demuxer
	tempBase    string
	logger      *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDemuxer overrides the ffmpeg demuxer.
func WithDemuxer(d Demuxer) Option {
	return func(r *Registry) {
		if d != nil {
			r.demuxer = d
		}
	}
}

// WithTempDir sets the parent directory for scoped demux workspaces.
// Default is the system temp dir.
func WithTempDir(dir string) Option {
	return func(r *Registry) { r.tempBase = dir }
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an extraction registry.
func NewRegistry(transcriber core.TranscriptionProvider, opts ...Option) *Registry {
	r := &Registry{
		transcriber: transcriber,
		demuxer:     &FFmpegDemuxer{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extract produces plain text from the file bytes. Empty or
// whitespace-only output is a failure, never a success: chunking zero
// content would produce an empty but "ready" document.
func (r *Registry) Extract(ctx context.Context, ft filetype.Type, data []byte, filename string) (string, error) {
	var (
		text string
		err  error
	)
	switch ft {
	case filetype.PDF:
		text, err = extractPDF(data)
	case filetype.Text, filetype.Markdown:
		text = decodeUTF8(data)
	case filetype.JSON:
		text = normalizeJSON(data)
	case filetype.Audio:
		text, err = r.transcriber.Transcribe(ctx, data, filename)
	case filetype.Video:
		text, err = r.extractVideo(ctx, data, filename)
	default:
		return "", core.ErrUnsupportedFileType
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", core.ErrEmptyExtraction
	}
	return text, nil
}

// decodeUTF8 decodes bytes as UTF-8, replacing invalid sequences instead
// of failing.
func decodeUTF8(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}

// normalizeJSON re-serializes valid JSON with stable indentation so
// chunk boundaries don't depend on the uploader's formatting. Malformed
// JSON falls back to the raw decoded text.
func normalizeJSON(data []byte) string {
	raw := decodeUTF8(data)
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return raw
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return raw
	}
	return string(pretty)
}
