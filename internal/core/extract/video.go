package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/salubra-ai/salubra/internal/core"
)

// Demuxer extracts the audio track of a video file into a WAV file.
type Demuxer interface {
	Demux(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegDemuxer shells out to ffmpeg to produce a mono 16kHz PCM WAV
// stream, the input format speech-to-text models expect.
type FFmpegDemuxer struct {
	// Binary overrides the ffmpeg executable path. Default "ffmpeg".
	Binary string
}

func (d *FFmpegDemuxer) Demux(ctx context.Context, inputPath, outputPath string) error {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &core.DemuxError{Stderr: stderr.String(), Err: err}
	}
	return nil
}

// extractVideo writes the video into a scoped temp directory, demuxes its
// audio, and transcribes the result. The temp input, temp output and the
// directory itself are removed on every exit path.
func (r *Registry) extractVideo(ctx context.Context, data []byte, filename string) (string, error) {
	dir, err := os.MkdirTemp(r.tempBase, "demux-")
	if err != nil {
		return "", fmt.Errorf("create demux workspace: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			r.logger.Error("removing demux workspace", "dir", dir, "err", rmErr)
		}
	}()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}
	inputPath := filepath.Join(dir, "input"+ext)
	outputPath := filepath.Join(dir, "audio.wav")

	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write demux input: %w", err)
	}
	if err := r.demuxer.Demux(ctx, inputPath, outputPath); err != nil {
		return "", err
	}

	wav, err := os.ReadFile(outputPath)
	if err != nil {
		return "", fmt.Errorf("read demux output: %w", err)
	}
	return r.transcriber.Transcribe(ctx, wav, "audio.wav")
}
