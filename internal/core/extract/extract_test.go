package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salubra-ai/salubra/internal/core"
	"github.com/salubra-ai/salubra/internal/core/filetype"
)

type fakeTranscriber struct {
	text     string
	err      error
	gotAudio []byte
	gotName  string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	f.gotAudio = audio
	f.gotName = filename
	return f.text, f.err
}

type fakeDemuxer struct {
	err       error
	gotInput  string
	gotOutput string
}

func (f *fakeDemuxer) Demux(_ context.Context, inputPath, outputPath string) error {
	f.gotInput = inputPath
	f.gotOutput = outputPath
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputPath, []byte("RIFFwav"), 0o600)
}

func TestExtractText(t *testing.T) {
	r := NewRegistry(nil)

	t.Run("plain text passes through", func(t *testing.T) {
		text, err := r.Extract(context.Background(), filetype.Text, []byte("hola"), "a.txt")
		require.NoError(t, err)
		assert.Equal(t, "hola", text)
	})

	t.Run("invalid utf8 is replaced, not fatal", func(t *testing.T) {
		text, err := r.Extract(context.Background(), filetype.Text, []byte{'o', 'k', 0xff, '!'}, "a.txt")
		require.NoError(t, err)
		assert.Contains(t, text, "ok")
		assert.Contains(t, text, "�")
	})

	t.Run("markdown uses the text path", func(t *testing.T) {
		text, err := r.Extract(context.Background(), filetype.Markdown, []byte("# Título"), "a.md")
		require.NoError(t, err)
		assert.Equal(t, "# Título", text)
	})

	t.Run("whitespace-only text fails", func(t *testing.T) {
		_, err := r.Extract(context.Background(), filetype.Text, []byte("  \n\t "), "a.txt")
		assert.ErrorIs(t, err, core.ErrEmptyExtraction)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		_, err := r.Extract(context.Background(), filetype.Unknown, []byte("x"), "a.xyz")
		assert.ErrorIs(t, err, core.ErrUnsupportedFileType)
	})
}

func TestExtractJSON(t *testing.T) {
	r := NewRegistry(nil)

	t.Run("valid json is re-serialized with stable indentation", func(t *testing.T) {
		text, err := r.Extract(context.Background(), filetype.JSON, []byte(`{"b":1,"a":[2,3]}`), "a.json")
		require.NoError(t, err)
		assert.Contains(t, text, "\n  ")
		assert.Contains(t, text, `"a"`)
	})

	t.Run("malformed json falls back to raw text", func(t *testing.T) {
		text, err := r.Extract(context.Background(), filetype.JSON, []byte(`{"broken":`), "a.json")
		require.NoError(t, err)
		assert.Equal(t, `{"broken":`, text)
	})
}

func TestExtractAudioDelegatesToTranscriber(t *testing.T) {
	tr := &fakeTranscriber{text: "transcripción"}
	r := NewRegistry(tr)

	text, err := r.Extract(context.Background(), filetype.Audio, []byte("mp3data"), "memo.mp3")
	require.NoError(t, err)
	assert.Equal(t, "transcripción", text)
	assert.Equal(t, []byte("mp3data"), tr.gotAudio)
	assert.Equal(t, "memo.mp3", tr.gotName)
}

func TestExtractAudioEmptyTranscriptFails(t *testing.T) {
	r := NewRegistry(&fakeTranscriber{text: "   "})
	_, err := r.Extract(context.Background(), filetype.Audio, []byte("mp3data"), "memo.mp3")
	assert.ErrorIs(t, err, core.ErrEmptyExtraction)
}

func TestExtractVideoDemuxesThenTranscribes(t *testing.T) {
	base := t.TempDir()
	tr := &fakeTranscriber{text: "habla desde el video"}
	dm := &fakeDemuxer{}
	r := NewRegistry(tr, WithDemuxer(dm), WithTempDir(base))

	text, err := r.Extract(context.Background(), filetype.Video, []byte("mp4data"), "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "habla desde el video", text)
	assert.Equal(t, []byte("RIFFwav"), tr.gotAudio)
	assert.Equal(t, ".mp4", filepath.Ext(dm.gotInput))
	assert.Equal(t, "audio.wav", filepath.Base(dm.gotOutput))

	// Workspace is gone after success.
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractVideoCleansUpOnDemuxFailure(t *testing.T) {
	base := t.TempDir()
	dm := &fakeDemuxer{err: &core.DemuxError{Err: errors.New("no audio stream")}}
	r := NewRegistry(&fakeTranscriber{}, WithDemuxer(dm), WithTempDir(base))

	_, err := r.Extract(context.Background(), filetype.Video, []byte("mp4data"), "clip.mp4")

	var demuxErr *core.DemuxError
	require.ErrorAs(t, err, &demuxErr)

	// Input file, output file and working directory are all gone.
	assert.NoFileExists(t, dm.gotInput)
	assert.NoFileExists(t, dm.gotOutput)
	entries, readErr := os.ReadDir(base)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestExtractVideoCleansUpOnTranscriptionFailure(t *testing.T) {
	base := t.TempDir()
	dm := &fakeDemuxer{}
	tr := &fakeTranscriber{err: &core.TranscriptionError{Status: 500, Body: "boom"}}
	r := NewRegistry(tr, WithDemuxer(dm), WithTempDir(base))

	_, err := r.Extract(context.Background(), filetype.Video, []byte("mp4data"), "clip.mp4")
	require.Error(t, err)

	assert.NoFileExists(t, dm.gotInput)
	assert.NoFileExists(t, dm.gotOutput)
	entries, readErr := os.ReadDir(base)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}
