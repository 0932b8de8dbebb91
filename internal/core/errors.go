package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileType is returned when a file cannot be classified
	// into any known type. The ingestion job rejects such files before any
	// extraction work begins.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmptyExtraction is returned when an extractor produces no usable
	// text. Chunking zero content would silently yield an empty document,
	// so the job fails instead.
	ErrEmptyExtraction = errors.New("extraction produced no usable text")

	// ErrChunking is returned when the chunker cannot process its input.
	ErrChunking = errors.New("chunking failed")
)

// DownloadError indicates the source bytes could not be fetched from
// object storage.
type DownloadError struct {
	Locator string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %q: %v", e.Locator, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// EmbeddingError carries the HTTP status and provider error body of a
// failed embedding call.
type EmbeddingError struct {
	Status int
	Body   string
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding API status %d: %s", e.Status, e.Body)
}

func (e *EmbeddingError) HTTPStatus() int { return e.Status }

// TranscriptionError carries the HTTP status and provider error body of a
// failed speech-to-text call.
type TranscriptionError struct {
	Status int
	Body   string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription API status %d: %s", e.Status, e.Body)
}

func (e *TranscriptionError) HTTPStatus() int { return e.Status }

// CompletionError carries the HTTP status and provider error body of a
// failed chat completion call.
type CompletionError struct {
	Status int
	Body   string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion API status %d: %s", e.Status, e.Body)
}

func (e *CompletionError) HTTPStatus() int { return e.Status }

// DemuxError indicates ffmpeg could not extract the audio track from a
// video container.
type DemuxError struct {
	Stderr string
	Err    error
}

func (e *DemuxError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("demux: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("demux: %v", e.Err)
}

func (e *DemuxError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage write or read failure with the
// operation that produced it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StepError records which pipeline step of an ingestion job failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// statusCarrier is implemented by errors that carry an upstream HTTP status.
type statusCarrier interface {
	HTTPStatus() int
}

// IsRetryable reports whether an external-API failure is worth retrying:
// 5xx and 429 responses and timeouts are transient; other 4xx responses
// are terminal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var sc statusCarrier
	if errors.As(err, &sc) {
		status := sc.HTTPStatus()
		return status >= 500 || status == 429
	}
	return false
}
