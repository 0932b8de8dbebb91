// Package filetype classifies uploaded files by declared MIME type and
// file extension. Detection is a pure function: same inputs, same tag.
package filetype

import (
	"path/filepath"
	"strings"
)

// Type is a fixed file-type tag.
type Type string

const (
	PDF      Type = "pdf"
	Text     Type = "text"
	Markdown Type = "markdown"
	JSON     Type = "json"
	Audio    Type = "audio"
	Video    Type = "video"
	Unknown  Type = "unknown"
)

var extTable = map[string]Type{
	".pdf":  PDF,
	".txt":  Text,
	".csv":  Text,
	".md":   Markdown,
	".json": JSON,
	".mp3":  Audio,
	".wav":  Audio,
	".m4a":  Audio,
	".aac":  Audio,
	".flac": Audio,
	".ogg":  Audio,
	".mp4":  Video,
	".mkv":  Video,
	".avi":  Video,
	".mov":  Video,
	".webm": Video,
}

// Detect classifies a file by its declared MIME type, falling back to the
// extension table when the MIME type is absent or unrecognized.
func Detect(filename, mimeType string) Type {
	if t := fromMIME(mimeType); t != Unknown {
		return t
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extTable[ext]; ok {
		return t
	}
	return Unknown
}

func fromMIME(mimeType string) Type {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case mt == "":
		return Unknown
	case mt == "application/pdf":
		return PDF
	case mt == "application/json":
		return JSON
	case mt == "text/markdown":
		return Markdown
	case strings.HasPrefix(mt, "text/"):
		return Text
	case strings.HasPrefix(mt, "audio/"):
		return Audio
	case strings.HasPrefix(mt, "video/"):
		return Video
	}
	return Unknown
}
