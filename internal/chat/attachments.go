// Package chat coordinates a full chat turn: attachment normalization,
// knowledge retrieval, completion, and source attribution.
package chat

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/salubra-ai/salubra/internal/core"
)

// Attachment kinds. Images go to the vision model as image parts,
// documents contribute their extracted text inline.
const (
	KindImage    = "image"
	KindDocument = "document"
)

// Attachment is one file attached to a chat message.
type Attachment struct {
	Kind          string
	MimeType      string
	Name          string
	Data          []byte
	ExtractedText string
}

// Message is one turn of the conversation as the caller submits it.
type Message struct {
	Role        string
	Text        string
	Attachments []Attachment
}

// ProcessAttachments converts caller messages into provider wire
// messages. Messages without attachments pass through as plain text;
// messages with attachments become multimodal part lists. The returned
// booleans report whether any image or document attachment was present,
// which drives model selection.
func ProcessAttachments(messages []Message) ([]core.ProviderMessage, bool, bool) {
	out := make([]core.ProviderMessage, 0, len(messages))
	hasImages := false
	hasDocs := false

	for _, m := range messages {
		if len(m.Attachments) == 0 {
			out = append(out, core.ProviderMessage{Role: m.Role, Content: m.Text})
			continue
		}

		var text strings.Builder
		text.WriteString(m.Text)
		var imageParts []core.ContentPart

		for _, a := range m.Attachments {
			switch a.Kind {
			case KindImage:
				hasImages = true
				imageParts = append(imageParts, core.ContentPart{
					Type: "image_url",
					ImageURL: &core.ImageURL{
						URL:    dataURL(a.MimeType, a.Data),
						Detail: "high",
					},
				})
			case KindDocument:
				if strings.TrimSpace(a.ExtractedText) == "" {
					continue
				}
				hasDocs = true
				fmt.Fprintf(&text, "\n\n--- Documento adjunto: %s ---\n%s\n--- Fin del documento ---",
					a.Name, a.ExtractedText)
			}
		}

		parts := make([]core.ContentPart, 0, 1+len(imageParts))
		parts = append(parts, core.ContentPart{Type: "text", Text: text.String()})
		parts = append(parts, imageParts...)
		out = append(out, core.ProviderMessage{Role: m.Role, Parts: parts})
	}
	return out, hasImages, hasDocs
}

func dataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
