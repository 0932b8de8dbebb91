package extract

import (
	"bytes"
	"io"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// extractPDF parses PDF bytes into plain text. docconv (pdftotext) is the
// primary path; when it is unavailable or returns nothing, the pure-Go
// parser takes over so a missing system binary does not fail ingestion.
func extractPDF(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), "application/pdf", false)
	if err == nil && strings.TrimSpace(res.Body) != "" {
		return res.Body, nil
	}

	text, perr := extractPDFPure(data)
	if perr != nil {
		if err != nil {
			return "", err
		}
		return "", perr
	}
	return text, nil
}

func extractPDFPure(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
