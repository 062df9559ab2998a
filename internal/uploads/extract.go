package uploads

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"unicode"

	_ "image/jpeg"
	_ "image/png"
)

var pdfMagic = []byte("%PDF-")

// extractPDF pulls a rough text sample and structural counts out of a PDF.
// Bills only need enough signal for the insights prompt, so a full PDF parser
// is deliberately out of scope.
func extractPDF(data []byte, maxText int) (json.RawMessage, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("file is not a valid PDF")
	}

	pages := bytes.Count(data, []byte("/Type /Page"))
	pages -= bytes.Count(data, []byte("/Type /Pages"))
	if pages < 1 {
		pages = 1
	}

	payload := map[string]any{
		"kind":       "pdf",
		"pages":      pages,
		"size_bytes": len(data),
		"text":       printableSample(data, maxText),
	}
	return json.Marshal(payload)
}

// extractImage records the dimensions and format of an uploaded photo.
func extractImage(data []byte) (json.RawMessage, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("file is not a valid image: %w", err)
	}

	payload := map[string]any{
		"kind":       "image",
		"format":     format,
		"width":      cfg.Width,
		"height":     cfg.Height,
		"size_bytes": len(data),
	}
	return json.Marshal(payload)
}

// printableSample collects runs of printable ASCII from the raw bytes, which
// catches the literal strings uncompressed PDFs carry.
func printableSample(data []byte, limit int) string {
	if limit <= 0 {
		limit = 1000
	}

	var b strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= 4 {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.Write(run)
		}
		run = run[:0]
	}

	for _, c := range data {
		if b.Len() >= limit {
			break
		}
		if c < 0x7f && unicode.IsPrint(rune(c)) && c != '<' && c != '>' {
			run = append(run, c)
			continue
		}
		flush()
	}
	flush()

	sample := b.String()
	if len(sample) > limit {
		sample = sample[:limit]
	}
	return sample
}
