// Package extract turns uploaded documents into plain text for the
// pipeline. Real PDF parsing is an external collaborator; the default
// extractor handles text payloads only.
package extract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrEmptyDocument is returned when a document decodes to no usable text.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// Extractor converts one uploaded document into plain text.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// DecodeBase64 decodes a base64 document payload as sent by clients.
func DecodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode document payload: %w", err)
	}
	return data, nil
}

// PlainText treats the document bytes as UTF-8 text. It rejects empty and
// binary payloads rather than feeding garbage into the pipeline.
type PlainText struct{}

func (PlainText) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("document is not valid UTF-8 text")
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
