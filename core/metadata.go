package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Metadata is the decoded form of a record's metadata blob.
type Metadata struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// EncodeMetadata encodes source and text into a metadata blob.
// HTML escaping is disabled so URLs keep their literal form.
func EncodeMetadata(source, text string) (string, error) {
	if !utf8.ValidString(source) || !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidMetadata)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Metadata{Source: source, Text: text}); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// DecodeMetadata decodes a metadata blob. Keys match exactly; a missing or
// null key decodes as the empty string.
func DecodeMetadata(blob string) (Metadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &fields); err != nil {
		return Metadata{}, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}
	if fields == nil {
		return Metadata{}, fmt.Errorf("%w: not a JSON object", ErrInvalidMetadata)
	}

	var meta Metadata
	if err := decodeField(fields, "source", &meta.Source); err != nil {
		return Metadata{}, err
	}
	if err := decodeField(fields, "text", &meta.Text); err != nil {
		return Metadata{}, err
	}
	return meta, nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidMetadata, key, err)
	}
	return nil
}

// NewNormalizedRecord builds a NormalizedRecord from a raw row.
// The row is validated first; rows without content are rejected.
func NewNormalizedRecord(row *RawRow) (NormalizedRecord, error) {
	if err := ValidateRawRow(row); err != nil {
		return NormalizedRecord{}, err
	}
	blob, err := EncodeMetadata(row.TinyLink, row.Content)
	if err != nil {
		return NormalizedRecord{}, err
	}
	return NormalizedRecord{ID: row.ID, Metadata: blob}, nil
}
