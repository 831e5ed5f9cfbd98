package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawResponse is the grouped response produced by the text index
// Groups is required; Suggest is optional
type RawResponse struct {
	Groups  *RawGroups     `json:"groups"`
	Suggest RawSuggestions `json:"suggest,omitempty"`
}

// RawGroups holds one bucket per site plus the number of documents left out of the buckets
type RawGroups struct {
	Buckets    []RawBucket `json:"buckets"`
	OtherCount *int        `json:"other_count"`
}

// RawBucket is one site with its candidate documents, best index order first
type RawBucket struct {
	Key        string        `json:"key"`
	Candidates []RawDocument `json:"candidates"`

	decodeErr error
}

// RawDocument is a single candidate document inside a bucket
type RawDocument struct {
	Authority *float64  `json:"authority,omitempty"`
	Score     float64   `json:"score"`
	Source    RawSource `json:"source"`
}

// RawSource carries the stored fields of a candidate document
// Anchors may arrive as a list, a single string or not at all
type RawSource struct {
	URL       string          `json:"url"`
	Title     string          `json:"title"`
	Meta      string          `json:"meta,omitempty"`
	Domain    string          `json:"domain,omitempty"`
	UpdatedOn string          `json:"updated_on"`
	Anchors   json.RawMessage `json:"anchors,omitempty"`
	Links     []string        `json:"links,omitempty"`
}

// RawSuggestions is the optional phrase suggestion section
// A malformed section decodes to nil instead of failing the response
type RawSuggestions []RawSuggestion

// UnmarshalJSON implements lenient decoding of the suggestion section
func (s *RawSuggestions) UnmarshalJSON(data []byte) error {
	var list []RawSuggestion
	if err := json.Unmarshal(data, &list); err != nil {
		*s = nil
		return nil
	}
	*s = list
	return nil
}

// First returns the first option of the first suggestion, or empty string
func (s RawSuggestions) First() string {
	if len(s) == 0 || len(s[0].Options) == 0 {
		return ""
	}
	return s[0].Options[0].Text
}

// RawSuggestion is a phrase suggestion block: the original text and its corrections
type RawSuggestion struct {
	Text    string             `json:"text"`
	Options []RawSuggestOption `json:"options"`
}

// RawSuggestOption is one corrected phrase
type RawSuggestOption struct {
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
}

// Err returns the decoding error of a bucket that could not be parsed
func (b RawBucket) Err() error {
	return b.decodeErr
}

// UnmarshalJSON decodes every bucket independently so one broken bucket does not fail the whole response
func (g *RawGroups) UnmarshalJSON(data []byte) error {
	var wire struct {
		Buckets    []json.RawMessage `json:"buckets"`
		OtherCount *int              `json:"other_count"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	g.OtherCount = wire.OtherCount
	if wire.Buckets == nil {
		g.Buckets = nil
		return nil
	}

	g.Buckets = make([]RawBucket, 0, len(wire.Buckets))
	for i, raw := range wire.Buckets {
		var b RawBucket
		if err := json.Unmarshal(raw, &b); err != nil {
			// Keep the key if the bucket is at least an object with a string key
			var keyOnly struct {
				Key string `json:"key"`
			}
			_ = json.Unmarshal(raw, &keyOnly) //nolint:errcheck // Best effort, key is informational
			b = RawBucket{Key: keyOnly.Key, decodeErr: fmt.Errorf("bucket %d: %w", i, err)}
		}
		g.Buckets = append(g.Buckets, b)
	}
	return nil
}

// AnchorList returns the anchors as a list
// A JSON string becomes a one-element list; anything else yields nil
func (s RawSource) AnchorList() []string {
	trimmed := bytes.TrimSpace(s.Anchors)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var list []string
	if err := json.Unmarshal(trimmed, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(trimmed, &single); err == nil {
		return []string{single}
	}

	return nil
}

// EncodeAnchors converts an anchor list into the raw wire form
func EncodeAnchors(anchors []string) json.RawMessage {
	if len(anchors) == 0 {
		return nil
	}
	data, err := json.Marshal(anchors)
	if err != nil {
		return nil
	}
	return data
}

// DecodeRawResponse parses a JSON grouped response
func DecodeRawResponse(data []byte) (*RawResponse, error) {
	var resp RawResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode raw response: %w", err)
	}
	return &resp, nil
}
