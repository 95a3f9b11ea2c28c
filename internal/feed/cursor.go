package feed

import (
	"bitwise74/reel-api/pkg/apperr"
	"encoding/base64"
	"encoding/json"
)

// Cursor is the sort key of the last item of a page. It doesn't have to
// point at a row that still exists.
type Cursor struct {
	Score     float64 `json:"s"`
	CreatedAt int64   `json:"c"`
	ID        string  `json:"i"`
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses an opaque cursor. An empty string is the first page.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, apperr.Validation("Invalid cursor")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, apperr.Validation("Invalid cursor")
	}

	if c.ID == "" {
		return nil, apperr.Validation("Invalid cursor")
	}

	return &c, nil
}
