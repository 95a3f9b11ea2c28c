package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewID returns a random 16 character identifier used for rows the app
// creates itself (videos, provider upload ids in s3 mode).
func NewID() (string, error) {
	return gonanoid.Generate(idCharset, 16)
}

// RequestID returns a short id used to correlate logs of one request.
func RequestID() string {
	return gonanoid.MustGenerate(idCharset, 10)
}
