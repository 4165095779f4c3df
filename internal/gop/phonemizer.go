package gop

import "context"

// Phonemizer abstracts the G2P front-end that turns clean surface text
// into a raw IPA string. The core only consumes IPA text and stress marks;
// it never sees the backend's model or dictionary files.
type Phonemizer interface {
	IPA(ctx context.Context, text string) (string, error)
}
