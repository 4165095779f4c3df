package gop

import (
	"log/slog"
	"strings"
)

// stress and whitespace marks stripped during pre-clean; see spec.md 4.3.
const (
	primaryStress   = 'ˈ'
	secondaryStress = 'ˌ'
	nbsp            = ' '
)

// IPATokenizer segments a raw IPA string emitted by a G2P front-end into
// vocabulary tokens via greatest-match, bridging the front-end's codepoint
// stream to the acoustic model's phoneme inventory.
type IPATokenizer struct {
	vocab *Vocabulary
	log   *slog.Logger
}

// NewIPATokenizer builds a tokenizer bound to a fixed vocabulary.
func NewIPATokenizer(vocab *Vocabulary, log *slog.Logger) *IPATokenizer {
	if log == nil {
		log = slog.Default()
	}
	return &IPATokenizer{vocab: vocab, log: log}
}

// Tokenize strips stress/whitespace marks then greedily segments the
// remaining byte stream into the longest matching vocabulary keys.
func (t *IPATokenizer) Tokenize(rawIPA string) []string {
	cleaned := preClean(rawIPA)

	var out []string
	i := 0
	for i < len(cleaned) {
		maxTry := MaxTokenBytes
		if remaining := len(cleaned) - i; remaining < maxTry {
			maxTry = remaining
		}

		matched := false
		for l := maxTry; l >= 1; l-- {
			candidate := cleaned[i : i+l]
			if t.vocab.Has(candidate) {
				out = append(out, candidate)
				i += l
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		width := utf8RuneWidth(cleaned[i])
		if i+width > len(cleaned) {
			width = len(cleaned) - i
		}
		t.log.Warn("unknown ipa codepoint", slog.String("codepoint", cleaned[i:i+width]))
		i += width
	}
	return out
}

func preClean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case primaryStress, secondaryStress, ' ', '_', nbsp:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// utf8RuneWidth decides codepoint byte width from the UTF-8 leading byte
// pattern, without allocating a rune out of the substring.
func utf8RuneWidth(lead byte) int {
	switch {
	case lead&0x80 == 0x00:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}
