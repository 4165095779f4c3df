package gop

import (
	"encoding/json"
	"fmt"
	"os"
)

// Vocabulary is a bijective mapping between phoneme strings and dense
// integer IDs, with one ID designated as blank. It is constructed once
// at startup and is safe for concurrent read access thereafter.
type Vocabulary struct {
	idByToken map[string]int
	tokenByID map[int]string
	size      int
	blankID   int
}

// LoadVocabulary parses a JSON object file of {"phoneme": id, ...} pairs.
// IDs need not be contiguous; size is max(id)+1.
func LoadVocabulary(path string, blankID int) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVocabParseFailed, err)
	}
	return NewVocabulary(data, blankID)
}

// NewVocabulary parses raw JSON vocabulary bytes.
func NewVocabulary(data []byte, blankID int) (*Vocabulary, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVocabParseFailed, err)
	}
	return vocabularyFromMap(raw, blankID)
}

func vocabularyFromMap(raw map[string]int, blankID int) (*Vocabulary, error) {
	idByToken := make(map[string]int, len(raw))
	tokenByID := make(map[int]string, len(raw))
	maxID := -1
	for token, id := range raw {
		if id < 0 {
			return nil, fmt.Errorf("%w: negative token id %d for %q", ErrVocabParseFailed, id, token)
		}
		idByToken[token] = id
		tokenByID[id] = token
		if id > maxID {
			maxID = id
		}
	}
	return &Vocabulary{
		idByToken: idByToken,
		tokenByID: tokenByID,
		size:      maxID + 1,
		blankID:   blankID,
	}, nil
}

// TokenID looks up the integer ID for a phoneme string.
func (v *Vocabulary) TokenID(s string) (int, bool) {
	id, ok := v.idByToken[s]
	return id, ok
}

// TokenStr looks up the phoneme string for an integer ID.
func (v *Vocabulary) TokenStr(id int) (string, bool) {
	s, ok := v.tokenByID[id]
	return s, ok
}

// Size returns V, one greater than the largest assigned ID.
func (v *Vocabulary) Size() int {
	return v.size
}

// BlankID returns the configured blank token ID.
func (v *Vocabulary) BlankID() int {
	return v.blankID
}

// Has reports whether a vocabulary key exists, used by the greatest-match
// tokenizer to probe candidate substrings.
func (v *Vocabulary) Has(s string) bool {
	_, ok := v.idByToken[s]
	return ok
}

// DefaultMockVocabulary builds a single-symbol IPA vocabulary covering the
// dict phonemizer's builtin lexicon and grapheme rules, so mock acoustic
// mode can run end to end without a vocab.json file on disk.
func DefaultMockVocabulary(blankID int) *Vocabulary {
	symbols := []string{
		"a", "æ", "b", "d", "ð", "e", "ɛ", "ə", "ɚ", "ɝ", "ɑ", "ɔ", "f", "ɡ",
		"h", "i", "ɪ", "j", "k", "l", "m", "n", "ŋ", "o", "ʊ", "u", "p", "ɹ",
		"s", "ʃ", "t", "θ", "ʌ", "v", "w", "z", "ʒ",
	}
	raw := make(map[string]int, len(symbols)+1)
	raw["<blank>"] = blankID
	id := 0
	for _, sym := range symbols {
		if id == blankID {
			id++
		}
		raw[sym] = id
		id++
	}
	vocab, err := vocabularyFromMap(raw, blankID)
	if err != nil {
		// symbols is a fixed literal with only non-negative ids; this
		// cannot fail.
		panic(err)
	}
	return vocab
}
