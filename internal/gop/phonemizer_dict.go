package gop

import (
	"context"
	"strings"
)

// dictPhonemizer is an in-process rule-based English grapheme-to-phoneme
// fallback plus a small built-in pronunciation lexicon, for offline and
// dependency-free operation.
type dictPhonemizer struct {
	lexicon map[string]string
}

// NewDictPhonemizer builds the offline G2P backend. extraLexicon entries
// override the built-in lexicon, keyed by lowercase word.
func NewDictPhonemizer(extraLexicon map[string]string) Phonemizer {
	lex := make(map[string]string, len(builtinLexicon)+len(extraLexicon))
	for k, v := range builtinLexicon {
		lex[k] = v
	}
	for k, v := range extraLexicon {
		lex[strings.ToLower(k)] = v
	}
	return &dictPhonemizer{lexicon: lex}
}

func (p *dictPhonemizer) IPA(_ context.Context, text string) (string, error) {
	word := strings.ToLower(strings.TrimSpace(text))
	if word == "" {
		return "", nil
	}
	if ipa, ok := p.lexicon[word]; ok {
		return ipa, nil
	}
	return rulesBasedG2P(word), nil
}

// rulesBasedG2P applies longest-match English grapheme rules, falling back
// to a single character at a time when no multi-character rule applies.
func rulesBasedG2P(word string) string {
	var out strings.Builder
	i := 0
	for i < len(word) {
		matched := false
		for l := 4; l >= 2; l-- {
			if i+l > len(word) {
				continue
			}
			if ph, ok := graphemeRules[word[i:i+l]]; ok {
				out.WriteString(ph)
				i += l
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if ph, ok := graphemeRules[word[i:i+1]]; ok {
			out.WriteString(ph)
		}
		i++
	}
	return out.String()
}

// graphemeRules maps English grapheme sequences to IPA phonemes, longest
// keys first in intent (rulesBasedG2P tries length 4 down to 1).
var graphemeRules = map[string]string{
	"tion": "ʃən", "sion": "ʒən", "ough": "ʌf", "ight": "aɪt",
	"eous": "iəs", "ious": "iəs", "ture": "tʃɚ", "sure": "ʃɚ",
	"ould": "ʊd", "ound": "aʊnd", "ence": "əns", "ance": "əns",
	"ment": "mənt", "ness": "nəs", "able": "əbəl", "ible": "əbəl",
	"ally": "əli", "ful": "fəl", "ing": "ɪŋ", "ght": "t", "tch": "tʃ",
	"dge": "dʒ", "sch": "sk", "chr": "kɹ", "que": "k", "ph": "f",
	"th": "θ", "sh": "ʃ", "ch": "tʃ", "wh": "w", "wr": "ɹ", "kn": "n",
	"gn": "n", "ck": "k", "ng": "ŋ", "gh": "", "ee": "i", "ea": "i",
	"oo": "u", "ou": "aʊ", "ow": "oʊ", "ai": "eɪ", "ay": "eɪ",
	"oi": "ɔɪ", "oy": "ɔɪ", "au": "ɔ", "aw": "ɔ", "er": "ɚ", "ir": "ɝ",
	"ur": "ɝ", "ar": "ɑɹ", "or": "ɔɹ", "le": "əl",
	"a": "æ", "b": "b", "c": "k", "d": "d", "e": "ɛ", "f": "f",
	"g": "ɡ", "h": "h", "i": "ɪ", "j": "dʒ", "k": "k", "l": "l",
	"m": "m", "n": "n", "o": "ɑ", "p": "p", "q": "k", "r": "ɹ",
	"s": "s", "t": "t", "u": "ʌ", "v": "v", "w": "w", "x": "ks",
	"y": "j", "z": "z",
}

// builtinLexicon covers the most frequent English words with a known IPA
// pronunciation, ahead of the rule-based fallback.
var builtinLexicon = map[string]string{
	"the": "ðə", "a": "ə", "an": "ən", "and": "ænd", "or": "ɔɹ",
	"is": "ɪz", "are": "ɑɹ", "was": "wɑz", "were": "wɝ", "be": "bi",
	"been": "bɪn", "have": "hæv", "has": "hæz", "had": "hæd",
	"do": "du", "does": "dʌz", "did": "dɪd", "will": "wɪl",
	"would": "wʊd", "could": "kʊd", "should": "ʃʊd", "can": "kæn",
	"i": "aɪ", "you": "ju", "he": "hi", "she": "ʃi", "it": "ɪt",
	"we": "wi", "they": "ðeɪ", "me": "mi", "him": "hɪm", "her": "hɝ",
	"this": "ðɪs", "that": "ðæt", "these": "ðiz", "those": "ðoʊz",
	"what": "wʌt", "who": "hu", "where": "wɛɹ", "when": "wɛn",
	"why": "waɪ", "how": "haʊ", "not": "nɑt", "no": "noʊ",
	"yes": "jɛs", "to": "tu", "of": "ʌv", "in": "ɪn", "on": "ɑn",
	"at": "æt", "by": "baɪ", "for": "fɔɹ", "with": "wɪθ",
	"from": "fɹʌm", "hello": "hɛloʊ", "world": "wɝld", "okay": "oʊkeɪ",
	"please": "pliz", "thanks": "θæŋks", "good": "ɡʊd", "new": "nu",
}
