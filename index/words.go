package index

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// punctuation is the ASCII punctuation removed from every token.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// MinWordLength is the shortest token that is indexed.
const MinWordLength = 3

// DefaultLanguage is the stop-word language used when none is configured.
const DefaultLanguage = "english"

var englishStopWords = []string{
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
	"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "she's", "her", "hers", "herself", "it", "it's",
	"its", "itself", "they", "them", "their", "theirs", "themselves", "what",
	"which", "who", "whom", "this", "that", "that'll", "these", "those", "am", "is",
	"are", "was", "were", "be", "been", "being", "have", "has", "had", "having",
	"do", "does", "did", "doing", "a", "an", "the", "and", "but", "if", "or",
	"because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
	"against", "between", "into", "through", "during", "before", "after", "above",
	"below", "to", "from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "then", "once", "here", "there", "when", "where", "why",
	"how", "all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too", "very",
	"s", "t", "can", "will", "just", "don", "don't", "should", "should've", "now",
	"d", "ll", "m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn",
	"couldn't", "didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn",
	"hasn't", "haven", "haven't", "isn", "isn't", "ma", "mightn", "mightn't",
	"mustn", "mustn't", "needn", "needn't", "shan", "shan't", "shouldn",
	"shouldn't", "wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn",
	"wouldn't",
}

var stopWordLists = map[string][]string{
	"english": englishStopWords,
}

// Languages returns the bundled stop-word languages.
func Languages() []string {
	out := make([]string, 0, len(stopWordLists))
	for lang := range stopWordLists {
		out = append(out, lang)
	}
	return out
}

// StopWords builds the stop-word set for language. Entries are stored with
// punctuation removed, matching how tokens are cleaned.
func StopWords(language string) (map[string]bool, error) {
	words, ok := stopWordLists[strings.ToLower(language)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, language)
	}
	return NewStopWords(words...), nil
}

// NewStopWords builds a stop-word set from words.
func NewStopWords(words ...string) map[string]bool {
	set := make(map[string]bool, len(words)*2)
	for _, w := range words {
		w = strings.ToLower(w)
		set[w] = true
		set[stripPunctuation(w)] = true
	}
	return set
}

func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// CleanWords splits text on whitespace, lower-cases each token, strips
// punctuation, and keeps tokens of at least MinWordLength characters that are
// not stop words. Duplicates are dropped, first occurrence wins.
func CleanWords(text string, stop map[string]bool) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		w := stripPunctuation(strings.ToLower(f))
		if utf8.RuneCountInString(w) < MinWordLength || stop[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
