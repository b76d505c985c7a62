package store

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// wsRegex collapses runs of whitespace.
var wsRegex = regexp.MustCompile(`\s+`)

// punctRegex strips punctuation except characters meaningful in programming
// terms (c++, c#, .net, scikit-learn). Letters and digits from any script
// are kept, so Cyrillic or accented queries survive normalization.
var punctRegex = regexp.MustCompile(`[^\p{L}\p{N}_\s\-\.\+\#]`)

// NormalizeQuery lowercases a query, collapses whitespace, and strips
// punctuation that carries no meaning for matching.
func NormalizeQuery(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = punctRegex.ReplaceAllString(normalized, " ")
	normalized = wsRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// Tokenize splits text into normalized tokens at least two characters long.
// Lengths are counted in runes so multi-byte scripts are not over-counted.
func Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(NormalizeQuery(text)) {
		word = strings.Trim(word, ".-")
		if utf8.RuneCountInString(word) >= 2 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// KeywordTokens returns query tokens suitable for keyword matching: longer
// than two characters and not stop words.
func KeywordTokens(query string) []string {
	var keywords []string
	for _, token := range Tokenize(query) {
		if utf8.RuneCountInString(token) > 2 && !stopWords[token] {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// IsStopWord reports whether the token is an English stop word.
func IsStopWord(token string) bool {
	return stopWords[strings.ToLower(token)]
}

// stopWords is the English stop word list used for keyword matching and the
// TF-IDF vocabulary.
var stopWords = buildStopWordSet([]string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "up", "about", "into", "through", "during",
	"before", "after", "above", "below", "between", "among", "this", "that",
	"these", "those", "i", "me", "my", "myself", "we", "our", "ours",
	"ourselves", "you", "your", "yours", "yourself", "yourselves", "he",
	"him", "his", "himself", "she", "her", "hers", "herself", "it", "its",
	"itself", "they", "them", "their", "theirs", "themselves", "what",
	"which", "who", "whom", "whose", "am", "is", "are", "was", "were", "be",
	"been", "being", "have", "has", "had", "having", "do", "does", "did",
	"doing", "will", "would", "could", "should", "may", "might", "must",
	"can", "shall",
})

func buildStopWordSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
