package lexical

import "strings"

// tokenize lowercases text and splits it into a unigram+bigram term list,
// matching a "lowercase, ngram_range=(1,2)" vectorizer configuration. No
// stopword filtering is applied: TF-IDF's IDF term already down-weights
// common words, so filtering here would only throw away signal the
// weighting is designed to handle.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	if len(words) == 0 {
		return nil
	}

	terms := make([]string, 0, len(words)*2-1)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
