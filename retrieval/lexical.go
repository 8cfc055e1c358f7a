package retrieval

import (
	"sort"
	"strings"
	"unicode"
)

// tokenize lowercases the text and keeps alphanumeric tokens longer than 3
// characters. Short tokens (articles, prepositions) carry no signal for
// overlap scoring.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var tokens []string
	for _, f := range fields {
		if len(f) > 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		set[tok] = struct{}{}
	}
	return set
}

// keywordOverlap returns the fraction of query tokens present in the text.
func keywordOverlap(query, text string) float64 {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return 0
	}
	textTokens := tokenSet(text)

	overlap := 0
	for tok := range queryTokens {
		if _, ok := textTokens[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens))
}

// splitSentences breaks text on sentence-ending punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

type scoredSentence struct {
	sentence string
	score    int
	position int
}

// topSentences scores each sentence by token overlap with the query and
// concatenates the best ones, in document order, up to the length cap.
func topSentences(query, text string, lengthCap int) string {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return ""
	}

	var scored []scoredSentence
	for i, sentence := range splitSentences(text) {
		score := 0
		for tok := range tokenSet(sentence) {
			if _, ok := queryTokens[tok]; ok {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredSentence{sentence: sentence, score: score, position: i})
		}
	}
	if len(scored) == 0 {
		return ""
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Take the best sentences, then restore document order so the snippet
	// reads naturally.
	var selected []scoredSentence
	total := 0
	for _, s := range scored {
		if total+len(s.sentence) > lengthCap && len(selected) > 0 {
			break
		}
		selected = append(selected, s)
		total += len(s.sentence) + 1
		if total >= lengthCap {
			break
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].position < selected[j].position
	})

	parts := make([]string, len(selected))
	for i, s := range selected {
		parts[i] = s.sentence
	}
	return strings.Join(parts, " ")
}
