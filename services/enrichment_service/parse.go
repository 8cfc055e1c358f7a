package enrichment_service

import (
	"regexp"
	"strings"
)

var (
	labelPrefixRe = regexp.MustCompile(`^(Summary:|Key Points:|Topics:)\s*`)
	numberedRe    = regexp.MustCompile(`^\d+[\.\)]\s*(.*)`)
	qaPairRe      = regexp.MustCompile(`(?is)Q\d+:\s*(.*?)\s*A\d+:\s*(.*?)(?:$|\n\s*(?:Q\d+:))`)
	bulletRe      = regexp.MustCompile(`^[-•*]\s*`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
)

// cleanLLMOutput strips label artifacts models tend to prepend and folds the
// text onto one line.
func cleanLLMOutput(text string) string {
	text = labelPrefixRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// parseNumberedList pulls "1. point" / "2) point" lines out of a response.
func parseNumberedList(text string) []string {
	var points []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		match := numberedRe.FindStringSubmatch(strings.TrimSpace(line))
		if match != nil {
			if point := strings.TrimSpace(match[1]); point != "" {
				points = append(points, point)
			}
		}
	}
	return points
}

// parseQAPairs extracts Qn:/An: pairs. Questions are normalized to end with
// a question mark so downstream validation never trips on model formatting.
func parseQAPairs(text string) ([]string, []string) {
	var questions, answers []string

	// The regex consumes the lookahead Qn:, so scan pair by pair.
	remaining := text
	for {
		loc := qaPairRe.FindStringSubmatchIndex(remaining)
		if loc == nil {
			break
		}
		q := strings.TrimSpace(remaining[loc[2]:loc[3]])
		a := strings.TrimSpace(remaining[loc[4]:loc[5]])
		if q != "" && a != "" {
			if !strings.HasSuffix(q, "?") {
				q += "?"
			}
			questions = append(questions, q)
			answers = append(answers, a)
		}
		next := loc[5]
		if next >= len(remaining) || next <= loc[0] {
			break
		}
		remaining = remaining[next:]
	}

	return questions, answers
}

// parseTopicList pulls "- Topic" bullet lines, keeping only short phrases
// that work as mind map nodes.
func parseTopicList(text string) []string {
	var topics []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		topic := bulletRe.ReplaceAllString(strings.TrimSpace(line), "")
		if topic != "" && len(strings.Fields(topic)) <= 3 {
			topics = append(topics, topic)
		}
	}
	return topics
}

// splitSentences is a cheap period-based splitter used for fallback content
// and prompt truncation. It does not try to handle abbreviations.
func splitSentences(text string) []string {
	parts := strings.Split(text, ". ")
	var sentences []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
