package text

import "strings"

// charsPerToken is the rough character-to-token ratio used to estimate token
// counts without a tokenizer dependency.
const charsPerToken = 4

// EstimateTokens approximates the token count of a text.
func EstimateTokens(s string) int {
	n := len(strings.TrimSpace(s))
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// Chunk splits text into chunks of at most maxTokens estimated tokens,
// never breaking inside a sentence. Consecutive chunks share the last
// overlapTokens tokens of the previous chunk as a seed. A sentence longer
// than maxTokens on its own becomes its own chunk rather than being dropped.
func Chunk(text string, maxTokens, overlapTokens int) []string {
	if maxTokens <= 0 {
		return nil
	}
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		seed := overlapSeed(current, overlapTokens)
		current = current[:0]
		currentTokens = 0
		if seed != "" {
			current = append(current, seed)
			currentTokens = EstimateTokens(seed)
		}
	}

	for _, sentence := range sentences {
		tokens := EstimateTokens(sentence)
		if tokens > maxTokens {
			// An oversized sentence cannot be packed; it becomes its own
			// chunk so it is never silently dropped.
			flush()
			current = nil
			currentTokens = 0
			chunks = append(chunks, sentence)
			continue
		}
		if currentTokens+tokens > maxTokens && currentTokens > 0 {
			flush()
			if currentTokens+tokens > maxTokens {
				// the overlap seed alone would overflow with this
				// sentence; drop the seed to honor the size bound
				current = current[:0]
				currentTokens = 0
			}
		}
		current = append(current, sentence)
		currentTokens += tokens
	}
	if len(current) > 0 {
		// Skip a trailing chunk that holds only the overlap seed.
		joined := strings.Join(current, " ")
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], joined) {
			chunks = append(chunks, joined)
		}
	}

	return chunks
}

// SplitSentences splits text on sentence-final punctuation. Each returned
// sentence keeps its terminal mark trimmed and whitespace collapsed.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	for i, s := range sentences {
		sentences[i] = strings.Join(strings.Fields(s), " ")
	}
	return sentences
}

// overlapSeed returns the last overlapTokens estimated tokens of the chunk.
func overlapSeed(sentences []string, overlapTokens int) string {
	if overlapTokens <= 0 {
		return ""
	}
	words := strings.Fields(strings.Join(sentences, " "))
	// words are a coarse stand-in for tokens at this granularity
	if len(words) <= overlapTokens {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-overlapTokens:], " ")
}
