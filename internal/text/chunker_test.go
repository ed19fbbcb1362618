package text

import (
	"strings"
	"testing"
)

func TestChunk_EverySentenceCovered(t *testing.T) {
	text := "First sentence here. Second one follows. Third sentence now. Fourth closes it."
	chunks := Chunk(text, 8, 2)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, sentence := range SplitSentences(text) {
		found := false
		for _, c := range chunks {
			if strings.Contains(c, sentence) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("sentence %q missing from all chunks", sentence)
		}
	}
}

func TestChunk_RespectsMaxSize(t *testing.T) {
	text := "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu."
	for _, c := range Chunk(text, 10, 0) {
		if EstimateTokens(c) > 10 {
			t.Errorf("chunk exceeds max tokens: %q (%d)", c, EstimateTokens(c))
		}
	}
}

func TestChunk_OversizedSentenceBecomesOwnChunk(t *testing.T) {
	long := strings.Repeat("verylongword ", 30)
	text := "Short one. " + long + ". Another short."
	chunks := Chunk(text, 10, 0)

	found := false
	for _, c := range chunks {
		if strings.Contains(c, "verylongword") {
			found = true
		}
	}
	if !found {
		t.Fatal("oversized sentence must not be silently dropped")
	}
}

func TestChunk_OverlapSeedsNextChunk(t *testing.T) {
	text := "one two three four five six. seven eight nine."
	chunks := Chunk(text, 8, 2)
	if len(chunks) < 2 {
		t.Skipf("expected at least 2 chunks, got %d", len(chunks))
	}
	prevWords := strings.Fields(chunks[0])
	tail := strings.Join(prevWords[len(prevWords)-2:], " ")
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("second chunk should start with overlap %q, got %q", tail, chunks[1])
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	if got := Chunk("", 10, 2); got != nil {
		t.Errorf("empty input should produce no chunks, got %v", got)
	}
	if got := Chunk("some text", 0, 0); got != nil {
		t.Errorf("non-positive max size should produce no chunks, got %v", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("One here. Two there! Three.")
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(got), got)
	}
	if got[1] != "Two there" {
		t.Errorf("unexpected sentence: %q", got[1])
	}
}
