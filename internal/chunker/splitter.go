package chunker

import (
	"strings"
)

// sentenceSeparators is the boundary preference order for the by_sentences
// method: sentence-terminal punctuation first, then newline.
var sentenceSeparators = []string{". ", "! ", "? ", "\n"}

// genericSeparators is the boundary preference order for the recursive
// method: paragraph break, line break, word break, then character-level.
var genericSeparators = []string{"\n\n", "\n", " ", ""}

// runeCount measures text in runes, the size metric for character-based
// splitting.
func runeCount(s string) int { return len([]rune(s)) }

// splitRecursive splits text by searching for the preferred boundary, in
// separator order. Text is split at every occurrence of the first separator
// present; pieces still larger than size are recursively split with the
// remaining separators, falling back to a hard character split with overlap
// when no separator is left. Trailing punctuation of a matched separator
// stays attached to the preceding piece.
func splitRecursive(text string, size, overlap int, separators []string, measure func(string) int) []string {
	if len(separators) == 0 {
		return hardSplit(text, size, overlap)
	}

	sep := separators[0]
	if sep == "" || !strings.Contains(text, sep) {
		if sep == "" || len(separators) == 1 {
			if measure(text) <= size {
				return []string{text}
			}
			return hardSplit(text, size, overlap)
		}
		return splitRecursive(text, size, overlap, separators[1:], measure)
	}

	parts := strings.Split(text, sep)
	// Re-attach the non-whitespace head of the separator (".", "!", "?") so
	// sentences keep their terminal punctuation.
	keep := strings.TrimRight(sep, " \n")
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += keep
	}

	var out []string
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if measure(part) <= size {
			out = append(out, part)
			continue
		}
		out = append(out, splitRecursive(part, size, overlap, separators[1:], measure)...)
	}
	return out
}

// hardSplit cuts text into rune windows of at most size, stepping
// size-overlap so adjacent windows share an overlap region.
func hardSplit(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// packWords splits text on whitespace boundaries and packs words greedily
// into segments of at most size characters. The trailing overlap characters
// of each emitted segment (on a word boundary) are repeated at the start of
// the next segment.
func packWords(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var (
		out []string
		cur []string
		n   int
	)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, strings.Join(cur, " "))

		// Carry the word-boundary tail that fits within overlap characters.
		var tail []string
		tailLen := 0
		for i := len(cur) - 1; i >= 0 && overlap > 0; i-- {
			add := len(cur[i])
			if len(tail) > 0 {
				add++ // joining space
			}
			if tailLen+add > overlap {
				break
			}
			tail = append([]string{cur[i]}, tail...)
			tailLen += add
		}
		cur = tail
		n = tailLen
	}

	for _, w := range words {
		extra := len(w)
		if len(cur) > 0 {
			extra++ // joining space
		}
		if len(cur) > 0 && n+extra > size {
			flush()
			extra = len(w)
			if len(cur) > 0 {
				extra++
			}
		}
		cur = append(cur, w)
		n += extra
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}
