// Package tokenizer extracts words from a byte stream delivered in chunks.
// A word is a maximal run of ASCII letters and digits; every other byte,
// including all non-ASCII bytes, separates words. A word that touches the
// end of the buffered data is held back until the next chunk shows where it
// ends, so chunk boundaries never split or merge words.
package tokenizer

// Counter receives every completed word.
type Counter interface {
	Increment(word string, amount uint64)
}

var wordBytes [256]bool

func init() {
	for c := 'a'; c <= 'z'; c++ {
		wordBytes[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		wordBytes[c] = true
	}
	for c := '0'; c <= '9'; c++ {
		wordBytes[c] = true
	}
}

// IsWordByte reports whether b can be part of a word.
func IsWordByte(b byte) bool {
	return wordBytes[b]
}

// ChunkTokenizer is the per-file scanner state. It must not be shared
// between goroutines.
type ChunkTokenizer struct {
	buf []byte
	// held is the length of the word prefix at the start of buf that an
	// earlier Feed already scanned.
	held int
}

func New() *ChunkTokenizer {
	return &ChunkTokenizer{}
}

// Feed appends chunk to the pending bytes and passes every word that is
// safe to finalize to c. A word running to the end of the pending bytes is
// kept for the next call unless streamEnded is true. It returns the number
// of words emitted.
func (t *ChunkTokenizer) Feed(chunk []byte, streamEnded bool, c Counter) int {
	t.buf = append(t.buf, chunk...)
	emitted := 0
	pos := 0
	for {
		start := pos
		for start < len(t.buf) && !wordBytes[t.buf[start]] {
			start++
		}
		if start == len(t.buf) {
			t.buf = t.buf[:0]
			t.held = 0
			return emitted
		}

		end := start + 1
		if start == 0 && t.held > end {
			end = t.held
		}
		for end < len(t.buf) && wordBytes[t.buf[end]] {
			end++
		}

		if end == len(t.buf) && !streamEnded {
			n := copy(t.buf, t.buf[start:])
			t.buf = t.buf[:n]
			t.held = n
			return emitted
		}

		c.Increment(string(t.buf[start:end]), 1)
		emitted++
		pos = end
	}
}

// Pending returns the number of bytes held back for the next chunk.
func (t *ChunkTokenizer) Pending() int {
	return len(t.buf)
}

type wordList []string

func (w *wordList) Increment(word string, _ uint64) {
	*w = append(*w, word)
}

// Words returns the words of a complete text in order, without case
// folding.
func Words(text string) []string {
	var words wordList
	New().Feed([]byte(text), true, &words)
	return words
}
