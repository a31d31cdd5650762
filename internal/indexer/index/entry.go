package index

// Entry is a single ranked (word, count) pair.
type Entry struct {
	Word  string `json:"word"`
	Count uint64 `json:"count"`
}
