// Package report renders a ranking as the indexer's plain-text output.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/file-indexer/internal/indexer/index"
)

// NoFiles is written instead of a ranking when the run had no input paths.
const NoFiles = "NO files to index"

// Header returns the first line of a ranking for k places.
func Header(k int) string {
	return fmt.Sprintf("Top %d Words:", k)
}

// Line formats one ranked entry for the log sink.
func Line(e index.Entry) string {
	return fmt.Sprintf("%s - %d times", e.Word, e.Count)
}

// ShortfallNotice reports that only n distinct words were available.
func ShortfallNotice(n int) string {
	return fmt.Sprintf("Only %d words were found in the files.", n)
}

// Write renders ranking for k places:
//
//	Top 10 Words:
//	\t<word> - <count> times.
//	Only <n> words were found in the files.
//
// followed by a blank line. The shortfall line appears only when ranking
// holds fewer than k entries.
func Write(w io.Writer, ranking []index.Entry, k int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, Header(k))
	for _, e := range ranking {
		fmt.Fprintf(bw, "\t%s.\n", Line(e))
	}
	if len(ranking) < k {
		fmt.Fprintln(bw, ShortfallNotice(len(ranking)))
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

// WriteNoFiles renders the notice for an empty input list.
func WriteNoFiles(w io.Writer) error {
	_, err := fmt.Fprintln(w, NoFiles)
	return err
}
