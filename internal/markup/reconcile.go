package markup

import "github.com/vonshlovens/flownotes/internal/note"

// Reconcile carries block identity from previous over to freshly parsed blocks.
//
// Paragraphs whose text is unchanged are matched in order (longest common
// subsequence). Between two matches, leftover old and new paragraphs are paired
// positionally, which keeps the id of a paragraph that was edited in place.
// Only paragraphs with no counterpart get the id FromMarkup minted for them.
// Matched blocks also keep their type, checkbox/file fields and children.
func Reconcile(previous, parsed []note.Block) []note.Block {
	prev := note.SortBlocks(previous)
	out := make([]note.Block, len(parsed))
	copy(out, parsed)

	pairs := lcs(prev, out)
	// Sentinel pair so the trailing gap is handled by the same loop
	pairs = append(pairs, [2]int{len(prev), len(out)})

	pi, ni := 0, 0
	for _, p := range pairs {
		for pi < p[0] && ni < p[1] {
			adopt(&out[ni], prev[pi])
			pi++
			ni++
		}
		if p[0] < len(prev) && p[1] < len(out) {
			adopt(&out[p[1]], prev[p[0]])
		}
		pi, ni = p[0]+1, p[1]+1
	}

	return note.Renumber(out)
}

func adopt(dst *note.Block, src note.Block) {
	dst.ID = src.ID
	dst.Type = src.Type
	dst.Checked = src.Checked
	dst.FilePath = src.FilePath
	dst.Children = src.Children
}

// lcs returns index pairs (prev, next) of equal-content blocks forming a
// longest common subsequence, in increasing order.
func lcs(prev, next []note.Block) [][2]int {
	n, m := len(prev), len(next)
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if prev[i].Content == next[j].Content {
				dp[i][j] = dp[i+1][j+1] + 1
			} else {
				dp[i][j] = max(dp[i+1][j], dp[i][j+1])
			}
		}
	}

	var pairs [][2]int
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case prev[i].Content == next[j].Content:
			pairs = append(pairs, [2]int{i, j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}
