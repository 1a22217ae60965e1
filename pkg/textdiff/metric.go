package textdiff

import "strings"

// longTextThreshold is the crossover between the character-level and the
// word-level path. Below it the exact edit distance is cheap; above it we
// trade precision for speed and count word-level changes instead.
const longTextThreshold = 1000

// CountChanges returns the amount of edit activity between two extracted
// text snapshots: character edits for short inputs, words added plus words
// removed (under an LCS alignment) for long ones. The result is 0 when the
// texts are equal, and symmetric in its arguments on both paths.
//
// If either side is empty the result is 0. This treats "no content to
// compare" as "no detected change", so a caller with no stored history must
// handle the first-capture case itself rather than rely on the metric.
func CountChanges(oldText, newText string) int {
	if oldText == "" || newText == "" {
		return 0
	}
	if oldText == newText {
		return 0
	}

	oldRunes := []rune(oldText)
	newRunes := []rune(newText)
	if len(oldRunes) < longTextThreshold || len(newRunes) < longTextThreshold {
		return editDistance(oldRunes, newRunes)
	}
	return wordChanges(oldText, newText)
}

// editDistance computes the Levenshtein distance with two rolling rows
// instead of a full matrix. When the lengths differ by more than half the
// larger length the DP is skipped entirely and the upper bound is returned;
// grossly dissimilar sizes do not deserve an O(n*m) pass.
func editDistance(a, b []rune) int {
	la, lb := len(a), len(b)

	longer := la
	if lb > longer {
		longer = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if diff > longer/2 {
		return longer
	}

	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		cur[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if ins := cur[j-1] + 1; ins < d {
				d = ins
			}
			if del := prev[j] + 1; del < d {
				d = del
			}
			cur[j] = d
		}
		prev, cur = cur, prev
	}
	return prev[lb]
}

// wordChanges splits both texts on whitespace and counts words on either
// side that fall outside the longest common subsequence. Not a true edit
// distance, but an order-respecting approximation that is linear in memory.
func wordChanges(oldText, newText string) int {
	oldWords := strings.Fields(oldText)
	newWords := strings.Fields(newText)
	lcs := lcsLength(oldWords, newWords)
	return (len(oldWords) - lcs) + (len(newWords) - lcs)
}

func lcsLength(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
