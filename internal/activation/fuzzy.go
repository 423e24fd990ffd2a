package activation

import "strings"

const tokenPunct = ".,!?;:\"'()[]{}*_~`"

// ratio scores the similarity of two strings on a 0-100 scale from edit
// distance, with substitutions costing 2 (so "abcd" vs "abce" scores 75,
// not 50). Identical strings score 100, fully disjoint strings 0.
func ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lensum := len(ra) + len(rb)
	if lensum == 0 {
		return 100
	}
	dist := editDistance(ra, rb)
	return (100 * (lensum - dist)) / lensum
}

// editDistance is Levenshtein distance with substitution cost 2.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := prev[j-1]
			if a[i-1] != b[j-1] {
				sub += 2
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			cur[j] = min(sub, min(del, ins))
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// bestTokenScore returns the highest ratio between any whitespace-delimited,
// punctuation-stripped token of text and name. Comparison is case-insensitive.
func bestTokenScore(text, name string) int {
	name = strings.ToLower(name)
	best := 0
	for _, word := range strings.Fields(strings.ToLower(text)) {
		token := strings.Trim(word, tokenPunct)
		if token == "" {
			continue
		}
		if score := ratio(token, name); score > best {
			best = score
		}
	}
	return best
}
