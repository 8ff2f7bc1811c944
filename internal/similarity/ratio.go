// Package similarity scores how alike two strings are.
package similarity

// Ratio returns the Ratcliff/Obershelp similarity of a and b in [0, 1]: twice the number of
// matched characters over the total number of characters. Matching blocks are found by taking
// the longest common substring, earliest in a and then in b on ties, and recursing on both
// sides of it. Two empty strings are identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchCount(ra, rb)) / float64(total)
}

type span struct {
	alo, ahi, blo, bhi int
}

func matchCount(a, b []rune) int {
	positions := make(map[rune][]int, len(b))
	for j, r := range b {
		positions[r] = append(positions[r], j)
	}

	matched := 0
	stack := []span{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, positions, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside s.
func longestMatch(a []rune, positions map[rune][]int, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	lengths := map[int]int{}
	for i := s.alo; i < s.ahi; i++ {
		next := make(map[int]int)
		for _, j := range positions[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		lengths = next
	}
	return besti, bestj, bestk
}
