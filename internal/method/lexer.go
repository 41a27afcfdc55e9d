package method

import (
	"strings"
	"unicode"
)

// boundary is the word Split emits for an explicit underscore.
const boundary = "_"

// Split breaks a method name into words at camelCase boundaries. Runs of
// capitals stay together as one acronym word, with the last capital
// starting the next word when a lower-case letter follows it:
//
//	findByURLPath      -> find By URL Path
//	findBySalary_Value -> find By Salary _ Value
//
// Digits stay attached to the word they follow.
func Split(name string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if r == '_' {
			flush()
			words = append(words, boundary)
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// join concatenates words, rendering boundaries as "_".
func join(words []string) string {
	return strings.Join(words, "")
}
