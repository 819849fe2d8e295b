package service

// CountLetters returns how many times each character occurs in word.
// Counting is case-sensitive and an empty word yields an empty map.
func CountLetters(word string) map[string]int {
	counts := make(map[string]int)
	for _, r := range word {
		counts[string(r)]++
	}
	return counts
}
