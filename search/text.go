package search

// containsAllWords reports whether every query word appears in the
// document's words. An empty query matches nothing.
func containsAllWords(docWords, queryWords []string) bool {
	if len(queryWords) == 0 {
		return false
	}

	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !docWordSet[qWord] {
			return false
		}
	}
	return true
}
