package app

import "fmt"

const citationSnippetLen = 100

// Citation is the presentation form of a retrieval result. Numbering
// follows retrieval order, which is what answers reference.
type Citation struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Page    string `json:"page"`
	Snippet string `json:"snippet"`
}

// FormatCitations derives one citation per hydrated result, in order.
// Chunk positions are not tracked yet, so the page label stays a
// placeholder.
func FormatCitations(results []RetrievalResult) []Citation {
	citations := make([]Citation, 0, len(results))
	for i := range results {
		snippet := results[i].Content
		if runes := []rune(snippet); len(runes) > citationSnippetLen {
			snippet = string(runes[:citationSnippetLen])
		}
		citations = append(citations, Citation{
			ID:      fmt.Sprintf("cit_%d", i),
			Source:  results[i].DocumentName,
			Page:    "N/A",
			Snippet: snippet,
		})
	}
	return citations
}
