package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatCitationsNumbersInRetrievalOrder(t *testing.T) {
	results := []RetrievalResult{
		{DocumentName: "Guide", Content: "first passage"},
		{DocumentName: "Policy", Content: "second passage"},
		{DocumentName: "Guide", Content: "third passage"},
	}

	citations := FormatCitations(results)
	require.Len(t, citations, 3)
	require.Equal(t, "cit_0", citations[0].ID)
	require.Equal(t, "cit_1", citations[1].ID)
	require.Equal(t, "cit_2", citations[2].ID)
	require.Equal(t, "Guide", citations[0].Source)
	require.Equal(t, "Policy", citations[1].Source)
	require.Equal(t, "N/A", citations[0].Page)
	require.Equal(t, "first passage", citations[0].Snippet)
}

func TestFormatCitationsTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("x", 250)
	citations := FormatCitations([]RetrievalResult{{DocumentName: "Doc", Content: long}})

	require.Len(t, citations, 1)
	require.Len(t, []rune(citations[0].Snippet), 100)
}

func TestFormatCitationsTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("日", 150)
	citations := FormatCitations([]RetrievalResult{{DocumentName: "Doc", Content: long}})

	require.Equal(t, strings.Repeat("日", 100), citations[0].Snippet)
}

func TestFormatCitationsEmptyInput(t *testing.T) {
	require.Empty(t, FormatCitations(nil))
}
