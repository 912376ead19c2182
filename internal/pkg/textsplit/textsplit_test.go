package textsplit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowsShortTextSingleWindow(t *testing.T) {
	windows := Windows("short document", 1000, 200)
	require.Equal(t, []string{"short document"}, windows)
}

func TestWindowsEmptyText(t *testing.T) {
	require.Empty(t, Windows("", 1000, 200))
}

func TestWindowsOverlap(t *testing.T) {
	text := strings.Repeat("a", 8) + strings.Repeat("b", 8)
	windows := Windows(text, 10, 4)

	require.Equal(t, []string{
		"aaaaaaaabb",
		"aabbbbbbbb",
		"bbbb",
	}, windows)

	// Consecutive windows share the overlap region.
	require.Equal(t, windows[0][6:], windows[1][:4])
}

func TestWindowsCoversAllText(t *testing.T) {
	text := strings.Repeat("x", 2500)
	windows := Windows(text, 1000, 200)

	require.Len(t, windows, 4)
	require.Len(t, windows[0], 1000)

	// Successive windows start 800 runes apart, so together they cover
	// the full text with no gaps.
	covered := len(windows[0])
	for range windows[1:] {
		covered += 800
	}
	require.GreaterOrEqual(t, covered, 2500)
	require.True(t, strings.HasSuffix(text, windows[len(windows)-1]))
}

func TestWindowsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("日本語", 10)
	windows := Windows(text, 7, 2)

	for _, w := range windows {
		require.True(t, strings.ContainsAny(w, "日本語"))
		require.Equal(t, string([]rune(w)), w, "windows must split on rune boundaries")
	}
}

func TestWindowsClampsExcessiveOverlap(t *testing.T) {
	windows := Windows(strings.Repeat("a", 30), 10, 15)
	// Overlap is clamped to size/2, so the stride is 5.
	require.Len(t, windows, 6)
}

func TestWindowsNonPositiveSizeUsesDefault(t *testing.T) {
	text := strings.Repeat("a", DefaultWindowSize+10)
	windows := Windows(text, 0, -1)
	require.Len(t, windows, 2)
	require.Len(t, windows[0], DefaultWindowSize)
}
