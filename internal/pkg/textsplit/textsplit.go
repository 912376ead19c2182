// Package textsplit turns extracted document text into overlapping
// retrieval windows.
package textsplit

const (
	DefaultWindowSize = 1000
	DefaultOverlap    = 200
)

// Windows splits text into rune windows of the given size with the
// given overlap between consecutive windows. A non-positive size falls
// back to the default; an overlap >= size is clamped to half the size.
func Windows(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	var windows []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[i:end]))
		i += size - overlap
		if i >= len(runes) {
			break
		}
	}
	return windows
}
