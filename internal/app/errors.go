package app

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrFolderNotFound       = errors.New("folder not found or not accessible")
	ErrDocumentNotFound     = errors.New("document not found or not accessible")
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmbeddingUnavailable marks exhausted retries against the
	// embedding capability. The retriever recovers from it with lexical
	// fallback; it is never surfaced to callers.
	ErrEmbeddingUnavailable = errors.New("embedding capability unavailable")
)
