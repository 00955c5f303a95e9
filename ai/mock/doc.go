// Package mock provides test double implementations of AI service interfaces.
//
// MockVision implements ai.CaptionProvider, ai.DocumentAnalyzer and
// ai.ImageEmbedder. MockEmbedder implements ai.Embedder. Both are safe for
// concurrent use and count their calls, so tests can assert how work was spread
// over a pool of mocks.
//
// # Usage in Tests
//
//	a, b := mock.NewMockVision("a"), mock.NewMockVision("b")
//	pool := endpoint.MustPool[ai.CaptionProvider](a, b)
//
//	a.CaptionFunc = func(ctx context.Context, url string) (string, error) {
//	    return "", &ai.StatusError{Provider: "vision", StatusCode: 429}
//	}
//
//	// later
//	assert.Equal(t, 3, a.CaptionCalls())
//
// # Default Behavior
//
//   - MockEmbedder: deterministic 1536-dimensional vectors based on a text hash
//   - MockVision: captions and OCR text derived from the URL, deterministic
//     1024-dimensional image vectors
package mock
