package ai

import "context"

// CaptionProvider describes images in natural language.
// Implementations must be thread-safe for concurrent use.
type CaptionProvider interface {
	// Caption returns a textual description of the image at imageURL.
	// Returns an error wrapping ErrRateLimited when the provider throttles the call.
	Caption(ctx context.Context, imageURL string) (string, error)
}

// DocumentAnalyzer extracts printed or handwritten text (OCR).
// Implementations must be thread-safe for concurrent use.
type DocumentAnalyzer interface {
	// ExtractText returns the text found in source, which is either a URL or a local
	// file path. An image without text yields an empty string and no error.
	ExtractText(ctx context.Context, source string) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ImageEmbedder generates vector embeddings directly from images.
// Implementations must be thread-safe for concurrent use.
type ImageEmbedder interface {
	// EmbedImage generates a vector embedding for the image at imageURL.
	EmbedImage(ctx context.Context, imageURL string) ([]float32, error)
}

// VisionProvider is a single image analysis service offering captions, OCR and
// image vectors.
type VisionProvider interface {
	CaptionProvider
	DocumentAnalyzer
	ImageEmbedder
}
