// Package vision is a REST client for an Azure AI Vision style image analysis
// service.
//
// One Client talks to one endpoint and provides three capabilities:
//
//   - Caption: dense captions (imageanalysis:analyze, features=denseCaptions)
//   - ExtractText: OCR lines (imageanalysis:analyze, features=read)
//   - EmbedImage: multimodal image vectors (retrieval:vectorizeImage)
//
// Requests are throttled client-side with a token bucket. Non-200 responses are
// returned as *ai.StatusError; a 429 matches ai.ErrRateLimited.
package vision
