// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the remote AI services used to enrich
// image records.
//
// The package defines one small interface per capability:
//
//   - CaptionProvider: describes an image in natural language
//   - DocumentAnalyzer: extracts printed text (OCR)
//   - Embedder: turns text into a vector
//   - ImageEmbedder: turns an image into a vector
//
// Callers depend on these interfaces only. Each implementation binds exactly one
// remote endpoint; load balancing across replicas is done by the caller with an
// endpoint.Pool of implementations.
//
// # Implementation Packages
//
//   - ai/vision: image analysis REST client (captions, OCR, image vectors)
//   - ai/openai: text embeddings through OpenAI-compatible or Azure OpenAI APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// # Errors
//
// Providers report throttling by returning an error that wraps ErrRateLimited.
// HTTP-backed providers return *StatusError for non-success responses; a 429
// StatusError matches ErrRateLimited under errors.Is.
//
// # Usage Example
//
//	cfg := ai.NewConfig(
//	    ai.WithVisionEndpoints(eps...),
//	    ai.WithEmbeddingEndpoints(openaiEps...),
//	    ai.WithEmbeddingAPI(ai.APITypeAzure, "2023-05-15"),
//	)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	clients, err := vision.NewClients(cfg)
package ai
