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


// Package openai provides text embeddings through OpenAI-compatible and Azure
// OpenAI APIs.
//
// The package uses the langchaingo library. Each Embedder is bound to one
// endpoint and carries its own client-side rate limiter. Responses with HTTP
// status 429 are reported as errors wrapping ai.ErrRateLimited.
//
// # Usage
//
//	cfg := ai.NewConfig(
//	    ai.WithEmbeddingEndpoints(eps...),
//	    ai.WithEmbeddingAPI(ai.APITypeAzure, "2023-05-15"),
//	)
//	embedders, err := openai.NewEmbedders(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pool := endpoint.MustPool(embedders...)
//	vec, err := pool.Next().EmbedText(ctx, "a red bicycle")
package openai
