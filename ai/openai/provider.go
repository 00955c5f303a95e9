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


package openai

import (
	"github.com/poiesic/imageindex/ai"
)

// NewEmbedders creates one embedder per configured embedding endpoint, in
// configuration order. The result is meant to back an endpoint.Pool.
func NewEmbedders(config *ai.Config) ([]ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	out := make([]ai.Embedder, 0, len(config.EmbeddingEndpoints))
	for _, ep := range config.EmbeddingEndpoints {
		e, err := newEmbedder(config, ep)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
