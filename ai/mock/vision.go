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


package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/imageindex/ai"
	"github.com/poiesic/imageindex/core"
)

// MockVision is a test double for the image analysis capabilities:
// ai.CaptionProvider, ai.DocumentAnalyzer and ai.ImageEmbedder.
type MockVision struct {
	// Name identifies the mock when several are placed in one pool.
	Name string

	CaptionFunc     func(ctx context.Context, imageURL string) (string, error)
	ExtractTextFunc func(ctx context.Context, source string) (string, error)
	EmbedImageFunc  func(ctx context.Context, imageURL string) ([]float32, error)

	captions atomic.Int64
	reads    atomic.Int64
	images   atomic.Int64
}

var _ ai.VisionProvider = (*MockVision)(nil)

// NewMockVision creates a mock whose default outputs are derived from the input URL.
func NewMockVision(name string) *MockVision {
	return &MockVision{Name: name}
}

// Caption returns "caption of <url>" unless CaptionFunc is set.
func (m *MockVision) Caption(ctx context.Context, imageURL string) (string, error) {
	m.captions.Add(1)
	if m.CaptionFunc != nil {
		return m.CaptionFunc(ctx, imageURL)
	}
	return "caption of " + imageURL, nil
}

// ExtractText returns the upper-cased base name of source unless ExtractTextFunc is set.
func (m *MockVision) ExtractText(ctx context.Context, source string) (string, error) {
	m.reads.Add(1)
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, source)
	}
	name := source[strings.LastIndex(source, "/")+1:]
	return strings.ToUpper(name), nil
}

// EmbedImage returns a deterministic image-sized vector unless EmbedImageFunc is set.
func (m *MockVision) EmbedImage(ctx context.Context, imageURL string) ([]float32, error) {
	m.images.Add(1)
	if m.EmbedImageFunc != nil {
		return m.EmbedImageFunc(ctx, imageURL)
	}
	return DeterministicVector(imageURL, core.ImageVectorDimensions), nil
}

// CaptionCalls returns the number of Caption calls.
func (m *MockVision) CaptionCalls() int { return int(m.captions.Load()) }

// ExtractTextCalls returns the number of ExtractText calls.
func (m *MockVision) ExtractTextCalls() int { return int(m.reads.Load()) }

// EmbedImageCalls returns the number of EmbedImage calls.
func (m *MockVision) EmbedImageCalls() int { return int(m.images.Load()) }

// CallCount returns the total number of calls across all capabilities.
func (m *MockVision) CallCount() int {
	return m.CaptionCalls() + m.ExtractTextCalls() + m.EmbedImageCalls()
}
