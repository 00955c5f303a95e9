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


package core

import (
	"fmt"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ImageURL must not be empty
//
// NOT validated:
//   - ID (derived from ImageURL when empty, see NormalizeRecord)
//   - Content (may legitimately be empty)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ImageURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyImageURL)
	}

	return nil
}

// NormalizeRecord fills defaulted fields of a decoded record.
func NormalizeRecord(record *Record) {
	if record.ID == "" && record.ImageURL != "" {
		record.ID = IDFromContent(record.ImageURL).String()
	}
	if record.DocumentSource == "" {
		record.DocumentSource = record.ImageURL
	}
}

// ValidateDocument validates a Document before it is sent to the index.
//
// Validation rules:
//   - ID must not be empty
//   - Present vectors must match the index dimensions
//
// NOT validated:
//   - Absent vectors (omitted when an embedding step was skipped or failed)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyID)
	}

	checks := []struct {
		field  string
		vector []float32
		dims   int
	}{
		{"captionVector", doc.CaptionVector, TextVectorDimensions},
		{"contentVector", doc.ContentVector, TextVectorDimensions},
		{"ocrContentVector", doc.OCRContentVector, TextVectorDimensions},
		{"imageVector", doc.ImageVector, ImageVectorDimensions},
	}
	for _, c := range checks {
		if c.vector != nil && len(c.vector) != c.dims {
			return fmt.Errorf("%w: %w: %s has %d, want %d",
				ErrInvalidDocument, ErrVectorDimensions, c.field, len(c.vector), c.dims)
		}
	}

	return nil
}
