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

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyImageURL indicates the record has no image to enrich.
	ErrEmptyImageURL = errors.New("image url cannot be empty")

	// ErrEmptyID indicates a document has no key.
	ErrEmptyID = errors.New("id cannot be empty")

	// ErrVectorDimensions indicates a vector has the wrong number of components.
	ErrVectorDimensions = errors.New("unexpected vector dimensions")

	// ErrRecordEnrichmentFailed indicates a mandatory enrichment step failed for a record.
	ErrRecordEnrichmentFailed = errors.New("record enrichment failed")

	// ErrDuplicateID indicates a document key already used earlier in the same file or upload.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNoValidDocuments indicates that a whole file produced zero documents.
	ErrNoValidDocuments = errors.New("no valid documents")
)

// RecordError describes why a single record was excluded from the document set.
type RecordError struct {
	RecordID string
	Step     string
	Err      error
}

func (e *RecordError) Error() string {
	return "record " + e.RecordID + ": " + e.Step + ": " + e.Err.Error()
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrRecordEnrichmentFailed, e.Err}
}
