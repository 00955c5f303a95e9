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
package ingestion

import "errors"

var (
	// ErrEnricherRequired is returned when a file enricher is not provided.
	ErrEnricherRequired = errors.New("enricher required")

	// ErrUploaderRequired is returned when a document uploader is not provided.
	ErrUploaderRequired = errors.New("uploader required")

	// ErrTaskRequired is returned when ProcessFiles is called without a task.
	ErrTaskRequired = errors.New("task required")

	// ErrNotADirectory is returned when ProcessAll is given a path that is not a directory.
	ErrNotADirectory = errors.New("not a directory")
)

// FileError attributes a task failure to the file it was processing.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return e.File + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ErrLedgerRequired is returned when resume is requested without a run ledger.
var ErrLedgerRequired = errors.New("ledger required")
