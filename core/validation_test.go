package core

import (
	"errors"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		wantErr error
	}{
		{
			name:    "valid record",
			record:  &Record{ID: "1", ImageURL: "https://example.com/a.png"},
			wantErr: nil,
		},
		{
			name:    "valid record without id",
			record:  &Record{ImageURL: "https://example.com/a.png"},
			wantErr: nil,
		},
		{
			name:    "valid record without content",
			record:  &Record{ID: "1", ImageURL: "https://example.com/a.png", Content: ""},
			wantErr: nil,
		},
		{
			name:    "missing image url",
			record:  &Record{ID: "1"},
			wantErr: ErrEmptyImageURL,
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error should wrap ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	r := &Record{ImageURL: "https://example.com/a.png"}
	NormalizeRecord(r)

	if r.ID != IDFromContent("https://example.com/a.png").String() {
		t.Errorf("NormalizeRecord() ID = %q, want content-derived id", r.ID)
	}
	if r.DocumentSource != r.ImageURL {
		t.Errorf("NormalizeRecord() DocumentSource = %q, want %q", r.DocumentSource, r.ImageURL)
	}

	explicit := &Record{ID: "keep", ImageURL: "u", DocumentSource: "doc.pdf"}
	NormalizeRecord(explicit)
	if explicit.ID != "keep" || explicit.DocumentSource != "doc.pdf" {
		t.Errorf("NormalizeRecord() overwrote explicit fields: %+v", explicit)
	}
}

func TestValidateDocument(t *testing.T) {
	text := make([]float32, TextVectorDimensions)
	image := make([]float32, ImageVectorDimensions)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name:    "valid document without vectors",
			doc:     &Document{ID: "1"},
			wantErr: nil,
		},
		{
			name:    "valid document with all vectors",
			doc:     &Document{ID: "1", CaptionVector: text, ContentVector: text, OCRContentVector: text, ImageVector: image},
			wantErr: nil,
		},
		{
			name:    "empty id",
			doc:     &Document{},
			wantErr: ErrEmptyID,
		},
		{
			name:    "wrong text dimensions",
			doc:     &Document{ID: "1", CaptionVector: []float32{1, 2, 3}},
			wantErr: ErrVectorDimensions,
		},
		{
			name:    "image vector with text dimensions",
			doc:     &Document{ID: "1", ImageVector: text},
			wantErr: ErrVectorDimensions,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
