package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "https://example.com/a.png"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	assert.NotEqual(t, IDFromContent("content1"), IDFromContent("content2"))
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "0000000000000001", ID(1).String())
	assert.Equal(t, "ffffffffffffffff", ID(^uint64(0)).String())
	assert.Len(t, IDFromContent("https://example.com/a.png").String(), 16)
}

func TestRecord_Key(t *testing.T) {
	r := &Record{ID: "abc", Source: SourceRef{File: "f.txt", Line: 3}}
	assert.Equal(t, "abc", r.Key())

	r.ID = ""
	assert.Equal(t, "f.txt:3", r.Key())
}

func TestDocument_OmitsNilVectors(t *testing.T) {
	doc := &Document{
		ID:            "1",
		Caption:       "a cat",
		ImageURL:      "https://example.com/cat.png",
		CaptionVector: []float32{0.1},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Contains(t, fields, "captionVector")
	assert.NotContains(t, fields, "contentVector")
	assert.NotContains(t, fields, "ocrContentVector")
	assert.NotContains(t, fields, "imageVector")
	// Text fields are always present, even when empty.
	assert.Contains(t, fields, "ocrContent")
	assert.Contains(t, fields, "content")
}

func TestUploadOutcome_Succeeded(t *testing.T) {
	o := &UploadOutcome{Attempted: 10, FailedKeys: []string{"a", "b"}}
	assert.Equal(t, 8, o.Succeeded())
}

func TestRecordError(t *testing.T) {
	cause := errors.New("boom")
	err := &RecordError{RecordID: "r1", Step: "caption", Err: cause}

	assert.ErrorIs(t, err, ErrRecordEnrichmentFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "record r1: caption: boom", err.Error())
}

func TestRunReport(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &RunReport{StartedAt: start}
	assert.Zero(t, r.Duration())
	assert.True(t, r.Succeeded())

	r.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Duration())

	r.FailedFiles = 1
	assert.False(t, r.Succeeded())
}
