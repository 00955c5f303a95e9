package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/imageindex/core"
)

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema("images")
	require.NoError(t, s.Validate())

	caption, ok := s.Field("caption")
	require.True(t, ok)
	assert.Equal(t, KindText, caption.Kind)

	image, ok := s.Field("imageVector")
	require.True(t, ok)
	assert.Equal(t, core.ImageVectorDimensions, image.Dimensions)

	ocr, ok := s.Field("ocrContentVector")
	require.True(t, ok)
	assert.Equal(t, core.TextVectorDimensions, ocr.Dimensions)

	assert.Equal(t, 5.0, s.TextWeights["caption"])
	assert.Equal(t, 1.0, s.TextWeights["content"])
	assert.Equal(t, 2.0, s.TextWeights["ocrContent"])

	_, ok = s.Field("missing")
	assert.False(t, ok)
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Schema)
	}{
		{"no name", func(s *Schema) { s.Name = "" }},
		{"no key", func(s *Schema) { s.Fields = s.Fields[1:] }},
		{"two keys", func(s *Schema) { s.Fields = append(s.Fields, Field{Name: "other", Kind: KindKey}) }},
		{"duplicate field", func(s *Schema) { s.Fields = append(s.Fields, Field{Name: "caption", Kind: KindText}) }},
		{"vector without dimensions", func(s *Schema) { s.Fields = append(s.Fields, Field{Name: "v", Kind: KindVector}) }},
		{"unknown kind", func(s *Schema) { s.Fields = append(s.Fields, Field{Name: "x", Kind: "blob"}) }},
		{"weight on vector", func(s *Schema) { s.TextWeights["imageVector"] = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSchema("images")
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}

	var nilSchema *Schema
	assert.ErrorIs(t, nilSchema.Validate(), ErrSchemaRequired)
}

func TestValidateAction(t *testing.T) {
	s := DefaultSchema("images")

	ok := Action{ActionField: ActionUpload, "id": "1", "captionVector": make([]float32, core.TextVectorDimensions)}
	assert.NoError(t, ValidateAction(s, ok))
	assert.Equal(t, "1", ok.Key())

	assert.ErrorIs(t, ValidateAction(s, Action{"id": 7}), ErrInvalidAction)
	assert.ErrorIs(t, ValidateAction(s, Action{}), ErrInvalidAction)
	assert.ErrorIs(t, ValidateAction(s, Action{"id": "1", "imageVector": []float32{1}}), ErrInvalidAction)
	assert.ErrorIs(t, ValidateAction(s, Action{"id": "1", "imageVector": []float64{1}}), ErrInvalidAction)
}
