package index

import (
	"errors"
	"fmt"

	"github.com/poiesic/imageindex/core"
)

// FieldKind classifies schema fields.
type FieldKind string

const (
	KindKey    FieldKind = "key"
	KindText   FieldKind = "text"
	KindSimple FieldKind = "simple"
	KindVector FieldKind = "vector"
)

// Vector search profiles referenced by vector fields.
const (
	TextVectorProfile  = "textVectorProfile"
	ImageVectorProfile = "imageVectorProfile"
)

// Field describes one index field.
type Field struct {
	Name       string
	Kind       FieldKind
	Dimensions int
	Profile    string
	Filterable bool
	Sortable   bool
	Facetable  bool
}

// Schema describes an index: its fields and the text field weights of its
// default scoring profile.
type Schema struct {
	Name        string
	Fields      []Field
	TextWeights map[string]float64
}

// DefaultSchema returns the image index layout: an id key, three searchable
// text fields, the image URL and four vectors.
func DefaultSchema(name string) *Schema {
	return &Schema{
		Name: name,
		Fields: []Field{
			{Name: "id", Kind: KindKey, Filterable: true, Sortable: true, Facetable: true},
			{Name: "caption", Kind: KindText},
			{Name: "content", Kind: KindText},
			{Name: "ocrContent", Kind: KindText},
			{Name: "imageUrl", Kind: KindSimple, Sortable: true, Facetable: true},
			{Name: "captionVector", Kind: KindVector, Dimensions: core.TextVectorDimensions, Profile: TextVectorProfile},
			{Name: "contentVector", Kind: KindVector, Dimensions: core.TextVectorDimensions, Profile: TextVectorProfile},
			{Name: "ocrContentVector", Kind: KindVector, Dimensions: core.TextVectorDimensions, Profile: TextVectorProfile},
			{Name: "imageVector", Kind: KindVector, Dimensions: core.ImageVectorDimensions, Profile: ImageVectorProfile},
		},
		TextWeights: map[string]float64{
			"caption":    5,
			"content":    1,
			"ocrContent": 2,
		},
	}
}

// Field returns the field called name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks that the schema has a name, exactly one key field, positive
// vector dimensions and weights only on text fields.
func (s *Schema) Validate() error {
	if s == nil {
		return ErrSchemaRequired
	}
	if s.Name == "" {
		return errors.New("index schema: name is required")
	}

	keys := 0
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("index schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		switch f.Kind {
		case KindKey:
			keys++
		case KindVector:
			if f.Dimensions <= 0 {
				return fmt.Errorf("index schema: vector field %q needs dimensions", f.Name)
			}
		case KindText, KindSimple:
		default:
			return fmt.Errorf("index schema: field %q has unknown kind %q", f.Name, f.Kind)
		}
	}
	if keys != 1 {
		return fmt.Errorf("index schema: want exactly one key field, got %d", keys)
	}

	for name := range s.TextWeights {
		if f, ok := s.Field(name); !ok || f.Kind != KindText {
			return fmt.Errorf("index schema: weight on non-text field %q", name)
		}
	}
	return nil
}
