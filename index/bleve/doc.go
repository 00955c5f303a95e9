// Package bleve implements index.Backend on top of a local bleve full-text index.
//
// It is used for offline runs and tests: text fields are searchable, vectors are
// only validated.
package bleve
