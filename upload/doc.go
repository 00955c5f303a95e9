// Package upload sends enriched documents to a search index in fixed-size
// batches and aggregates per-document acknowledgements.
package upload
