// Package index defines the search index boundary: upload actions, per-document
// acknowledgements, the index schema and the Backend interface.
//
// Two backends are provided:
//
//   - index/rest: an Azure AI Search style REST service
//   - index/bleve: a local full-text index, on disk or in memory
package index
