// Package rest implements index.Backend for an Azure AI Search style REST API.
//
// Routes used:
//
//	GET  /indexes/{name}             existence check
//	PUT  /indexes/{name}             create
//	POST /indexes/{name}/docs/index  batch upload (200 or 207 with per-document status)
//	GET  /indexes/{name}/stats       document count
//
// Every request carries the api-version query parameter and the api-key header.
package rest
