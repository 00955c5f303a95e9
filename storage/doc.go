// Package storage defines the run ledger used by ingestion.
//
// The ledger is split into repositories the way the rest of the code consumes it:
//
//   - CheckpointRepository: per chunk file processing state, used to resume a run
//   - FailureRepository: record failures keyed by run id
//   - RunRepository: run reports
//
// Ledger combines all three. The badger subpackage provides the only implementation:
//
//	ledger, err := badger.OpenLedger("/var/lib/imageindex/ledger")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ledger.Close()
//
// Entries are stored as JSON. All implementations must be safe for concurrent use.
package storage
